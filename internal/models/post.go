// Package models contains data structures for the application's domain models.
package models

// Priority is the display severity of a reported issue.
type Priority string

// Priority values, title-cased for display.
const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Status is the local lifecycle state of a post. Remote issue rows use a
// different vocabulary (open/resolved) that the issue mapper translates;
// "closed" passes through from remote rows but is never produced locally.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSolved     Status = "solved"
	StatusRejected   Status = "rejected"
	StatusClosed     Status = "closed"
)

// Image is a single feed photo with its accessibility text.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// Video is an optional attached clip. It is either fully populated with a
// source URL or absent (nil on the Post); never partially filled.
type Video struct {
	Src  string `json:"src"`
	Type string `json:"type,omitempty"`
}

// Comment is a single annotation on a post. Comments are append-only and
// local-only: remote issue rows carry no comments of their own.
type Comment struct {
	ID   string `json:"id"`
	User string `json:"user"`
	Text string `json:"text"`
	Ts   int64  `json:"ts"`
}

// Post is the unit of content rendered in feeds, profile tabs, and detail
// views. It is the backend-agnostic shape both the remote issue mapper and
// the local cache store produce, merged by ID during reconciliation.
type Post struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	AuthorName   string    `json:"authorName"`
	AuthorHandle string    `json:"authorHandle"`
	Location     string    `json:"location,omitempty"`
	City         string    `json:"city,omitempty"`
	Year         int       `json:"year"`
	Category     string    `json:"category,omitempty"`
	Priority     Priority  `json:"priority"`
	Images       []Image   `json:"images"`
	Video        *Video    `json:"video"`
	Likes        int       `json:"likes"`
	Dislikes     int       `json:"dislikes"`
	Comments     []Comment `json:"comments"`
	Shares       int       `json:"shares"`
	Status       Status    `json:"status"`
	AdminNote    string    `json:"adminNote"`
	CreatedAt    int64     `json:"createdAt"`
}

// MaxPostImages caps how many photos a post renders.
const MaxPostImages = 3

// ValidPriority reports whether p is one of the three display priorities.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ValidStatus reports whether s is a recognized local status value.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusSolved, StatusRejected, StatusClosed:
		return true
	}
	return false
}
