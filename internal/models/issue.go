package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Issue is a row of the remote issues table, the durable source of truth for
// reported content. Nullable columns are pointers so partial rows round-trip
// unchanged.
type Issue struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	Category     *string   `json:"category"`
	LocationText *string   `gorm:"column:location_text" json:"location_text"`
	Priority     *string   `json:"priority"`
	Status       string    `gorm:"default:open" json:"status"`
	ContactInfo  *string   `gorm:"column:contact_info" json:"contact_info"`
	ReporterID   string    `gorm:"index;not null" json:"reporter_id"`
	ReporterName *string   `gorm:"column:reporter_name" json:"reporter_name"`
	City         *string   `json:"city"`
	Photos       *string   `json:"photos"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName keeps the remote store's table name.
func (Issue) TableName() string { return "issues" }

// ToPost projects a remote issue row into the local Post shape. It is a pure
// projection: the row is never mutated, and decoding problems degrade to
// defaults instead of surfacing errors.
//
// storageBase prefixes storage-relative photo paths; pass "" when every photo
// URL is absolute.
func (i Issue) ToPost(storageBase string) Post {
	p := Post{
		ID:           strconv.FormatInt(i.ID, 10),
		Title:        i.Title,
		Body:         i.Description,
		AuthorName:   "Anonymous",
		AuthorHandle: reporterHandle(i.ReporterID),
		Year:         i.CreatedAt.Year(),
		Priority:     PriorityLow,
		Images:       decodePhotos(i.Photos, storageBase, i.Title),
		Video:        nil,
		Comments:     []Comment{},
		Status:       mapIssueStatus(i.Status),
		CreatedAt:    i.CreatedAt.UnixMilli(),
	}
	if i.ReporterName != nil && *i.ReporterName != "" {
		p.AuthorName = *i.ReporterName
	}
	if i.LocationText != nil {
		p.Location = *i.LocationText
	}
	if i.City != nil {
		p.City = *i.City
	}
	if i.Category != nil {
		p.Category = *i.Category
	}
	if i.Priority != nil && *i.Priority != "" {
		p.Priority = titleCasePriority(*i.Priority)
	}
	return p
}

// decodePhotos handles the three historical photo encodings: a JSON array of
// URLs, a single bare URL, or a storage-relative path. An empty or
// unparseable value yields an empty slice.
func decodePhotos(photos *string, storageBase, alt string) []Image {
	if photos == nil || *photos == "" {
		return []Image{}
	}
	var urls []string
	if err := json.Unmarshal([]byte(*photos), &urls); err != nil {
		urls = []string{*photos}
	}
	images := make([]Image, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		images = append(images, Image{Src: resolvePhotoURL(u, storageBase), Alt: alt})
	}
	return images
}

// resolvePhotoURL prefixes storage-relative paths with the public storage
// base; absolute URLs pass through untouched.
func resolvePhotoURL(u, storageBase string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") || storageBase == "" {
		return u
	}
	return strings.TrimSuffix(storageBase, "/") + "/" + strings.TrimPrefix(u, "/")
}

// mapIssueStatus translates the remote status vocabulary into the local one:
// open->pending and resolved->solved; everything else passes through.
func mapIssueStatus(s string) Status {
	switch s {
	case "open", "":
		return StatusPending
	case "resolved":
		return StatusSolved
	default:
		return Status(s)
	}
}

func titleCasePriority(s string) Priority {
	if s == "" {
		return PriorityLow
	}
	p := Priority(strings.ToUpper(s[:1]) + strings.ToLower(s[1:]))
	if !ValidPriority(p) {
		return PriorityLow
	}
	return p
}

func reporterHandle(reporterID string) string {
	if reporterID == "" {
		return "@unknown"
	}
	short := reporterID
	if len(short) > 8 {
		short = short[:8]
	}
	return "@user" + short
}
