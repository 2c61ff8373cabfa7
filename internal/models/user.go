package models

import "time"

// Profile is a reporter's public identity, mirrored from the managed auth
// provider into the profiles table. Coins drive the contributor leaderboard.
type Profile struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	Name       string    `json:"name"`
	Handle     string    `json:"handle"`
	Email      string    `gorm:"index" json:"email"`
	AvatarURL  string    `gorm:"column:avatar_url" json:"avatar,omitempty"`
	Bio        string    `json:"bio,omitempty"`
	Profession string    `json:"profession,omitempty"`
	PostsCount int       `gorm:"column:posts_count" json:"posts_count"`
	Coins      int       `json:"coins"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName keeps the remote store's table name.
func (Profile) TableName() string { return "profiles" }

// DemoUser is the fixed offline identity used when no auth provider is
// configured.
var DemoUser = Profile{
	ID:        "demo",
	Name:      "Demo User",
	Handle:    "@demo",
	Email:     "demo@civic.app",
	AvatarURL: "/placeholder-user.jpg",
}
