package localstore

import (
	"time"

	"citypulse/internal/models"
)

// SeedPosts builds the demo dataset written when the posts collection is
// empty. Timestamps are anchored to now so the feed always looks recent.
func SeedPosts(now time.Time) []models.Post {
	nowMs := now.UnixMilli()
	year := now.Year()
	return []models.Post{
		{
			ID:           "1",
			Title:        "Potholes in front of Fresco Hotel. Need urgent fixing.",
			Body:         "The road is completely damaged and vehicles are struggling to pass through. This needs to be fixed soon.",
			AuthorName:   "Anidhya Sharma",
			AuthorHandle: "@anidhya",
			Location:     "Sattva Greenage, Salarpuria",
			City:         "Bengaluru",
			Year:         year,
			Category:     "roads",
			Priority:     models.PriorityHigh,
			Images: []models.Image{
				{Src: "/pothole.png", Alt: "Pothole on road"},
				{Src: "/issue.jpg", Alt: "Broken pavement"},
			},
			Likes:    634,
			Dislikes: 42,
			Comments: []models.Comment{
				{ID: "c1", User: "Rahul", Text: "This is getting worse daily.", Ts: nowMs - 40*time.Minute.Milliseconds()},
				{ID: "c2", User: "Meera", Text: "Tagging local ward office.", Ts: nowMs - 28*time.Minute.Milliseconds()},
			},
			Shares:    21,
			Status:    models.StatusInProgress,
			CreatedAt: nowMs - 23*time.Minute.Milliseconds(),
		},
		{
			ID:           "2",
			Title:        "Street lights out on Maple Ave",
			Body:         "Blocks B-D have lights out since yesterday. Please take caution at night.",
			AuthorName:   "Civic Watch",
			AuthorHandle: "@civicwatch",
			Location:     "Maple Ave, Block C",
			City:         "Pune",
			Year:         year,
			Category:     "utilities",
			Priority:     models.PriorityMedium,
			Images: []models.Image{
				{Src: "/water-issue.jpg", Alt: "Utility outage"},
			},
			Likes:    129,
			Dislikes: 3,
			Comments: []models.Comment{
				{ID: "c3", User: "Lata", Text: "Reported to BESCOM.", Ts: nowMs - 9*time.Minute.Milliseconds()},
			},
			Shares:    6,
			Status:    models.StatusPending,
			CreatedAt: nowMs - 12*time.Minute.Milliseconds(),
		},
		{
			ID:           "3",
			Title:        "Unauthorized dumping behind Block A",
			Body:         "Garbage pile-up; attracts stray animals.",
			AuthorName:   "Demo User",
			AuthorHandle: "@demo",
			City:         "Delhi",
			Year:         year - 1,
			Category:     "sanitation",
			Priority:     models.PriorityLow,
			Images:       []models.Image{},
			Likes:        40,
			Dislikes:     1,
			Comments:     []models.Comment{},
			Shares:       2,
			Status:       models.StatusRejected,
			AdminNote:    "Insufficient location details. Please add a landmark.",
			CreatedAt:    nowMs - 130*24*time.Hour.Milliseconds(),
		},
		{
			ID:           "4",
			Title:        "Crosswalk repaint required at Main Square",
			Body:         "Faded lines cause confusion.",
			AuthorName:   "Demo User",
			AuthorHandle: "@demo",
			City:         "Bengaluru",
			Year:         year,
			Category:     "roads",
			Priority:     models.PriorityLow,
			Images:       []models.Image{},
			Likes:        12,
			Comments:     []models.Comment{},
			Shares:       1,
			Status:       models.StatusSolved,
			CreatedAt:    nowMs - 20*24*time.Hour.Milliseconds(),
		},
	}
}
