// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"citypulse/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

var issueCategories = []string{
	"pothole", "garbage", "road damage", "streetlight",
	"water issue", "sanitation", "utilities", "other",
}

var issueStatuses = []string{"open", "in_progress", "resolved", "rejected", "closed"}

var issuePriorities = []string{"low", "medium", "high"}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db *gorm.DB
	r  *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	seed := time.Now().UnixNano()
	gofakeit.Seed(seed)
	return &Factory{db: db, r: rand.New(rand.NewSource(seed))}
}

// BuildProfile constructs an unsaved profile with plausible content.
func (f *Factory) BuildProfile(overrides ...func(*models.Profile)) *models.Profile {
	first := gofakeit.FirstName()
	last := gofakeit.LastName()
	profile := &models.Profile{
		ID:         gofakeit.UUID(),
		Name:       first + " " + last,
		Handle:     fmt.Sprintf("@%s%s%d", lower(first), lower(last), f.r.Intn(100)),
		Email:      gofakeit.Email(),
		AvatarURL:  fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		Bio:        gofakeit.Sentence(8),
		Profession: gofakeit.JobTitle(),
		Coins:      f.r.Intn(500),
	}
	for _, o := range overrides {
		o(profile)
	}
	return profile
}

// CreateProfile builds and persists a profile.
func (f *Factory) CreateProfile(overrides ...func(*models.Profile)) (*models.Profile, error) {
	profile := f.BuildProfile(overrides...)
	if err := f.db.Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// BuildIssue constructs an unsaved issue reported by the given profile.
func (f *Factory) BuildIssue(reporter *models.Profile, overrides ...func(*models.Issue)) *models.Issue {
	category := issueCategories[f.r.Intn(len(issueCategories))]
	priority := issuePriorities[f.r.Intn(len(issuePriorities))]
	locationText := gofakeit.Street()
	city := gofakeit.City()

	issue := &models.Issue{
		Title:        issueTitle(category),
		Description:  gofakeit.Paragraph(1, 2, 8, " "),
		Status:       issueStatuses[f.r.Intn(len(issueStatuses))],
		ReporterID:   reporter.ID,
		ReporterName: &reporter.Name,
		Category:     &category,
		Priority:     &priority,
		LocationText: &locationText,
		City:         &city,
		CreatedAt:    f.pastTime(90),
	}
	if f.r.Intn(2) == 0 {
		photos, _ := json.Marshal([]string{
			fmt.Sprintf("https://picsum.photos/seed/%s/800/600", gofakeit.UUID()),
		})
		encoded := string(photos)
		issue.Photos = &encoded
	}
	for _, o := range overrides {
		o(issue)
	}
	return issue
}

// CreateIssue builds and persists an issue.
func (f *Factory) CreateIssue(reporter *models.Profile, overrides ...func(*models.Issue)) (*models.Issue, error) {
	issue := f.BuildIssue(reporter, overrides...)
	if err := f.db.Create(issue).Error; err != nil {
		return nil, err
	}
	return issue, nil
}

func (f *Factory) pastTime(maxDays int) time.Time {
	daysBack := f.r.Intn(maxDays)
	hoursBack := f.r.Intn(24)
	minsBack := f.r.Intn(60)
	return time.Now().Add(-time.Duration(daysBack)*24*time.Hour -
		time.Duration(hoursBack)*time.Hour -
		time.Duration(minsBack)*time.Minute)
}

func issueTitle(category string) string {
	switch category {
	case "pothole":
		return fmt.Sprintf("Pothole on %s needs urgent fixing", gofakeit.Street())
	case "garbage":
		return fmt.Sprintf("Garbage pile-up near %s", gofakeit.Street())
	case "streetlight":
		return fmt.Sprintf("Street lights out on %s", gofakeit.Street())
	case "water issue":
		return fmt.Sprintf("Water leakage reported at %s", gofakeit.Street())
	default:
		return gofakeit.Sentence(6)
	}
}

func lower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
