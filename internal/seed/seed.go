package seed

import (
	"fmt"
	"log"

	"citypulse/internal/models"

	"gorm.io/gorm"
)

// Seeder populates the database with generated demo data.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder creates a Seeder bound to the provided database.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db)}
}

// ClearAll removes every seeded row. Issues go first so reporter rows are
// never referenced when profiles are deleted.
func (s *Seeder) ClearAll() error {
	if err := s.db.Where("1 = 1").Delete(&models.Issue{}).Error; err != nil {
		return fmt.Errorf("clear issues: %w", err)
	}
	if err := s.db.Where("1 = 1").Delete(&models.Profile{}).Error; err != nil {
		return fmt.Errorf("clear profiles: %w", err)
	}
	return nil
}

// Run creates the requested number of reporter profiles and spreads the
// requested number of issues across them.
func (s *Seeder) Run(users, issues int) error {
	if users <= 0 {
		users = 1
	}

	profiles := make([]*models.Profile, 0, users)
	for i := 0; i < users; i++ {
		profile, err := s.factory.CreateProfile()
		if err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	log.Printf("seeded %d profiles", len(profiles))

	for i := 0; i < issues; i++ {
		reporter := profiles[i%len(profiles)]
		if _, err := s.factory.CreateIssue(reporter); err != nil {
			return fmt.Errorf("create issue: %w", err)
		}
		if err := s.db.Model(reporter).
			UpdateColumn("posts_count", gorm.Expr("posts_count + 1")).Error; err != nil {
			return fmt.Errorf("bump posts count: %w", err)
		}
	}
	log.Printf("seeded %d issues", issues)

	return nil
}
