package database

import "citypulse/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Issue{},
		&models.Profile{},
	}
}
