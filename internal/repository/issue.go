// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"citypulse/internal/models"

	"gorm.io/gorm"
)

// IssueRepository defines the interface for issue data operations
type IssueRepository interface {
	Create(ctx context.Context, issue *models.Issue) error
	GetByID(ctx context.Context, id int64) (*models.Issue, error)
	ListRecent(ctx context.Context, limit, offset int) ([]*models.Issue, error)
	ListByReporter(ctx context.Context, reporterID string, limit, offset int) ([]*models.Issue, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*models.Issue, error)
	CountByCategory(ctx context.Context) (map[string]int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	Delete(ctx context.Context, id int64) error
}

// issueRepository implements IssueRepository
type issueRepository struct {
	db *gorm.DB
}

// NewIssueRepository creates a new issue repository
func NewIssueRepository(db *gorm.DB) IssueRepository {
	return &issueRepository{db: db}
}

func (r *issueRepository) Create(ctx context.Context, issue *models.Issue) error {
	return r.db.WithContext(ctx).Create(issue).Error
}

func (r *issueRepository) GetByID(ctx context.Context, id int64) (*models.Issue, error) {
	var issue models.Issue
	err := r.db.WithContext(ctx).First(&issue, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *issueRepository) ListRecent(ctx context.Context, limit, offset int) ([]*models.Issue, error) {
	var issues []*models.Issue
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&issues).Error
	return issues, err
}

func (r *issueRepository) ListByReporter(ctx context.Context, reporterID string, limit, offset int) ([]*models.Issue, error) {
	var issues []*models.Issue
	err := r.db.WithContext(ctx).
		Where("reporter_id = ?", reporterID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&issues).Error
	return issues, err
}

func (r *issueRepository) Search(ctx context.Context, query string, limit, offset int) ([]*models.Issue, error) {
	var issues []*models.Issue
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	err := r.db.WithContext(ctx).
		Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(COALESCE(location_text, '')) LIKE ?",
			pattern, pattern, pattern).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&issues).Error
	return issues, err
}

func (r *issueRepository) CountByCategory(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Category string
		Count    int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Issue{}).
		Select("COALESCE(category, 'other') AS category, COUNT(*) AS count").
		Group("COALESCE(category, 'other')").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Category] = r.Count
	}
	return counts, nil
}

func (r *issueRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Issue{}).
		Where("created_at >= ?", since).
		Count(&count).Error
	return count, err
}

func (r *issueRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.Issue{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *issueRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Issue{}, id).Error
}
