package service

import (
	"context"
	"strings"

	"citypulse/internal/models"
	"citypulse/internal/repository"
)

const leaderboardLimit = 20

// ProfileService manages citizen profiles and their reporting history.
type ProfileService struct {
	profiles repository.ProfileRepository
	issues   repository.IssueRepository

	storageBase string
}

// UpdateProfileInput carries the editable profile fields.
type UpdateProfileInput struct {
	ID         string `json:"-"`
	Name       string `json:"name"`
	Handle     string `json:"handle"`
	Email      string `json:"email"`
	AvatarURL  string `json:"avatar_url"`
	Bio        string `json:"bio"`
	Profession string `json:"profession"`
}

func NewProfileService(profiles repository.ProfileRepository, issues repository.IssueRepository, storageBase string) *ProfileService {
	return &ProfileService{profiles: profiles, issues: issues, storageBase: storageBase}
}

// GetProfile returns one profile by id.
func (s *ProfileService) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	if id == "" {
		return nil, models.NewValidationError("Profile id is required")
	}
	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, models.NewUnavailableError("profiles", err)
	}
	if profile == nil {
		return nil, models.NewNotFoundError("Profile", id)
	}
	return profile, nil
}

// UpsertProfile creates or updates the caller's profile row.
func (s *ProfileService) UpsertProfile(ctx context.Context, in UpdateProfileInput) (*models.Profile, error) {
	if in.ID == "" {
		return nil, models.NewUnauthorizedError("Sign in to edit your profile")
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, models.NewValidationError("Name is required")
	}
	if len(in.Bio) > 500 {
		return nil, models.NewValidationError("Bio must be at most 500 characters")
	}

	profile := &models.Profile{
		ID:         in.ID,
		Name:       in.Name,
		Handle:     strings.TrimSpace(in.Handle),
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
		AvatarURL:  strings.TrimSpace(in.AvatarURL),
		Bio:        strings.TrimSpace(in.Bio),
		Profession: strings.TrimSpace(in.Profession),
	}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, models.NewUnavailableError("profiles", err)
	}
	return s.GetProfile(ctx, in.ID)
}

// Leaderboard returns the top reporters by coin balance.
func (s *ProfileService) Leaderboard(ctx context.Context) ([]*models.Profile, error) {
	top, err := s.profiles.Top(ctx, leaderboardLimit)
	if err != nil {
		return nil, models.NewUnavailableError("profiles", err)
	}
	return top, nil
}

// ListReports returns the posts a reporter has filed, newest first.
func (s *ProfileService) ListReports(ctx context.Context, reporterID string, limit, offset int) ([]models.Post, error) {
	if reporterID == "" {
		return nil, models.NewValidationError("Reporter id is required")
	}
	if limit <= 0 || limit > feedLimit {
		limit = feedLimit
	}
	rows, err := s.issues.ListByReporter(ctx, reporterID, limit, offset)
	if err != nil {
		return nil, models.NewUnavailableError("remote issues", err)
	}
	posts := make([]models.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, row.ToPost(s.storageBase))
	}
	return posts, nil
}
