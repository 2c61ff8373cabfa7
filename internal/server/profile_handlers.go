package server

import (
	"citypulse/internal/cache"
	"citypulse/internal/models"
	"citypulse/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetProfile returns a public profile by id, served from cache when warm.
func (s *Server) GetProfile(c *fiber.Ctx) error {
	id := c.Params("id")

	var cached models.Profile
	if cache.GetJSON(c.Context(), cache.ProfileKey(id), &cached) {
		return c.JSON(cached)
	}

	profile, err := s.profileService.GetProfile(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	cache.SetJSON(c.Context(), cache.ProfileKey(id), profile, cache.ProfileTTL)
	return c.JSON(profile)
}

// GetMyProfile returns the authenticated caller's profile.
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	profile, err := s.profileService.GetProfile(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyProfile creates or updates the caller's profile row.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var in service.UpdateProfileInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	in.ID = currentUserID(c)

	profile, err := s.profileService.UpsertProfile(c.Context(), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	cache.InvalidateProfile(c.Context(), in.ID)
	return c.JSON(profile)
}

// GetLeaderboard returns the top reporters by coin balance.
func (s *Server) GetLeaderboard(c *fiber.Ctx) error {
	var cached []*models.Profile
	if cache.GetJSON(c.Context(), cache.LeaderboardKey, &cached) {
		return c.JSON(fiber.Map{"profiles": cached})
	}

	top, err := s.profileService.Leaderboard(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	cache.SetJSON(c.Context(), cache.LeaderboardKey, top, cache.LeaderboardTTL)
	return c.JSON(fiber.Map{"profiles": top})
}
