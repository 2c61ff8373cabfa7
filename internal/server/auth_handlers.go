package server

import (
	"fmt"
	"strings"
	"time"

	"citypulse/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates the demo identity and hands out a session token.
// Production deployments front this with a managed auth provider; the demo
// account keeps the app usable without one.
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Email and password are required"))
	}

	if email != models.DemoUser.Email {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}
	if err := bcrypt.CompareHashAndPassword(s.demoPasswordHash, []byte(req.Password)); err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	profile := models.DemoUser
	if s.profileRepo != nil {
		if err := s.profileRepo.Upsert(c.Context(), &profile); err == nil {
			if persisted, getErr := s.profileRepo.GetByID(c.Context(), profile.ID); getErr == nil && persisted != nil {
				profile = *persisted
			}
		}
	}

	if err := s.store.SetCurrentUser(c.Context(), profile); err != nil {
		return respondServiceError(c, models.NewUnavailableError("local cache", err))
	}

	token, err := s.generateToken(profile)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  profile,
	})
}

// Logout clears the cached session identity.
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.store.ClearCurrentUser(c.Context()); err != nil {
		return respondServiceError(c, models.NewUnavailableError("local cache", err))
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// Me returns the authenticated caller's profile.
func (s *Server) Me(c *fiber.Ctx) error {
	userID := currentUserID(c)

	if s.profileRepo != nil {
		if profile, err := s.profileRepo.GetByID(c.Context(), userID); err == nil && profile != nil {
			return c.JSON(profile)
		}
	}

	current, err := s.store.CurrentUser(c.Context())
	if err != nil {
		return respondServiceError(c, models.NewUnavailableError("local cache", err))
	}
	if current == nil || current.ID != userID {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Profile", userID))
	}
	return c.JSON(current)
}

func (s *Server) generateToken(profile models.Profile) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   profile.ID,
		"email": profile.Email,
		"name":  profile.Name,
		"iss":   "citypulse-api",
		"aud":   "citypulse-client",
		"exp":   now.Add(time.Hour * 24 * 7).Unix(),
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"jti":   s.generateJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// generateJTI creates a unique JWT ID to prevent replay attacks
func (s *Server) generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}
