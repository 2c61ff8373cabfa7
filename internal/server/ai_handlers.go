package server

import (
	"io"

	"citypulse/internal/models"

	"github.com/gofiber/fiber/v2"
)

// AnalyzeImage accepts an uploaded photo and returns a pre-filled issue
// draft. The endpoint never fails on model errors; the draft falls back to
// generic values.
func (s *Server) AnalyzeImage(c *fiber.Ctx) error {
	if !s.assistantEnabled(c) {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewUnavailableError("assistant", nil))
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("An image file is required"))
	}

	f, err := fileHeader.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Could not read uploaded file"))
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(f)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Could not read uploaded file"))
	}

	draft := s.aiService.AnalyzeImage(c.Context(), fileHeader.Header.Get("Content-Type"), content)
	return c.JSON(draft)
}

type chatRequest struct {
	Query string `json:"query"`
}

// Chat answers an assistant question, grounded in live issue counts when the
// question is about reported issues.
func (s *Server) Chat(c *fiber.Ctx) error {
	if !s.assistantEnabled(c) {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewUnavailableError("assistant", nil))
	}

	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	answer, err := s.aiService.AnswerQuery(c.Context(), req.Query)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"response": answer})
}

// assistantEnabled checks the rollout flag for assistant endpoints, keyed by
// user id when signed in and client address otherwise.
func (s *Server) assistantEnabled(c *fiber.Ctx) bool {
	subject := currentUserID(c)
	if subject == "" {
		subject = c.IP()
	}
	return s.flags.Enabled("assistant", subject)
}
