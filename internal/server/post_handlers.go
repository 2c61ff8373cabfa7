package server

import (
	"citypulse/internal/models"
	"citypulse/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFeed returns the reconciled feed: remote issues with local interaction
// state overlaid, plus session-local posts.
func (s *Server) GetFeed(c *fiber.Ctx) error {
	posts, err := s.postService.Feed(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"posts": posts,
		"count": len(posts),
	})
}

// GetPost returns one reconciled post by id.
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.postService.GetPost(c.Context(), c.Params("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// SearchPosts returns posts matching the query across title, body, and location.
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	posts, err := s.postService.Search(c.Context(), c.Query("q"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"posts": posts,
		"count": len(posts),
	})
}

// UpsertLocalPost inserts or replaces a post in the session-local collection.
func (s *Server) UpsertLocalPost(c *fiber.Ctx) error {
	var post models.Post
	if err := c.BodyParser(&post); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	stored, err := s.postService.UpsertLocal(c.Context(), post)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(stored)
}

// UpdateLocalPost replaces the post with the path id, inserting it when the
// collection has no such post yet.
func (s *Server) UpdateLocalPost(c *fiber.Ctx) error {
	var post models.Post
	if err := c.BodyParser(&post); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	post.ID = c.Params("id")

	stored, err := s.postService.UpsertLocal(c.Context(), post)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(stored)
}

// LikePost increments the like counter. Unknown ids are a silent no-op.
func (s *Server) LikePost(c *fiber.Ctx) error {
	if err := s.postService.Like(c.Context(), c.Params("id")); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DislikePost increments the dislike counter.
func (s *Server) DislikePost(c *fiber.Ctx) error {
	if err := s.postService.Dislike(c.Context(), c.Params("id")); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SharePost increments the share counter.
func (s *Server) SharePost(c *fiber.Ctx) error {
	if err := s.postService.Share(c.Context(), c.Params("id")); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type createCommentRequest struct {
	User string `json:"user"`
	Text string `json:"text"`
}

// CreateComment appends a comment to a post. If the caller is
// authenticated, their name overrides the request's user field.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req createCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if name := currentUserName(c); name != "" {
		req.User = name
	}

	comment, err := s.postService.Comment(c.Context(), c.Params("id"), req.User, req.Text)
	if err != nil {
		return respondServiceError(c, err)
	}
	if comment.ID == "" {
		// Unknown post id: the mutation was a no-op.
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

type setStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// SetPostStatus moves a post through the triage workflow.
func (s *Server) SetPostStatus(c *fiber.Ctx) error {
	var req setStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.postService.SetStatus(c.Context(), c.Params("id"), models.Status(req.Status), req.Note); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeletePost removes a post from the local collection or the issues table.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	if err := s.postService.DeletePost(c.Context(), c.Params("id")); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateIssue files a new issue report for the authenticated user.
func (s *Server) CreateIssue(c *fiber.Ctx) error {
	var in service.CreateIssueInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	in.ReporterID = currentUserID(c)
	if in.ReporterName == "" {
		in.ReporterName = currentUserName(c)
	}

	post, err := s.postService.CreateIssue(c.Context(), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetMyReports lists the authenticated user's filed issues, newest first.
func (s *Server) GetMyReports(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	reports, err := s.profileService.ListReports(c.Context(), currentUserID(c), p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"posts": reports,
		"count": len(reports),
	})
}
