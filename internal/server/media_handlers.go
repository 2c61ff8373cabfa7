package server

import (
	"io"
	"mime/multipart"
	"strings"

	"citypulse/internal/models"
	"citypulse/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadPhotos accepts up to three issue photos in one multipart request and
// returns their content-addressed URLs for use in a report.
func (s *Server) UploadPhotos(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Multipart form with photos is required"))
	}

	files := form.File["photos"]
	if len(files) == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("At least one photo is required"))
	}

	inputs := make([]service.UploadPhotoInput, 0, len(files))
	for _, fh := range files {
		content, readErr := readMultipartFile(fh)
		if readErr != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Could not read uploaded file"))
		}
		inputs = append(inputs, service.UploadPhotoInput{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     content,
		})
	}

	stored, err := s.mediaService.StorePhotos(inputs)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"photos": stored})
}

// ServePhoto streams a stored photo from disk.
func (s *Server) ServePhoto(c *fiber.Ctx) error {
	hash := c.Params("hash")
	file := c.Params("file")

	format := "jpg"
	if strings.HasSuffix(file, ".webp") {
		format = "webp"
	}

	path, err := s.mediaService.ResolvePhoto(hash, format)
	if err != nil {
		return respondServiceError(c, err)
	}

	c.Set("Cache-Control", "public, max-age=31536000, immutable")
	return c.SendFile(path)
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}
