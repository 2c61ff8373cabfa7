package service

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"citypulse/internal/config"
	"citypulse/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaDir      = "./media"
	MaxPhotoUploadSizeMB = 10
	PhotoMasterMaxSize   = 2048
	PhotoJPEGQuality     = 82
	PhotoWebPQuality     = 70
	MaxPhotosPerIssue    = models.MaxPostImages
)

// UploadPhotoInput is one issue photo as received from the report form.
type UploadPhotoInput struct {
	Filename    string
	ContentType string
	Content     []byte
}

// StoredPhoto describes a photo after re-encoding and content addressing.
type StoredPhoto struct {
	Hash   string `json:"hash"`
	URL    string `json:"url"`
	WebP   string `json:"webp_url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Bytes  int64  `json:"bytes"`
}

// MediaService persists issue photos under a content-addressed directory
// layout. Uploads are re-encoded to a bounded JPEG master plus a WebP
// sibling, so the original bytes never reach disk.
type MediaService struct {
	mediaDir           string
	maxUploadSizeBytes int64
}

func NewMediaService(cfg *config.Config) *MediaService {
	mediaDir := DefaultMediaDir
	if cfg != nil && cfg.MediaDir != "" {
		mediaDir = cfg.MediaDir
	}
	return &MediaService{
		mediaDir:           mediaDir,
		maxUploadSizeBytes: int64(MaxPhotoUploadSizeMB) * 1024 * 1024,
	}
}

// StorePhotos stores up to MaxPhotosPerIssue photos and returns them in the
// original order. Extra photos are silently dropped.
func (s *MediaService) StorePhotos(inputs []UploadPhotoInput) ([]StoredPhoto, error) {
	if len(inputs) > MaxPhotosPerIssue {
		inputs = inputs[:MaxPhotosPerIssue]
	}
	stored := make([]StoredPhoto, 0, len(inputs))
	for _, in := range inputs {
		photo, err := s.StorePhoto(in)
		if err != nil {
			return nil, err
		}
		stored = append(stored, *photo)
	}
	return stored, nil
}

// StorePhoto validates, re-encodes, and writes one photo.
func (s *MediaService) StorePhoto(in UploadPhotoInput) (*StoredPhoto, error) {
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", MaxPhotoUploadSizeMB))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedPhotoMIME(detectedType) {
		return nil, models.NewValidationError("Invalid image type")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, detectedType) {
		return nil, models.NewValidationError("Image content type mismatch")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if !isSupportedPhotoFormat(format) {
		return nil, models.NewValidationError("Unsupported image format")
	}

	master := resizeToFit(decoded, PhotoMasterMaxSize, PhotoMasterMaxSize)

	encodedJPG, err := encodeJPEG(master, PhotoJPEGQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	encodedWebP, err := encodeWebP(master, PhotoWebPQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	hash := contentHash(encodedJPG)
	jpgAbs := filepath.Join(s.mediaDir, "i", hash, "master.jpg")
	webpAbs := filepath.Join(s.mediaDir, "i", hash, "master.webp")

	if err := writeBytesToFile(jpgAbs, encodedJPG); err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := writeBytesToFile(webpAbs, encodedWebP); err != nil {
		_ = os.Remove(jpgAbs)
		return nil, models.NewInternalError(err)
	}

	bounds := master.Bounds()
	return &StoredPhoto{
		Hash:   hash,
		URL:    s.PhotoURL(hash),
		WebP:   fmt.Sprintf("/media/i/%s/master.webp", hash),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Bytes:  int64(len(encodedJPG)),
	}, nil
}

// PhotoURL returns the canonical serving path for a stored photo.
func (s *MediaService) PhotoURL(hash string) string {
	return fmt.Sprintf("/media/i/%s/master.jpg", hash)
}

// ResolvePhoto maps a hash and format to the file on disk.
func (s *MediaService) ResolvePhoto(hash, format string) (string, error) {
	if !isValidMediaHash(hash) {
		return "", models.NewValidationError("Invalid image hash")
	}
	name := "master.jpg"
	if strings.EqualFold(format, "webp") {
		name = "master.webp"
	}
	fullPath := filepath.Join(s.mediaDir, "i", hash, name)
	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return "", models.NewNotFoundError("Photo", hash)
		}
		return "", models.NewInternalError(err)
	}
	return fullPath, nil
}

// isValidMediaHash checks that the hash is strictly lowercase hex (SHA-256
// style). This prevents path traversal attacks via crafted hash parameters.
func isValidMediaHash(hash string) bool {
	if len(hash) == 0 || len(hash) > 128 {
		return false
	}
	for _, c := range hash {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedPhotoMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func isSupportedPhotoFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func writeBytesToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
