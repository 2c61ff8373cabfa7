package service

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"citypulse/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMediaService(t *testing.T) *MediaService {
	t.Helper()
	return NewMediaService(&config.Config{MediaDir: t.TempDir()})
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestStorePhotoWritesJPEGAndWebP(t *testing.T) {
	svc := newMediaService(t)

	photo, err := svc.StorePhoto(UploadPhotoInput{
		Filename:    "pothole.png",
		ContentType: "image/png",
		Content:     pngBytes(t, 320, 240),
	})
	require.NoError(t, err)

	assert.Len(t, photo.Hash, 64)
	assert.True(t, isValidMediaHash(photo.Hash))
	assert.Equal(t, "/media/i/"+photo.Hash+"/master.jpg", photo.URL)
	assert.Equal(t, 320, photo.Width)
	assert.Equal(t, 240, photo.Height)

	jpgPath, err := svc.ResolvePhoto(photo.Hash, "jpg")
	require.NoError(t, err)
	_, err = os.Stat(jpgPath)
	require.NoError(t, err)

	webpPath, err := svc.ResolvePhoto(photo.Hash, "webp")
	require.NoError(t, err)
	assert.Equal(t, "master.webp", filepath.Base(webpPath))
}

func TestStorePhotoBoundsMasterSize(t *testing.T) {
	svc := newMediaService(t)

	photo, err := svc.StorePhoto(UploadPhotoInput{
		ContentType: "image/png",
		Content:     pngBytes(t, 4096, 1024),
	})
	require.NoError(t, err)

	assert.Equal(t, PhotoMasterMaxSize, photo.Width)
	assert.Equal(t, 512, photo.Height)
}

func TestStorePhotoIsContentAddressed(t *testing.T) {
	svc := newMediaService(t)
	content := pngBytes(t, 64, 64)

	first, err := svc.StorePhoto(UploadPhotoInput{ContentType: "image/png", Content: content})
	require.NoError(t, err)
	second, err := svc.StorePhoto(UploadPhotoInput{ContentType: "image/png", Content: content})
	require.NoError(t, err)

	assert.Equal(t, first.Hash, second.Hash)
}

func TestStorePhotoRejectsBadInput(t *testing.T) {
	svc := newMediaService(t)

	_, err := svc.StorePhoto(UploadPhotoInput{Content: nil})
	assert.Error(t, err)

	_, err = svc.StorePhoto(UploadPhotoInput{Content: []byte("definitely not an image")})
	assert.Error(t, err)

	_, err = svc.StorePhoto(UploadPhotoInput{
		ContentType: "image/gif",
		Content:     pngBytes(t, 8, 8),
	})
	assert.Error(t, err, "declared type must match detected type")
}

func TestStorePhotosCapsCount(t *testing.T) {
	svc := newMediaService(t)

	inputs := make([]UploadPhotoInput, 0, MaxPhotosPerIssue+2)
	for i := 0; i < MaxPhotosPerIssue+2; i++ {
		inputs = append(inputs, UploadPhotoInput{
			ContentType: "image/png",
			Content:     pngBytes(t, 16+i, 16),
		})
	}

	stored, err := svc.StorePhotos(inputs)
	require.NoError(t, err)
	assert.Len(t, stored, MaxPhotosPerIssue)
}

func TestResolvePhotoRejectsTraversal(t *testing.T) {
	svc := newMediaService(t)

	for _, hash := range []string{"", "../../etc/passwd", "ABCDEF", "zzzz", "a/b"} {
		_, err := svc.ResolvePhoto(hash, "jpg")
		assert.Error(t, err, hash)
	}
}
