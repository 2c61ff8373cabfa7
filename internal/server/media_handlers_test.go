package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"citypulse/internal/models"
	"citypulse/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytesForServer(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 48, 32))
	for x := 0; x < 48; x++ {
		for y := 0; y < 32; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 5), G: uint8(y * 7), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartPhotosRequest(t *testing.T, photos [][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for i, content := range photos {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="photos"; filename="photo.png"`)
		header.Set("Content-Type", "image/png")
		fw, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err, i)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/media/photos", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUploadAndServePhoto(t *testing.T) {
	app, srv := newTestServer(t)

	req := multipartPhotosRequest(t, [][]byte{pngBytesForServer(t)})
	req.Header.Set("Authorization", authHeader(t, srv, models.DemoUser))
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Photos []service.StoredPhoto `json:"photos"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Photos, 1)
	photo := body.Photos[0]
	assert.Len(t, photo.Hash, 64)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, photo.URL, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, photo.WebP, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUploadPhotosRequiresAuth(t *testing.T) {
	app, _ := newTestServer(t)

	resp, err := app.Test(multipartPhotosRequest(t, [][]byte{pngBytesForServer(t)}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServePhotoRejectsBadHash(t *testing.T) {
	app, _ := newTestServer(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/media/i/..%2F..%2Fetc/master.jpg", nil))
	require.NoError(t, err)
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet,
		"/media/i/0000000000000000000000000000000000000000000000000000000000000000/master.jpg", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
