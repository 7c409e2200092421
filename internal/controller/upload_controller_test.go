package controller

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptmanager_backend/pkg/utils/cloudflare"
	"ptmanager_backend/pkg/utils/storage"
)

func uploadRequest(t *testing.T, path, filename, contentType string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func TestUploadAndDeleteLandingMedia(t *testing.T) {
	env := newTestEnv(t)
	landingRoutes(env)
	env.app.Post("/landing-pages/:id/media", as(env.claims(env.admin)), UploadLandingMedia)
	env.app.Delete("/landing-media", as(env.claims(env.admin)), DeleteLandingMedia)
	page := createPage(t, env, "Estate in forma", "fitness")
	path := fmt.Sprintf("/landing-pages/%d/media", page.ID)

	status, _ := env.send(t, uploadRequest(t, path, "virus.exe", "application/octet-stream", []byte("MZ"), nil))
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.send(t, uploadRequest(t, path, "fake.png", "image/png", []byte("not a png"), nil))
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := env.send(t, uploadRequest(t, path, "hero.png", "image/png", tinyPNG(t),
		map[string]string{"block_id": "hero-1"}))
	require.Equal(t, http.StatusCreated, status, string(body))
	uploaded := decode[struct {
		URL  string `json:"url"`
		Type string `json:"type"`
	}](t, body)
	assert.Equal(t, "image", uploaded.Type)
	prefix := fmt.Sprintf("http://localhost/media/landing-media/%d/%d/hero-1/", env.tenant.ID, page.ID)
	require.True(t, strings.HasPrefix(uploaded.URL, prefix), uploaded.URL)
	assert.True(t, strings.HasSuffix(uploaded.URL, ".png"))

	files := cloudflare.Default.(*storage.FileStorage)
	stored := filepath.Join(files.Dir, filepath.FromSlash(strings.TrimPrefix(uploaded.URL, files.BaseURL+"/")))
	_, err := os.Stat(stored)
	require.NoError(t, err)

	foreign := fmt.Sprintf("http://localhost/media/landing-media/%d/1/x.png", env.tenant.ID+1)
	status, _ = env.do(t, http.MethodDelete, "/landing-media", fiber.Map{"url": foreign})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodDelete, "/landing-media", fiber.Map{"url": uploaded.URL})
	assert.Equal(t, http.StatusNoContent, status)
	_, err = os.Stat(stored)
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteLandingMediaStaysInsideTenant(t *testing.T) {
	env := newTestEnv(t)
	env.app.Delete("/landing-media", as(env.claims(env.admin)), DeleteLandingMedia)

	files := cloudflare.Default.(*storage.FileStorage)
	otherKey := fmt.Sprintf("landing-media/%d/1/secret.jpg", env.tenant.ID+1)
	_, err := files.Put(context.Background(), cloudflare.Object{Key: otherKey, Body: strings.NewReader("x")})
	require.NoError(t, err)
	stored := filepath.Join(files.Dir, filepath.FromSlash(otherKey))

	for _, url := range []string{
		fmt.Sprintf("%s/landing-media/%d/../%d/1/secret.jpg", files.BaseURL, env.tenant.ID, env.tenant.ID+1),
		fmt.Sprintf("%s/landing-media/%d/./../%d/1/secret.jpg", files.BaseURL, env.tenant.ID, env.tenant.ID+1),
	} {
		status, _ := env.do(t, http.MethodDelete, "/landing-media", fiber.Map{"url": url})
		assert.Equal(t, http.StatusForbidden, status, url)
	}

	_, err = os.Stat(stored)
	assert.NoError(t, err, "the other tenant's file is still there")
}
