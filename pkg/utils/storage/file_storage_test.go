package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptmanager_backend/pkg/utils/cloudflare"
)

func TestPutAndDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage(dir, "http://localhost:3000/media/")
	require.NoError(t, err)

	key := cloudflare.LandingMediaKey(4, 9, "hero-1", "JPG")
	assert.True(t, strings.HasPrefix(key, "landing-media/4/9/hero-1/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))

	url, err := s.Put(context.Background(), cloudflare.Object{Key: key, Body: strings.NewReader("img")})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/media/"+key, url)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, "img", string(data))

	got, ok := s.KeyFromURL(url)
	require.True(t, ok)
	assert.Equal(t, key, got)

	require.NoError(t, s.Delete(context.Background(), key))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(key)))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is not an error
	assert.NoError(t, s.Delete(context.Background(), key))
}

func TestRejectsEscapingKeys(t *testing.T) {
	s, err := NewFileStorage(t.TempDir(), "http://x")
	require.NoError(t, err)

	_, err = s.Put(context.Background(), cloudflare.Object{Key: "../etc/passwd", Body: strings.NewReader("")})
	assert.Error(t, err)

	_, ok := s.KeyFromURL("http://x/../../secret")
	assert.False(t, ok)
	_, ok = s.KeyFromURL("http://x/landing-media/1/../99/secret.jpg")
	assert.False(t, ok, "dot segments inside a key are rejected too")
	_, ok = s.KeyFromURL("http://other/a.jpg")
	assert.False(t, ok)
}

func TestKeysWithoutBlock(t *testing.T) {
	key := cloudflare.LandingMediaKey(1, 2, "", ".mp4")
	parts := strings.Split(key, "/")
	require.Len(t, parts, 4)
	assert.Equal(t, []string{"landing-media", "1", "2"}, parts[:3])

	assert.True(t, strings.HasPrefix(cloudflare.CheckPhotoKey(1, 5, ".webp"), "tenants/1/clients/5/checks/"))
	assert.True(t, strings.HasPrefix(cloudflare.ProfilePhotoKey(1, 7, "png"), "tenants/1/profile_photos/7/"))
}
