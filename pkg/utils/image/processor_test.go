package image

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcessKeepsFormat(t *testing.T) {
	out, err := Process(bytes.NewReader(samplePNG(t)))
	require.NoError(t, err)
	assert.Equal(t, "image/png", out.ContentType)
	assert.Equal(t, ".png", out.Ext)
	assert.Equal(t, 4, out.Width)
	assert.Equal(t, 3, out.Height)
}

func TestToWebP(t *testing.T) {
	out, err := ToWebP(bytes.NewReader(samplePNG(t)))
	require.NoError(t, err)
	assert.Equal(t, "image/webp", out.ContentType)
	assert.True(t, out.Body.Len() > 0)
}

func TestProcessRejectsNonImages(t *testing.T) {
	_, err := Process(strings.NewReader("not an image"))
	assert.Error(t, err)
}
