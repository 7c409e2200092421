package validation

import (
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func header(name, contentType string, size int64) *multipart.FileHeader {
	h := textproto.MIMEHeader{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &multipart.FileHeader{Filename: name, Header: h, Size: size}
}

func TestValidateMediaLimits(t *testing.T) {
	kind, err := ValidateMedia(header("hero.JPG", "image/jpeg", 49*1024*1024))
	require.NoError(t, err)
	assert.Equal(t, KindImage, kind)

	_, err = ValidateMedia(header("hero.jpg", "image/jpeg", 51*1024*1024))
	assert.ErrorIs(t, err, ErrFileSize)

	kind, err = ValidateMedia(header("promo.mp4", "video/mp4", 4*1024*1024*1024))
	require.NoError(t, err)
	assert.Equal(t, KindVideo, kind)

	_, err = ValidateMedia(header("voice.mp3", "audio/mpeg", 501*1024*1024))
	assert.ErrorIs(t, err, ErrFileSize)
}

func TestValidateMediaTypes(t *testing.T) {
	_, err := ValidateMedia(nil)
	assert.ErrorIs(t, err, ErrFileRequired)

	_, err = ValidateMedia(header("doc.pdf", "application/pdf", 10))
	assert.ErrorIs(t, err, ErrFileType)

	_, err = ValidateMedia(header("fake.exe", "image/png", 10))
	assert.ErrorIs(t, err, ErrFileType)

	kind, err := ValidateMedia(header("clip.webm", "", 10))
	require.NoError(t, err)
	assert.Equal(t, KindVideo, kind)
}

func TestValidateImage(t *testing.T) {
	assert.NoError(t, ValidateImage(header("me.png", "image/png", 1024)))
	assert.ErrorIs(t, ValidateImage(header("me.gif", "image/gif", 1024)), ErrFileType)
	assert.ErrorIs(t, ValidateImage(header("me.png", "image/png", MaxPhotoSize+1)), ErrFileSize)
}
