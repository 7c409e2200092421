package validation

import (
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
)

type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
)

const (
	MaxImageSize = 50 * 1024 * 1024
	MaxVideoSize = 5 * 1024 * 1024 * 1024
	MaxAudioSize = 500 * 1024 * 1024

	// MaxPhotoSize applies to check-in photos and avatars.
	MaxPhotoSize = 10 * 1024 * 1024
)

var (
	ErrFileSize     = errors.New("file size exceeds limit")
	ErrFileType     = errors.New("invalid file type")
	ErrFileRequired = errors.New("no file provided")
)

var allowedExt = map[MediaKind]map[string]bool{
	KindImage: {".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true, ".svg": true},
	KindVideo: {".mp4": true, ".mov": true, ".webm": true, ".m4v": true},
	KindAudio: {".mp3": true, ".wav": true, ".m4a": true, ".ogg": true, ".aac": true},
}

var maxSize = map[MediaKind]int64{
	KindImage: MaxImageSize,
	KindVideo: MaxVideoSize,
	KindAudio: MaxAudioSize,
}

// DetectKind classifies a file by its MIME type, falling back to the extension.
func DetectKind(contentType, filename string) (MediaKind, bool) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return KindImage, true
	case strings.HasPrefix(contentType, "video/"):
		return KindVideo, true
	case strings.HasPrefix(contentType, "audio/"):
		return KindAudio, true
	}

	ext := strings.ToLower(filepath.Ext(filename))
	for kind, exts := range allowedExt {
		if exts[ext] {
			return kind, true
		}
	}
	return "", false
}

// ValidateMedia checks a landing page upload and returns its kind.
func ValidateMedia(file *multipart.FileHeader) (MediaKind, error) {
	if file == nil {
		return "", ErrFileRequired
	}

	kind, ok := DetectKind(file.Header.Get("Content-Type"), file.Filename)
	if !ok {
		return "", ErrFileType
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExt[kind][ext] {
		return "", fmt.Errorf("%w: %s is not an accepted %s format", ErrFileType, ext, kind)
	}
	if file.Size > maxSize[kind] {
		return "", fmt.Errorf("%w: %s files are limited to %d MB", ErrFileSize, kind, maxSize[kind]/(1024*1024))
	}
	return kind, nil
}

var photoExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

// ValidateImage checks a photo that will be re-encoded server side.
func ValidateImage(file *multipart.FileHeader) error {
	if file == nil {
		return ErrFileRequired
	}
	if file.Size > MaxPhotoSize {
		return ErrFileSize
	}
	if !photoExt[strings.ToLower(filepath.Ext(file.Filename))] {
		return ErrFileType
	}
	return nil
}
