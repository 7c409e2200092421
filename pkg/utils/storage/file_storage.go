package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ptmanager_backend/pkg/utils/cloudflare"
)

// FileStorage keeps media on local disk. It backs development setups
// without R2 credentials; BaseURL is where the API serves Dir.
type FileStorage struct {
	Dir     string
	BaseURL string
}

func NewFileStorage(dir, baseURL string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create media dir: %w", err)
	}
	return &FileStorage{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

var _ cloudflare.Storage = (*FileStorage)(nil)

func (s *FileStorage) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.Dir, clean), nil
}

func (s *FileStorage) Put(ctx context.Context, obj cloudflare.Object) (string, error) {
	p, err := s.path(obj.Key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("could not create dir: %w", err)
	}

	f, err := os.Create(p)
	if err != nil {
		return "", fmt.Errorf("could not create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, obj.Body); err != nil {
		return "", fmt.Errorf("could not write file: %w", err)
	}
	return s.BaseURL + "/" + obj.Key, nil
}

func (s *FileStorage) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not delete file: %w", err)
	}
	return nil
}

func (s *FileStorage) KeyFromURL(url string) (string, bool) {
	prefix := s.BaseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if strings.Contains(key, "..") {
		return "", false
	}
	if _, err := s.path(key); err != nil {
		return "", false
	}
	return key, true
}
