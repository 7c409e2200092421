package cloudflare

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"ptmanager_backend/pkg/config"
)

// Storage puts media somewhere reachable by URL.
type Storage interface {
	Put(ctx context.Context, obj Object) (string, error)
	Delete(ctx context.Context, key string) error
	KeyFromURL(url string) (string, bool)
}

type Object struct {
	Key         string
	Body        io.Reader
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// Default is the storage used by the handlers, set at startup.
var Default Storage

type R2Storage struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

func NewR2Storage(cfg config.R2Config) (*R2Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
		o.UsePathStyle = true
		o.Region = "auto"
	})

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.r2.dev", cfg.Bucket)
	}

	return &R2Storage{client: client, bucket: cfg.Bucket, publicURL: publicURL}, nil
}

func (r *R2Storage) Put(ctx context.Context, obj Object) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(obj.Key),
		Body:        obj.Body,
		ContentType: aws.String(obj.ContentType),
		Metadata:    obj.Metadata,
	}
	if obj.Size > 0 {
		input.ContentLength = aws.Int64(obj.Size)
	}

	if _, err := r.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("could not upload %s to R2: %w", obj.Key, err)
	}
	return r.publicURL + "/" + obj.Key, nil
}

func (r *R2Storage) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("could not delete %s from R2: %w", key, err)
	}
	return nil
}

func (r *R2Storage) KeyFromURL(url string) (string, bool) {
	return keyFromURL(r.publicURL, url)
}

func keyFromURL(base, url string) (string, bool) {
	prefix := base + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if key == "" || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}

// LandingMediaKey is landing-media/<tenant>/<page>[/<block>]/<uuid>.<ext>.
func LandingMediaKey(tenantID, pageID uint, blockID, ext string) string {
	parts := []string{"landing-media", fmt.Sprint(tenantID), fmt.Sprint(pageID)}
	if blockID != "" {
		parts = append(parts, safeSegment(blockID))
	}
	parts = append(parts, uuid.New().String()+normalizeExt(ext))
	return path.Join(parts...)
}

func CheckPhotoKey(tenantID, clientID uint, ext string) string {
	return path.Join("tenants", fmt.Sprint(tenantID), "clients", fmt.Sprint(clientID), "checks",
		uuid.New().String()+normalizeExt(ext))
}

func ProfilePhotoKey(tenantID, userID uint, ext string) string {
	return path.Join("tenants", fmt.Sprint(tenantID), "profile_photos", fmt.Sprint(userID),
		uuid.New().String()+normalizeExt(ext))
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func safeSegment(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, s)
}
