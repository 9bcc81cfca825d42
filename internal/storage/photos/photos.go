// Package photos stores candidate pictures in an S3 compatible bucket.
package photos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/gravadigital/campus-awards-api/internal/config"
	"github.com/gravadigital/campus-awards-api/internal/logger"
)

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image is too large")
	ErrDisabled        = errors.New("photo storage is not configured")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Store saves an image and returns the URL it is served from.
type Store interface {
	Upload(ctx context.Context, candidateID string, r io.Reader, size int64, contentType string) (string, error)
}

// CheckImage validates the declared type and size of an upload.
func CheckImage(contentType string, size, maxSize int64) error {
	if _, ok := extensions[normalizeType(contentType)]; !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	if maxSize > 0 && size > maxSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, size, maxSize)
	}
	return nil
}

// ObjectName builds a unique key for a candidate photo.
func ObjectName(candidateID, contentType string) string {
	return path.Join("candidates", candidateID, uuid.New().String()+extensions[normalizeType(contentType)])
}

func normalizeType(contentType string) string {
	t, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(t))
}

// MinioStore uploads to MinIO or any S3 compatible endpoint.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
	maxSize int64
	log     *log.Logger
}

// NewMinioStore creates the client. Call EnsureBucket before the first upload.
func NewMinioStore(cfg *config.Config) (*MinioStore, error) {
	if !cfg.PhotosEnabled() {
		return nil, ErrDisabled
	}

	client, err := minio.New(cfg.Photos.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Photos.AccessKey, cfg.Photos.SecretKey, ""),
		Secure: cfg.Photos.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	baseURL := cfg.Photos.PublicBaseURL
	if baseURL == "" {
		scheme := "http"
		if cfg.Photos.UseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s/%s", scheme, client.EndpointURL().Host, cfg.Photos.Bucket)
	}

	return &MinioStore{
		client:  client,
		bucket:  cfg.Photos.Bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: cfg.Photos.MaxFileSize,
		log:     logger.WithContext("component", "photos", "bucket", cfg.Photos.Bucket),
	}, nil
}

// EnsureBucket creates the bucket when it does not exist.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	s.log.Info("Bucket created")
	return nil
}

// Upload stores the image and returns its public URL.
func (s *MinioStore) Upload(ctx context.Context, candidateID string, r io.Reader, size int64, contentType string) (string, error) {
	if err := CheckImage(contentType, size, s.maxSize); err != nil {
		return "", err
	}

	object := ObjectName(candidateID, contentType)
	info, err := s.client.PutObject(ctx, s.bucket, object, r, size, minio.PutObjectOptions{
		ContentType: normalizeType(contentType),
	})
	if err != nil {
		s.log.Error("Failed to upload photo", "candidate_id", candidateID, "error", err)
		return "", fmt.Errorf("failed to upload photo: %w", err)
	}

	s.log.Info("Photo uploaded", "candidate_id", candidateID, "object", info.Key, "size", info.Size)
	return s.URL(object), nil
}

// URL returns the public address of an object.
func (s *MinioStore) URL(object string) string {
	return s.baseURL + "/" + (&url.URL{Path: object}).EscapedPath()
}

var _ Store = (*MinioStore)(nil)
