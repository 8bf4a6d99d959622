package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/farca/storefront/auth"
	"github.com/goliatone/go-errors"
	"google.golang.org/api/option"
)

// GCSConfig configures the Google Cloud Storage backed store
type GCSConfig struct {
	// Bucket is the bucket name, required
	Bucket string
	// PublicBaseURL overrides the default storage.googleapis.com URL,
	// e.g. a CDN domain or a local emulator endpoint
	PublicBaseURL string
	// EmulatorHost, when set, disables authentication for local development
	EmulatorHost string
	// UploadTimeout bounds a single upload, defaults to 2 minutes
	UploadTimeout time.Duration
}

// GCSStore is an ObjectStore backed by a Google Cloud Storage bucket
type GCSStore struct {
	client        *gcs.Client
	bucket        string
	publicBaseURL string
	uploadTimeout time.Duration
	logger        auth.Logger
}

var _ ObjectStore = (*GCSStore)(nil)

// NewGCSStore creates a GCS-backed object store.
func NewGCSStore(ctx context.Context, config GCSConfig, logger auth.Logger) (*GCSStore, error) {
	if config.Bucket == "" {
		return nil, errors.New("object storage bucket is required", errors.CategoryBadInput)
	}
	if config.UploadTimeout == 0 {
		config.UploadTimeout = 2 * time.Minute
	}

	opts := []option.ClientOption{option.WithScopes(gcs.ScopeReadWrite)}
	if config.EmulatorHost != "" {
		opts = []option.ClientOption{
			option.WithoutAuthentication(),
			option.WithEndpoint(strings.TrimRight(config.EmulatorHost, "/")),
		}
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create storage client")
	}

	return &GCSStore{
		client:        client,
		bucket:        config.Bucket,
		publicBaseURL: strings.TrimRight(config.PublicBaseURL, "/"),
		uploadTimeout: config.UploadTimeout,
		logger:        logger,
	}, nil
}

func (s *GCSStore) Upload(ctx context.Context, key string, contentType string, body io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if contentType == "" {
		contentType = ContentTypeForKey(key)
	}
	if contentType != "" {
		w.ContentType = contentType
	}

	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to write object")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to close object writer")
	}

	s.logger.Debug("object uploaded", "bucket", s.bucket, "key", key)

	return s.PublicURL(key), nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete object").
			WithMetadata(map[string]any{"bucket": s.bucket, "key": key})
	}

	return nil
}

func (s *GCSStore) PublicURL(key string) string {
	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
