package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"usermanager/internal/config"
)

// Storage persists binary blobs under collection-scoped relative paths.
type Storage interface {
	// Put stores content and returns its path, "<collection>/<uuid><ext>".
	Put(ctx context.Context, collection string, content io.Reader) (string, error)
	// Delete removes the blob at path. Deleting a missing blob is not an error.
	Delete(ctx context.Context, path string) error
	// URL returns the public URL for path.
	URL(path string) string
}

// New builds the storage driver selected by cfg.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStorage(cfg.Root, cfg.URL)
	case "s3":
		return NewS3Storage(ctx, S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PublicURL: cfg.S3PublicURL,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// newObjectName reads content fully and derives a unique file name from its detected type.
func newObjectName(collection string, content io.Reader) (string, []byte, error) {
	if collection == "" {
		return "", nil, errors.New("collection is required")
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read content: %w", err)
	}
	ext := mimetype.Detect(data).Extension()
	return collection + "/" + uuid.NewString() + ext, data, nil
}

func contentType(data []byte) string {
	return mimetype.Detect(data).String()
}
