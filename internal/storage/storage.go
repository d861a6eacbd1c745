package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/weatherlogger/apiserver/config"
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// ErrObjectNotFound is returned by Get and Delete when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

const (
	BackendMinio = "minio"
	BackendGCS   = "gcs"
)

// Open builds the backend named by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	switch cfg.Backend {
	case BackendMinio, "":
		return NewMinioClient(cfg.Minio)
	case BackendGCS:
		return NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
