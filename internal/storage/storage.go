package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotConfigured is returned by callers when no bucket is set up.
var ErrNotConfigured = errors.New("storage service not configured")

// ObjectInfo describes a stored object. Key is relative to the configured prefix.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified *time.Time
}

// Service stores article media and invoice documents in object storage.
type Service interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DeletePrefix(ctx context.Context, prefix string) error
	GetObjectURL(ctx context.Context, key string, expires time.Duration) (string, error)
}
