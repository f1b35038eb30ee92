package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned by GetObject when the key does not exist.
var ErrNotFound = errors.New("blob: object not found")

// Store represents a blob storage interface
type Store interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) (int64, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
}
