package storage

import (
	"context"
	"io"
)

// ObjectStorage defines the interface for thumbnail object storage.
type ObjectStorage interface {
	// Upload stores an object under key. cacheControl is sent as the
	// object's Cache-Control header; empty means none.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType, cacheControl string) error

	// Download retrieves an object from storage
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// GetURL returns the public URL for accessing an object
	GetURL(key string) string

	// Delete deletes an object from storage
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)
}
