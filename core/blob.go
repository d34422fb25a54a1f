package core

import (
	"context"
	"io"
)

// BlobStore keeps uploaded files (avatars) and serves them from a public URL.
type BlobStore interface {
	// Put stores the content read from r under key and returns its public URL.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}
