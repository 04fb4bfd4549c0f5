package adapter

import (
	"context"
	"io"
)

// MediaStore is the object-storage collaborator for uploaded media
// (curriculum images, screenshots, audio blobs).
type MediaStore interface {
	// Put stores the object under key and returns a public URL for it.
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	// URL resolves a previously stored key to its public URL.
	URL(key string) string
}
