package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"drobe-backend/internal/domain/ports/adapter"
)

var _ adapter.MediaStore = (*FSStore)(nil)

// FSStore keeps uploaded media on the local filesystem under a media root
// and serves it from a base URL. It stands in for the production object
// store behind the same port.
type FSStore struct {
	root    string
	baseURL string
}

func NewFSStore(root, baseURL string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("media root: %w", err)
	}
	return &FSStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *FSStore) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("empty media key")
	}
	dst := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("media dir: %w", err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("media create: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("media write: %w", err)
	}
	return s.URL(strings.TrimPrefix(clean, "/")), nil
}

func (s *FSStore) URL(key string) string {
	return s.baseURL + "/" + strings.TrimPrefix(key, "/")
}
