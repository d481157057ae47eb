// Package blob stores uploaded files: source PDFs and cover images.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Open for a missing key.
var ErrNotFound = errors.New("blob: not found")

// Ref locates a stored object.
type Ref struct {
	Key  string
	URL  string
	Size int64
}

// Store is a flat key/object store.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Ref, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// DocumentKey is the key a document's PDF is stored under.
func DocumentKey(documentID string) string {
	return path.Join("documents", documentID, "source.pdf")
}

// CoverKey is the key a document's cover image is stored under. The
// extension of filename is kept.
func CoverKey(documentID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join("documents", documentID, "cover"+ext)
}

// ContentType guesses a MIME type from a file name.
func ContentType(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// ReadAll opens key and reads it fully.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	rc, err := s.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", key, err)
	}
	return data, nil
}

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || path.Clean(key) != key || strings.HasPrefix(key, "..") {
		return fmt.Errorf("blob: invalid key %q", key)
	}
	return nil
}

// New returns an S3Store when s3cfg is complete and an FSStore rooted at
// dir otherwise.
func New(ctx context.Context, s3cfg S3Config, dir string) (Store, error) {
	s3s, err := NewS3Store(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	if s3s != nil {
		return s3s, nil
	}
	return NewFSStore(dir)
}
