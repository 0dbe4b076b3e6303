package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrInvalidPath  = errors.New("invalid blob path")
)

// AllowImage lists extensions both preview decoding and every provider accept.
var AllowImage = []string{".jpg", ".jpeg", ".png", ".webp"}

// BlobStore holds entry images and previews under slash-separated relative paths.
type BlobStore interface {
	Write(ctx context.Context, relPath string, r io.Reader) error
	Open(ctx context.Context, relPath string) (io.ReadCloser, error)
	// Stat returns the blob size; ErrBlobNotFound if absent.
	Stat(ctx context.Context, relPath string) (int64, error)
	Delete(ctx context.Context, relPath string) error
}

// ReadAll reads a whole blob into memory.
func ReadAll(ctx context.Context, store BlobStore, relPath string) ([]byte, error) {
	rc, err := store.Open(ctx, relPath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// CleanPath normalises relPath and rejects anything escaping the store root.
func CleanPath(relPath string) (string, error) {
	p := strings.TrimSpace(strings.ReplaceAll(relPath, "\\", "/"))
	if p == "" {
		return "", ErrInvalidPath
	}
	p = path.Clean("/" + p)[1:]
	if p == "" || p == "." {
		return "", ErrInvalidPath
	}
	return p, nil
}

// IsAllowedImage reports whether filename has an image extension we accept.
func IsAllowedImage(filename string) bool {
	ext := strings.ToLower(path.Ext(filename))
	for _, allowed := range AllowImage {
		if ext == allowed {
			return true
		}
	}
	return false
}
