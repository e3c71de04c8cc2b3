package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrInvalidKey = errors.New("invalid blob key")
)

type BlobStore interface {
	// Put stores r under key and returns the canonical key.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// PublicURL is the URL a browser fetches key from.
	PublicURL(key string) string
	// BaseURL prefixes every PublicURL; assets under it are trusted.
	BaseURL() string
}

// cleanKey turns key into a relative slash path that cannot escape the
// store root.
func cleanKey(key string) (string, error) {
	k := strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(key)), "/")
	if k == "" || k == "." {
		return "", ErrInvalidKey
	}
	return k, nil
}

func joinURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + key
}
