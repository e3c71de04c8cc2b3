package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetry = 50 * time.Millisecond

// FSStore keeps blobs under a base directory. Writes from several
// processes sharing the directory are serialized by a lock file, and each
// blob appears atomically through a rename.
type FSStore struct {
	base       string
	publicBase string
	lock       *flock.Flock
}

// NewFSStore roots the store at base; publicBase is the URL prefix the
// HTTP server serves base under.
func NewFSStore(base, publicBase string) (*FSStore, error) {
	if base == "" {
		base = "./data"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{
		base:       base,
		publicBase: publicBase,
		lock:       flock.New(filepath.Join(base, ".lock")),
	}, nil
}

func (s *FSStore) path(key string) (string, string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", "", err
	}
	return k, filepath.Join(s.base, filepath.FromSlash(k)), nil
}

func (s *FSStore) Put(ctx context.Context, key string, r io.Reader, _ string) (string, error) {
	k, dst, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	locked, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return "", fmt.Errorf("lock blob store: %w", err)
	}
	if !locked {
		return "", errors.New("lock blob store: not acquired")
	}
	defer s.lock.Unlock()
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", err
	}
	return k, nil
}

func (s *FSStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	_, p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return f, err
}

func (s *FSStore) PublicURL(key string) string {
	k, err := cleanKey(key)
	if err != nil {
		return ""
	}
	return joinURL(s.publicBase, k)
}

func (s *FSStore) BaseURL() string { return s.publicBase }

// Dir is the directory blobs are written to.
func (s *FSStore) Dir() string { return s.base }
