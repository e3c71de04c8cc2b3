package storage

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"
)

var ErrUnsupportedAsset = errors.New("unsupported asset")

const DefaultMaxAssetBytes = 10 << 20

var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

// IsImageName reports whether name has an accepted image extension.
func IsImageName(name string) bool {
	_, ok := imageTypes[strings.ToLower(filepath.Ext(name))]
	return ok
}

type Asset struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// AssetUploader stores images under a content address, so uploading the
// same bytes twice yields the same URL.
type AssetUploader struct {
	store    BlobStore
	maxBytes int64
}

func NewAssetUploader(store BlobStore, maxBytes int64) *AssetUploader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAssetBytes
	}
	return &AssetUploader{store: store, maxBytes: maxBytes}
}

// Put reads an image named name and stores it as images/<blake2b-256><ext>.
func (u *AssetUploader) Put(ctx context.Context, name string, r io.Reader) (Asset, error) {
	ext := strings.ToLower(filepath.Ext(name))
	ct, ok := imageTypes[ext]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %q is not an image", ErrUnsupportedAsset, name)
	}
	data, err := io.ReadAll(io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		return Asset{}, err
	}
	switch {
	case len(data) == 0:
		return Asset{}, fmt.Errorf("%w: %q is empty", ErrUnsupportedAsset, name)
	case int64(len(data)) > u.maxBytes:
		return Asset{}, fmt.Errorf("%w: %q exceeds %d bytes", ErrUnsupportedAsset, name, u.maxBytes)
	}
	sum := blake2b.Sum256(data)
	key, err := u.store.Put(ctx, "images/"+hex.EncodeToString(sum[:])+ext, bytes.NewReader(data), ct)
	if err != nil {
		return Asset{}, err
	}
	return Asset{Key: key, URL: u.store.PublicURL(key), ContentType: ct, Size: int64(len(data))}, nil
}

// Upload stores an image and returns its public URL.
func (u *AssetUploader) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	a, err := u.Put(ctx, name, r)
	if err != nil {
		return "", err
	}
	return a.URL, nil
}

// TrustedBase is the URL prefix of every asset this uploader produces.
func (u *AssetUploader) TrustedBase() string { return u.store.BaseURL() }
