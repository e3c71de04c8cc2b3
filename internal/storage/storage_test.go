package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newFS(t *testing.T) *FSStore {
	t.Helper()
	s, err := NewFSStore(t.TempDir(), "http://localhost:8080/assets")
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFSStoreRoundTrip(t *testing.T) {
	s := newFS(t)
	ctx := context.Background()
	key, err := s.Put(ctx, "/a/../b/c.txt", strings.NewReader("hello"), "text/plain")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if key != "b/c.txt" {
		t.Fatalf("key = %q", key)
	}
	rc, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "hello" {
		t.Fatalf("content = %q", b)
	}
	if got := s.PublicURL(key); got != "http://localhost:8080/assets/b/c.txt" {
		t.Fatalf("PublicURL = %q", got)
	}

	entries, _ := os.ReadDir(filepath.Join(s.Dir(), "b"))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestFSStoreKeysStayInside(t *testing.T) {
	s := newFS(t)
	key, err := s.Put(context.Background(), "../../escape.txt", strings.NewReader("x"), "")
	if err != nil {
		t.Fatal(err)
	}
	if key != "escape.txt" {
		t.Fatalf("key = %q", key)
	}
	if _, err := s.Put(context.Background(), "  ", strings.NewReader("x"), ""); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("blank key err = %v", err)
	}
	if _, err := s.Get(context.Background(), "missing.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}

func TestAssetUploader(t *testing.T) {
	s := newFS(t)
	u := NewAssetUploader(s, 16)
	ctx := context.Background()

	a, err := u.Put(ctx, "Figure.PNG", bytes.NewReader([]byte("png-bytes")))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(a.Key, "images/") || !strings.HasSuffix(a.Key, ".png") || len(a.Key) != len("images/")+64+len(".png") {
		t.Fatalf("key = %q", a.Key)
	}
	if a.ContentType != "image/png" || a.Size != 9 {
		t.Fatalf("asset = %+v", a)
	}
	if !strings.HasPrefix(a.URL, u.TrustedBase()+"/") {
		t.Fatalf("url %q not under trusted base %q", a.URL, u.TrustedBase())
	}

	url2, err := u.Upload(ctx, "other.png", bytes.NewReader([]byte("png-bytes")))
	if err != nil {
		t.Fatal(err)
	}
	if url2 != a.URL {
		t.Fatalf("same bytes got different urls: %q vs %q", a.URL, url2)
	}

	for name, body := range map[string]string{
		"notes.pdf": "data",
		"empty.png": "",
		"big.png":   strings.Repeat("x", 17),
	} {
		if _, err := u.Upload(ctx, name, strings.NewReader(body)); !errors.Is(err, ErrUnsupportedAsset) {
			t.Errorf("%s: err = %v, want ErrUnsupportedAsset", name, err)
		}
	}
}

func TestGCSPublicURL(t *testing.T) {
	s := &GCSStore{cfg: GCSConfig{Bucket: "curriculum-assets"}}
	if got := s.PublicURL("images/x.png"); got != "https://storage.googleapis.com/curriculum-assets/images/x.png" {
		t.Fatalf("PublicURL = %q", got)
	}
	s.cfg.CDNDomain = "cdn.example.com"
	if got := s.PublicURL("/images/x.png"); got != "https://cdn.example.com/images/x.png" {
		t.Fatalf("PublicURL with cdn = %q", got)
	}
}
