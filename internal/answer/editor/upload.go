package editor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mind-engage/mindengage-curriculum/internal/answer"
)

var (
	ErrUploadFailed = errors.New("editor: image upload failed")
	ErrNoUploader   = errors.New("editor: no uploader configured")
)

// Uploader stores an image with the external asset host and returns its
// public URL.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
}

// UploadResult reports what happened to an upload. Applied is false when
// the target block was deleted or retyped while the upload was in flight,
// or when a newer upload for the same block superseded it.
type UploadResult struct {
	Block   answer.ID `json:"block"`
	URL     string    `json:"url,omitempty"`
	Applied bool      `json:"applied"`
}

// UploadImage uploads r and, if block id is still an image when the upload
// completes, sets its URL. The controller lock is not held during the
// network call. Deleting or retyping the block cancels the upload.
func (c *Controller) UploadImage(ctx context.Context, id answer.ID, name string, r io.Reader) (UploadResult, error) {
	res := UploadResult{Block: id}

	c.mu.Lock()
	if c.uploader == nil {
		c.mu.Unlock()
		return res, ErrNoUploader
	}
	b, ok := c.seq.Get(id)
	if !ok || b.Kind() != answer.KindImage {
		c.mu.Unlock()
		return res, nil
	}
	c.cancelUpload(id)
	uctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.uploadN++
	token := c.uploadN
	c.uploads[id] = pendingUpload{cancel: cancel, token: token}
	c.mu.Unlock()

	url, err := c.uploader.Upload(uctx, name, r)

	c.mu.Lock()
	defer c.mu.Unlock()
	current := false
	if p, ok := c.uploads[id]; ok && p.token == token {
		delete(c.uploads, id)
		current = true
	}
	if err != nil {
		if !current {
			c.log.Debug("discarding cancelled upload", "block", id, "error", err)
			return res, nil
		}
		c.log.Warn("image upload failed", "block", id, "name", name, "error", err)
		return res, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	res.URL = url
	if !current || !c.seq.SetImage(id, answer.Image{URL: url}) {
		c.log.Debug("discarding stale upload", "block", id)
		return res, nil
	}
	res.Applied = true
	return res, nil
}

// Close cancels every in-flight upload.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.uploads {
		c.cancelUpload(id)
	}
}

func (c *Controller) cancelUpload(id answer.ID) {
	if p, ok := c.uploads[id]; ok {
		p.cancel()
		delete(c.uploads, id)
	}
}
