package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path"

	"github.com/mind-engage/mindengage-curriculum/internal/answer"
	"github.com/mind-engage/mindengage-curriculum/internal/answer/editor"
	"github.com/mind-engage/mindengage-curriculum/internal/storage"
)

// ErrNoAttachment is returned by Attachments for an unknown name.
var ErrNoAttachment = errors.New("attachment not found")

// Attachments opens a file referenced by an imported document.
type Attachments func(name string) (io.ReadCloser, error)

// DirAttachments serves attachments from dir. Names cannot leave dir.
func DirAttachments(dir string) Attachments {
	fsys := os.DirFS(dir)
	return func(name string) (io.ReadCloser, error) {
		if !fs.ValidPath(name) {
			return nil, fmt.Errorf("%w: %s", ErrNoAttachment, name)
		}
		f, err := fsys.Open(name)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoAttachment, name)
		}
		return f, err
	}
}

// FormAttachments serves the files of a multipart form, matched by their
// base name.
func FormAttachments(files []*multipart.FileHeader) Attachments {
	byName := make(map[string]*multipart.FileHeader, len(files))
	for _, fh := range files {
		byName[path.Base(fh.Filename)] = fh
	}
	return func(name string) (io.ReadCloser, error) {
		fh, ok := byName[path.Base(name)]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoAttachment, name)
		}
		return fh.Open()
	}
}

// Resolution reports what happened to each image ref of a document.
type Resolution struct {
	Uploaded map[string]string `json:"uploaded"` // ref -> URL
	Missing  []string          `json:"missing,omitempty"`
	Rejected []string          `json:"rejected,omitempty"`
}

// ResolveAttachments uploads every referenced attachment through up and
// rewrites the document so images carry URLs instead of refs. Refs with
// no attachment, or whose file is not an accepted image, end up empty.
func ResolveAttachments(ctx context.Context, doc answer.Document, files Attachments, up editor.Uploader, trustedBase string) (answer.Document, Resolution, error) {
	res := Resolution{Uploaded: map[string]string{}}
	for _, ref := range answer.Refs(doc.Blocks) {
		if files == nil || up == nil {
			res.Missing = append(res.Missing, ref)
			continue
		}
		rc, err := files(ref)
		if errors.Is(err, ErrNoAttachment) {
			res.Missing = append(res.Missing, ref)
			continue
		}
		if err != nil {
			return doc, res, fmt.Errorf("open attachment %s: %w", ref, err)
		}
		url, err := up.Upload(ctx, ref, rc)
		rc.Close()
		if errors.Is(err, storage.ErrUnsupportedAsset) {
			res.Rejected = append(res.Rejected, ref)
			continue
		}
		if err != nil {
			return doc, res, fmt.Errorf("upload attachment %s: %w", ref, err)
		}
		res.Uploaded[ref] = url
	}
	doc.Blocks = answer.ResolveRefs(doc.Blocks, res.Uploaded, trustedBase)
	return doc, res, nil
}
