// internal/api/http/assets.go
package http

import (
	"io"
	"mime"
	"path"
	"strings"

	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-curriculum/internal/logger"
	"github.com/mind-engage/mindengage-curriculum/internal/storage"
)

// maxFormBytes is the in-memory part of a multipart upload; the rest
// spills to temp files.
const maxFormBytes = 32 << 20

// POST /admin/assets (multipart, field "file")
func UploadAssetHandler(up *storage.AssetUploader, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		f, fh, err := r.FormFile("file")
		if err != nil {
			badRequest(w, "file required")
			return
		}
		defer f.Close()

		a, err := up.Put(r.Context(), fh.Filename, f)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		respondJSON(w, nethttp.StatusCreated, a)
	}
}

// GET /assets/* returns the blob at whatever follows /assets/.
func ServeAssetsHandler(bs storage.BlobStore, log *logger.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		rc, err := bs.Get(r.Context(), key)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		defer rc.Close()
		ct := mime.TypeByExtension(path.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		// keys are content addressed
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		_, _ = io.Copy(w, rc)
	}
}
