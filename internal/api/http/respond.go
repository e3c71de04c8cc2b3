// Package http holds the HTTP handlers of the curriculum service. Routes
// are assembled in cmd/curriculumd.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	nethttp "net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mind-engage/mindengage-curriculum/internal/curriculum"
	"github.com/mind-engage/mindengage-curriculum/internal/grading"
	"github.com/mind-engage/mindengage-curriculum/internal/logger"
	"github.com/mind-engage/mindengage-curriculum/internal/preview"
	"github.com/mind-engage/mindengage-curriculum/internal/schema"
	"github.com/mind-engage/mindengage-curriculum/internal/storage"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 4 << 20

type errorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func respondJSON(w nethttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps domain errors to a status and a JSON body. Anything
// unrecognized is a 500 and gets logged with the request ID.
func writeError(w nethttp.ResponseWriter, r *nethttp.Request, log *logger.Logger, err error) {
	var se *schema.Error
	switch {
	case errors.As(err, &se):
		respondJSON(w, nethttp.StatusBadRequest, errorBody{Error: "invalid payload", Details: se.Details})
	case errors.Is(err, curriculum.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		respondJSON(w, nethttp.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, curriculum.ErrInvalid), errors.Is(err, storage.ErrUnsupportedAsset), errors.Is(err, storage.ErrInvalidKey),
		errors.Is(err, grading.ErrBadResponse):
		respondJSON(w, nethttp.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, preview.ErrInvalidToken):
		respondJSON(w, nethttp.StatusNotFound, errorBody{Error: "preview link is invalid or expired"})
	default:
		log.Error("request failed", "method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "error", err)
		respondJSON(w, nethttp.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func badRequest(w nethttp.ResponseWriter, msg string) {
	respondJSON(w, nethttp.StatusBadRequest, errorBody{Error: msg})
}

// readBody reads a bounded request body.
func readBody(w nethttp.ResponseWriter, r *nethttp.Request) ([]byte, error) {
	return io.ReadAll(nethttp.MaxBytesReader(w, r.Body, maxBodyBytes))
}

func listOpts(r *nethttp.Request) curriculum.ListOpts {
	q := r.URL.Query()
	return curriculum.ListOpts{
		Q:      strings.TrimSpace(q.Get("q")),
		Limit:  parseIntDefault(q.Get("limit"), curriculum.DefaultLimit),
		Offset: parseIntDefault(q.Get("offset"), 0),
	}.Clamped()
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
