package cache

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mind-engage/mindengage-curriculum/internal/logger"
)

// Public sets Cache-Control on successful GETs and, when c is non-nil,
// serves them from Redis.
func Public(c *Cache, ttl time.Duration, log *logger.Logger) func(http.Handler) http.Handler {
	cacheControl := fmt.Sprintf("public, max-age=%d", int(ttl.Seconds()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			w = &publicWriter{ResponseWriter: w, value: cacheControl}
			if c == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			path := r.URL.RequestURI()
			e, ver, hit, err := c.Get(ctx, path)
			if err != nil {
				log.Warn("cache lookup failed", "path", path, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if hit {
				w.Header().Set("Content-Type", e.ContentType)
				w.Header().Set("X-Cache", "HIT")
				_, _ = w.Write(e.Body)
				return
			}

			var buf bytes.Buffer
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&buf)
			w.Header().Set("X-Cache", "MISS")
			next.ServeHTTP(ww, r)

			if ww.Status() != http.StatusOK {
				return
			}
			entry := Entry{ContentType: ww.Header().Get("Content-Type"), Body: buf.Bytes()}
			if err := c.Set(ctx, ver, path, entry); err != nil {
				log.Warn("cache store failed", "path", path, "error", err)
			}
		})
	}
}

// publicWriter adds the public Cache-Control header once the status is
// known, and only to 2xx responses. A header set by the handler wins.
type publicWriter struct {
	http.ResponseWriter
	value       string
	wroteHeader bool
}

func (w *publicWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		if code >= 200 && code < 300 && w.Header().Get("Cache-Control") == "" {
			w.Header().Set("Cache-Control", w.value)
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *publicWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *publicWriter) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *publicWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// InvalidateOnWrite bumps the content version after every successful
// non-GET request.
func InvalidateOnWrite(c *Cache, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			if ww.Status() < 400 {
				if err := c.Bump(r.Context()); err != nil {
					log.Warn("cache invalidation failed", "error", err)
				}
			}
		})
	}
}
