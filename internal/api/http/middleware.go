package http

import (
	"time"

	nethttp "net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mind-engage/mindengage-curriculum/internal/curriculum"
	"github.com/mind-engage/mindengage-curriculum/internal/logger"
)

// RequestLogger logs one line per request through zap.
func RequestLogger(log *logger.Logger) func(nethttp.Handler) nethttp.Handler {
	return func(next nethttp.Handler) nethttp.Handler {
		return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// RequireIDs rejects requests whose named path params are not entity IDs.
// It must be mounted where chi has already resolved those params.
func RequireIDs(params ...string) func(nethttp.Handler) nethttp.Handler {
	return func(next nethttp.Handler) nethttp.Handler {
		return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			for _, p := range params {
				v := chi.URLParam(r, p)
				if v == "" {
					continue
				}
				if !curriculum.ValidID(v) {
					badRequest(w, p+" is not a valid id")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
