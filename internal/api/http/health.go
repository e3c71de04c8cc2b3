package http

import (
	"context"
	"sort"
	"time"

	nethttp "net/http"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

func Healthz(w nethttp.ResponseWriter, _ *nethttp.Request) { w.WriteHeader(nethttp.StatusOK) }

// ReadyzHandler reports 503 while any check fails.
func ReadyzHandler(checks map[string]Check) nethttp.HandlerFunc {
	names := make([]string, 0, len(checks))
	for n := range checks {
		names = append(names, n)
	}
	sort.Strings(names)
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := map[string]string{}
		code := nethttp.StatusOK
		for _, n := range names {
			if err := checks[n](ctx); err != nil {
				status[n] = err.Error()
				code = nethttp.StatusServiceUnavailable
				continue
			}
			status[n] = "ok"
		}
		respondJSON(w, code, status)
	}
}
