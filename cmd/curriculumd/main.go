package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/mind-engage/mindengage-curriculum/internal/api/http"
	"github.com/mind-engage/mindengage-curriculum/internal/app"
	"github.com/mind-engage/mindengage-curriculum/internal/cache"
	"github.com/mind-engage/mindengage-curriculum/internal/config"
	"github.com/mind-engage/mindengage-curriculum/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger config comes from cfg; fall back to a default one
		l, _ := logger.New("development", "info")
		l.Fatal("config", "error", err)
	}
	log, err := logger.New(cfg.LogMode, cfg.LogLevel)
	if err != nil {
		panic(err)
	}

	// --- Stores ---
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	a, err := app.New(ctx, cfg, log, true)
	cancel()
	if err != nil {
		log.Fatal("startup failed", "error", err)
	}
	defer a.Close()
	deps := a.Deps()

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, api.RequestLogger(log), middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "X-Cache"},
		AllowCredentials: cfg.Mode == config.ModeOnline,
		MaxAge:           300,
	}))

	r.Get("/healthz", api.Healthz)
	r.Get("/readyz", api.ReadyzHandler(a.Ready()))

	r.Group(func(tr chi.Router) {
		tr.Use(middleware.Timeout(30 * time.Second))

		tr.Route("/api", func(ar chi.Router) {
			ar.Use(cache.Public(a.Cache, cfg.CacheTTL, log))
			api.MountAPI(ar, deps)
		})
		api.MountPreview(tr, deps)

		if cfg.BlobDriver == "fs" && cfg.ServeAssets {
			tr.Route("/assets", func(ar chi.Router) { api.MountAssets(ar, deps) })
		}

		tr.Route("/admin", func(ar chi.Router) {
			ar.Use(cache.InvalidateOnWrite(a.Cache, log))
			api.MountAdmin(ar, deps)
		})
	})
	// long-lived; outside the request timeout
	api.MountSession(r, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		log.Info("shutting down")
		sctx, scancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer scancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn("shutdown", "error", err)
		}
	}()

	log.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver, "blob", cfg.BlobDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", "error", err)
	}
}
