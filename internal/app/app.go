// Package app wires configuration into the stores and services shared by
// the server and the admin CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"

	api "github.com/mind-engage/mindengage-curriculum/internal/api/http"
	"github.com/mind-engage/mindengage-curriculum/internal/cache"
	"github.com/mind-engage/mindengage-curriculum/internal/config"
	"github.com/mind-engage/mindengage-curriculum/internal/curriculum"
	"github.com/mind-engage/mindengage-curriculum/internal/db"
	"github.com/mind-engage/mindengage-curriculum/internal/events"
	"github.com/mind-engage/mindengage-curriculum/internal/grading"
	"github.com/mind-engage/mindengage-curriculum/internal/logger"
	"github.com/mind-engage/mindengage-curriculum/internal/preview"
	"github.com/mind-engage/mindengage-curriculum/internal/storage"
)

type App struct {
	Log      *logger.Logger
	Cfg      config.Config
	DB       *sql.DB
	Store    curriculum.Store
	Events   events.Log
	Blobs    storage.BlobStore
	Uploader *storage.AssetUploader
	Signer   *preview.Signer
	Cache    *cache.Cache // nil when no cache URL is configured

	closers []func() error
}

// New opens the database and blob store named by cfg. The cache is only
// connected when withCache is set; the CLI has no use for it.
func New(ctx context.Context, cfg config.Config, log *logger.Logger, withCache bool) (*App, error) {
	a := &App{Log: log, Cfg: cfg}

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	a.DB = dbh
	a.closers = append(a.closers, dbh.Close)
	a.Store = curriculum.NewSQLStore(dbh, cfg.DBDriver)
	a.Events = events.NewRepo(dbh)

	if err := a.openBlobs(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.Uploader = storage.NewAssetUploader(a.Blobs, cfg.MaxAssetBytes)

	if a.Signer, err = preview.NewSigner(cfg.PreviewSecret); err != nil {
		a.Close()
		return nil, err
	}

	if withCache && cfg.CacheURL != "" {
		c, err := cache.New(ctx, cfg.CacheURL, cfg.CacheTTL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Cache = c
		a.closers = append(a.closers, c.Close)
	}

	log.Info("app initialized",
		"db", cfg.DBDriver,
		"blob", cfg.BlobDriver,
		"asset_base", a.Blobs.BaseURL(),
		"cache", a.Cache != nil,
	)
	return a, nil
}

func (a *App) openBlobs(ctx context.Context) error {
	switch a.Cfg.BlobDriver {
	case "gcs":
		gs, err := storage.NewGCSStore(ctx, storage.GCSConfig{
			Bucket:       a.Cfg.GCSBucket,
			CDNDomain:    a.Cfg.GCSCDNDomain,
			EmulatorHost: a.Cfg.GCSEmulatorHost,
		})
		if err != nil {
			return fmt.Errorf("gcs blob store: %w", err)
		}
		a.Blobs = gs
		a.closers = append(a.closers, gs.Close)
	default:
		fs, err := storage.NewFSStore(a.Cfg.BlobBasePath, a.Cfg.AssetBaseURL())
		if err != nil {
			return fmt.Errorf("fs blob store: %w", err)
		}
		a.Blobs = fs
	}
	return nil
}

// Deps returns the handler dependencies.
func (a *App) Deps() api.Deps {
	d := api.Deps{
		Store:      a.Store,
		Events:     a.Events,
		Checker:    grading.NewChecker(),
		Signer:     a.Signer,
		Uploader:   a.Uploader,
		Blobs:      a.Blobs,
		PublicURL:  a.Cfg.PublicURL,
		PreviewTTL: a.Cfg.PreviewTTL,
		Origins:    a.Cfg.CORSOrigins(),
		Log:        a.Log,
	}
	if a.Cache != nil {
		// session saves bypass the admin write middleware
		d.AfterSave = a.Cache.Bump
	}
	return d
}

// Ready lists the dependency probes for /readyz.
func (a *App) Ready() map[string]api.Check {
	checks := map[string]api.Check{"db": a.DB.PingContext}
	if a.Cache != nil {
		checks["cache"] = a.Cache.HealthCheck
	}
	return checks
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
	a.Log.Sync()
}
