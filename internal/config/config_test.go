package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"MODE", "DB_DRIVER", "BLOB_DRIVER", "CACHE_TTL", "CONFIG_FILE", "CORS_ORIGINS_OFFLINE"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	if cfg.Mode != ModeOffline || cfg.DBDriver != "sqlite" || cfg.BlobDriver != "fs" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Fatalf("CacheTTL = %v", cfg.CacheTTL)
	}
	if cfg.PreviewSecret == "" {
		t.Fatal("offline mode should have a preview secret")
	}
	if diff := cmp.Diff([]string{"http://localhost:3000", "http://localhost:3010", "http://localhost:3020"}, cfg.CORSOrigins()); diff != "" {
		t.Fatalf("offline origins (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("PUBLIC_URL", "https://curriculum.example.com/")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("CORS_ORIGINS_ONLINE", " https://a.example.com , ,https://b.example.com")
	t.Setenv("PREVIEW_SECRET", "")
	t.Setenv("SERVE_ASSETS", "no")

	cfg := FromEnv()
	if cfg.CacheTTL != 90*time.Second || cfg.ServeAssets || cfg.LogMode != "production" {
		t.Fatalf("overrides = %+v", cfg)
	}
	if got := cfg.AssetBaseURL(); got != "https://curriculum.example.com/assets" {
		t.Fatalf("AssetBaseURL = %q", got)
	}
	if diff := cmp.Diff([]string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins()); diff != "" {
		t.Fatalf("online origins (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("online mode without preview secret accepted")
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curriculum.yaml")
	body := "db_driver: postgres\ndb_dsn: postgres://db/curriculum\ncache_ttl: 2m\nblob_driver: gcs\ngcs_bucket: assets\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MODE", "offline")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBDriver != "postgres" || cfg.DBDSN != "postgres://db/curriculum" || cfg.CacheTTL != 2*time.Minute || cfg.GCSBucket != "assets" {
		t.Fatalf("overlay not applied: %+v", cfg)
	}
}

func TestLoadRejectsBadDriver(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "mysql")
	if _, err := Load(); err == nil {
		t.Fatal("mysql accepted")
	}
}
