package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode      Mode   `yaml:"mode"`
	HTTPAddr  string `yaml:"http_addr"`
	PublicURL string `yaml:"public_url"`

	DBDriver string `yaml:"db_driver"`
	DBDSN    string `yaml:"db_dsn"`

	BlobDriver      string `yaml:"blob_driver"`    // fs|gcs
	BlobBasePath    string `yaml:"blob_base_path"` // fs
	GCSBucket       string `yaml:"gcs_bucket"`
	GCSCDNDomain    string `yaml:"gcs_cdn_domain"`
	GCSEmulatorHost string `yaml:"gcs_emulator_host"`
	MaxAssetBytes   int64  `yaml:"max_asset_bytes"`
	ServeAssets     bool   `yaml:"serve_assets"` // fs driver: expose blobs at /assets

	CacheURL string        `yaml:"cache_url"` // redis://...; empty disables the response cache
	CacheTTL time.Duration `yaml:"cache_ttl"`

	PreviewSecret string        `yaml:"preview_secret"`
	PreviewTTL    time.Duration `yaml:"preview_ttl"`

	LogMode  string `yaml:"log_mode"`
	LogLevel string `yaml:"log_level"`

	CORSOriginsOnline  []string `yaml:"cors_origins_online"`
	CORSOriginsOffline []string `yaml:"cors_origins_offline"`
}

// AssetBaseURL is where the fs blob driver's files are served.
func (c Config) AssetBaseURL() string {
	return strings.TrimSuffix(c.PublicURL, "/") + "/assets"
}

// CORSOrigins returns the origin list for the current mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

// Load reads the environment and then overlays the YAML file named by
// CONFIG_FILE, if any. Values set in the file win.
func Load() (Config, error) {
	cfg := FromEnv()
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		return cfg, cfg.Validate()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported db_driver %q", c.DBDriver)
	}
	switch c.BlobDriver {
	case "fs":
	case "gcs":
		if c.GCSBucket == "" {
			return fmt.Errorf("config: gcs blob driver needs gcs_bucket")
		}
	default:
		return fmt.Errorf("config: unsupported blob_driver %q", c.BlobDriver)
	}
	if c.Mode == ModeOnline && len(c.PreviewSecret) < 16 {
		return fmt.Errorf("config: preview_secret must be set (16+ bytes) in online mode")
	}
	return nil
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	pub := envOr("PUBLIC_URL", "http://localhost:8080")
	logMode := "development"
	if mode == ModeOnline {
		logMode = "production"
	}
	return Config{
		Mode:            mode,
		HTTPAddr:        envOr("HTTP_ADDR", ":8080"),
		PublicURL:       pub,
		DBDriver:        envOr("DB_DRIVER", "sqlite"),
		DBDSN:           envOr("DB_DSN", ""),
		BlobDriver:      envOr("BLOB_DRIVER", "fs"),
		BlobBasePath:    envOr("BLOB_BASE_PATH", "./data"),
		GCSBucket:       os.Getenv("GCS_BUCKET"),
		GCSCDNDomain:    os.Getenv("GCS_CDN_DOMAIN"),
		GCSEmulatorHost: os.Getenv("GCS_EMULATOR_HOST"),
		MaxAssetBytes:   int64(envInt("MAX_ASSET_BYTES", 10<<20)),
		ServeAssets:     envBool("SERVE_ASSETS", true),

		CacheURL: os.Getenv("CACHE_URL"),
		CacheTTL: envDuration("CACHE_TTL", 5*time.Minute),

		// offline default keeps local runs working without setup
		PreviewSecret: envOr("PREVIEW_SECRET", offlineSecret(mode)),
		PreviewTTL:    envDuration("PREVIEW_TTL", 24*time.Hour),

		LogMode:  envOr("LOG_MODE", logMode),
		LogLevel: envOr("LOG_LEVEL", "info"),

		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://curriculum.mindengage.ai"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:3010,http://localhost:3020"),
	}
}

func offlineSecret(mode Mode) string {
	if mode == ModeOnline {
		return ""
	}
	return "offline-preview-secret-change-me"
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return v
	}
	return def
}
func envDuration(k string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return v
	}
	return def
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
