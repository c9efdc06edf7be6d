package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "LOG_LEVEL", "FLIPP_BASE_URL", "REQUEST_TIMEOUT", "MAX_RETRIES",
		"FETCH_CONCURRENCY", "CACHE_BACKEND", "CACHE_TTL", "RETAILER_SOURCES", "GOOGLE_PLACES_API_KEY",
		"REDIS_PASSWORD", "REDIS_DB", "REDIS_PREFIX", "RETAILER_SOURCES_PATH"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("Expected info level, got %s", cfg.LogLevel)
	}
	if cfg.FlippBaseURL != "https://backflipp.wishabi.com/flipp" {
		t.Errorf("Unexpected FlippBaseURL %s", cfg.FlippBaseURL)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("Expected default 5s timeout, got %s", cfg.RequestTimeout)
	}
	if cfg.MaxRetries != 1 {
		t.Errorf("Expected default MaxRetries 1, got %d", cfg.MaxRetries)
	}
	if cfg.FetchConcurrency != 8 {
		t.Errorf("Expected default FetchConcurrency 8, got %d", cfg.FetchConcurrency)
	}
	if cfg.CacheBackend != CacheNone {
		t.Errorf("Expected cache backend none, got %s", cfg.CacheBackend)
	}
	if cfg.CacheTTL != 30*time.Minute {
		t.Errorf("Expected default CacheTTL 30m, got %s", cfg.CacheTTL)
	}
	if len(cfg.RetailerSources) != 0 || cfg.RetailerSourcesPath != "" {
		t.Errorf("Expected no retailer sources, got %v %q", cfg.RetailerSources, cfg.RetailerSourcesPath)
	}
	if cfg.RedisPassword != "" || cfg.RedisDB != 0 || cfg.RedisPrefix != "coupons:" {
		t.Errorf("Unexpected redis defaults %q %d %q", cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
	}
}

func TestLoad_Custom(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("FLIPP_BASE_URL", "http://localhost:1234/flipp/")
	t.Setenv("REQUEST_TIMEOUT", "2s")
	t.Setenv("RETAILER_SOURCES", " Aldi, heb ,,")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("REDIS_PASSWORD", "s3cret")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_PREFIX", "deals:")
	t.Setenv("RETAILER_SOURCES_PATH", "/etc/deals/sources.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected 9090, got %s", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("Expected debug level, got %s", cfg.LogLevel)
	}
	if cfg.FlippBaseURL != "http://localhost:1234/flipp" {
		t.Errorf("Expected trailing slash trimmed, got %s", cfg.FlippBaseURL)
	}
	if cfg.RequestTimeout != 2*time.Second {
		t.Errorf("Expected 2s, got %s", cfg.RequestTimeout)
	}
	if len(cfg.RetailerSources) != 2 || cfg.RetailerSources[0] != "aldi" || cfg.RetailerSources[1] != "heb" {
		t.Errorf("Unexpected retailer sources %v", cfg.RetailerSources)
	}
	if cfg.CacheBackend != CacheRedis || cfg.RedisAddr != "cache:6379" {
		t.Errorf("Unexpected cache config %s %s", cfg.CacheBackend, cfg.RedisAddr)
	}
	if cfg.RedisPassword != "s3cret" || cfg.RedisDB != 2 || cfg.RedisPrefix != "deals:" {
		t.Errorf("Unexpected redis config %q %d %q", cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
	}
	if cfg.RetailerSourcesPath != "/etc/deals/sources.json" {
		t.Errorf("Unexpected retailer sources path %q", cfg.RetailerSourcesPath)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"Bad timeout", "REQUEST_TIMEOUT", "soon"},
		{"Bad retries", "MAX_RETRIES", "many"},
		{"Zero concurrency", "FETCH_CONCURRENCY", "0"},
		{"Bad rate", "FLIPP_RATE_LIMIT", "fast"},
		{"Bad backend", "CACHE_BACKEND", "memcached"},
		{"Bad log level", "LOG_LEVEL", "loud"},
		{"Bad redis db", "REDIS_DB", "first"},
		{"Negative redis db", "REDIS_DB", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() should return error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_FirestoreRequiresProject(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "firestore")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")

	if _, err := Load(); err == nil {
		t.Error("Load() should return an error when GOOGLE_CLOUD_PROJECT is not set for firestore")
	}

	t.Setenv("GOOGLE_CLOUD_PROJECT", "test-project")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.ProjectID != "test-project" {
		t.Errorf("Expected test-project, got %s", cfg.ProjectID)
	}
}
