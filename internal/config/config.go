package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cache backends understood by CACHE_BACKEND.
const (
	CacheNone      = "none"
	CacheFirestore = "firestore"
	CacheRedis     = "redis"
)

type Config struct {
	Port     string
	LogLevel slog.Level

	FlippBaseURL   string
	FlippLocale    string
	FlippRateLimit float64

	NominatimBaseURL     string
	NominatimRateLimit   float64
	GooglePlacesAPIKey   string
	PlaceSearchUserAgent string

	RequestTimeout   time.Duration
	MaxRetries       int
	FetchConcurrency int

	CacheBackend  string
	ProjectID     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	CacheTTL      time.Duration

	RetailerSources     []string
	RetailerSourcesPath string
	KeywordsConfigPath  string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		slog.Info("Defaulting to port", "port", port)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", os.Getenv("LOG_LEVEL"), err)
	}

	flippRate, err := getFloat("FLIPP_RATE_LIMIT", 10)
	if err != nil {
		return nil, err
	}
	nominatimRate, err := getFloat("NOMINATIM_RATE_LIMIT", 1)
	if err != nil {
		return nil, err
	}
	requestTimeout, err := getDuration("REQUEST_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	maxRetries, err := getInt("MAX_RETRIES", 1)
	if err != nil {
		return nil, err
	}
	concurrency, err := getInt("FETCH_CONCURRENCY", 8)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		return nil, fmt.Errorf("invalid FETCH_CONCURRENCY %d: must be at least 1", concurrency)
	}
	cacheTTL, err := getDuration("CACHE_TTL", "30m")
	if err != nil {
		return nil, err
	}
	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	if redisDB < 0 {
		return nil, fmt.Errorf("invalid REDIS_DB %d: must not be negative", redisDB)
	}

	backend := strings.ToLower(getEnv("CACHE_BACKEND", CacheNone))
	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	switch backend {
	case CacheNone, CacheRedis:
	case CacheFirestore:
		if projectID == "" {
			return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT environment variable is required when CACHE_BACKEND=firestore")
		}
	default:
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q: want none, firestore or redis", backend)
	}

	placesKey := os.Getenv("GOOGLE_PLACES_API_KEY")
	if placesKey == "" {
		slog.Info("GOOGLE_PLACES_API_KEY not set, branch resolution will use Nominatim")
	}

	return &Config{
		Port:                 port,
		LogLevel:             level,
		FlippBaseURL:         strings.TrimSuffix(getEnv("FLIPP_BASE_URL", "https://backflipp.wishabi.com/flipp"), "/"),
		FlippLocale:          getEnv("FLIPP_LOCALE", "en-us"),
		FlippRateLimit:       flippRate,
		NominatimBaseURL:     strings.TrimSuffix(getEnv("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org"), "/"),
		NominatimRateLimit:   nominatimRate,
		GooglePlacesAPIKey:   placesKey,
		PlaceSearchUserAgent: getEnv("PLACE_SEARCH_USER_AGENT", "grocery-deals/1.0"),
		RequestTimeout:       requestTimeout,
		MaxRetries:           maxRetries,
		FetchConcurrency:     concurrency,
		CacheBackend:         backend,
		ProjectID:            projectID,
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              redisDB,
		RedisPrefix:          getEnv("REDIS_PREFIX", "coupons:"),
		CacheTTL:             cacheTTL,
		RetailerSources:      splitList(os.Getenv("RETAILER_SOURCES")),
		RetailerSourcesPath:  os.Getenv("RETAILER_SOURCES_PATH"),
		KeywordsConfigPath:   os.Getenv("KEYWORDS_CONFIG_PATH"),
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return parsed, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return parsed, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
