package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pauljones0/grocery-deals/internal/config"
	"github.com/pauljones0/grocery-deals/internal/models"
)

// Cache stores finished coupon lookups. Get returns models.ErrCacheMiss when
// no live entry exists.
type Cache interface {
	Get(ctx context.Context, key Key) (*models.Result, error)
	Set(ctx context.Context, key Key, result *models.Result) error
	Close() error
}

// Key identifies one lookup: postal code, query and optional coordinate.
type Key struct {
	PostalCode string
	Query      string
	Coordinate *models.Coordinate
}

// String renders the key canonically. Queries are case-folded and
// coordinates rounded to about 100m so nearby requests share an entry.
func (k Key) String() string {
	parts := []string{
		strings.ToUpper(strings.TrimSpace(k.PostalCode)),
		strings.ToLower(strings.TrimSpace(k.Query)),
	}
	if k.Coordinate != nil {
		parts = append(parts,
			strconv.FormatFloat(k.Coordinate.Lat, 'f', 3, 64),
			strconv.FormatFloat(k.Coordinate.Lng, 'f', 3, 64))
	}
	return strings.Join(parts, "|")
}

// ID is a fixed-length hash of the key, safe as a document id.
func (k Key) ID() string {
	hash := sha256.Sum256([]byte(k.String()))
	return hex.EncodeToString(hash[:])
}

// entry is the persisted form of a cached result.
type entry struct {
	Key       string          `json:"key" firestore:"key"`
	Coupons   []models.Coupon `json:"coupons" firestore:"coupons"`
	Errors    []string        `json:"errors" firestore:"errors"`
	CreatedAt time.Time       `json:"createdAt" firestore:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt" firestore:"expiresAt"`
}

func newEntry(key Key, result *models.Result, now time.Time, ttl time.Duration) entry {
	return entry{
		Key:       key.String(),
		Coupons:   result.Coupons,
		Errors:    result.Errors,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func (e entry) live(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

func (e entry) result() *models.Result {
	res := &models.Result{Coupons: e.Coupons, Errors: e.Errors}
	if res.Coupons == nil {
		res.Coupons = []models.Coupon{}
	}
	if res.Errors == nil {
		res.Errors = []string{}
	}
	return res
}

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) Get(context.Context, Key) (*models.Result, error) { return nil, models.ErrCacheMiss }
func (NoopCache) Set(context.Context, Key, *models.Result) error { return nil }
func (NoopCache) Close() error { return nil }

// New opens the cache backend selected by CACHE_BACKEND.
func New(ctx context.Context, cfg *config.Config) (Cache, error) {
	switch cfg.CacheBackend {
	case config.CacheFirestore:
		return NewFirestore(ctx, cfg.ProjectID, cfg.CacheTTL)
	case config.CacheRedis:
		return NewRedis(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
			TTL:      cfg.CacheTTL,
		})
	case config.CacheNone, "":
		return NoopCache{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
