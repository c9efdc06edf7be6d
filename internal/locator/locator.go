package locator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pauljones0/grocery-deals/internal/config"
	"github.com/pauljones0/grocery-deals/internal/models"
)

// Locator resolves the nearest branch address of each store in a coupon list.
type Locator struct {
	searcher    PlaceSearcher
	margin      float64
	concurrency int
}

func New(searcher PlaceSearcher, cfg *config.Config) *Locator {
	concurrency := 8
	if cfg != nil && cfg.FetchConcurrency > 0 {
		concurrency = cfg.FetchConcurrency
	}
	return &Locator{searcher: searcher, margin: SearchMargin, concurrency: concurrency}
}

// NewFromConfig picks Google Places when an API key is configured and
// Nominatim otherwise.
func NewFromConfig(cfg *config.Config) *Locator {
	if cfg.GooglePlacesAPIKey != "" {
		return New(NewGooglePlaces(cfg), cfg)
	}
	return New(NewNominatim(cfg), cfg)
}

// Resolve back-fills StoreAddress on coupons in place. Each distinct store
// that has at least one coupon without an address is looked up once, first
// among the SNAP retailers near at and then through place search. Addresses
// already present are never overwritten. The returned messages describe
// lookups that failed in transport; a store with no match is not an error.
func (l *Locator) Resolve(ctx context.Context, coupons []models.Coupon, at models.Coordinate, retailers []models.SnapRetailer) []string {
	var stores []string
	seen := make(map[string]bool)
	for _, c := range coupons {
		if c.StoreAddress != "" || seen[c.Store] {
			continue
		}
		seen[c.Store] = true
		stores = append(stores, c.Store)
	}
	if len(stores) == 0 {
		return nil
	}

	box := BoxAround(at, l.margin)
	addresses := make([]string, len(stores))
	failures := make([]string, len(stores))

	var g errgroup.Group
	g.SetLimit(l.concurrency)
	for i, store := range stores {
		g.Go(func() error {
			if r, ok := nearestRetailer(store, at, box, retailers); ok {
				addresses[i] = r.Address
				return nil
			}
			if l.searcher == nil {
				return nil
			}
			addr, err := l.searcher.Search(ctx, store, box)
			if err != nil {
				slog.Warn("Place search failed", "store", store, "error", err)
				failures[i] = fmt.Sprintf("place search %s: %v", store, err)
				return nil
			}
			addresses[i] = addr
			return nil
		})
	}
	_ = g.Wait()

	// Back-fill only after every lookup has finished.
	resolved := make(map[string]string, len(stores))
	var errs []string
	for i, store := range stores {
		if addresses[i] != "" {
			resolved[store] = addresses[i]
		}
		if failures[i] != "" {
			errs = append(errs, failures[i])
		}
	}
	filled := 0
	for i := range coupons {
		if coupons[i].StoreAddress != "" {
			continue
		}
		if addr, ok := resolved[coupons[i].Store]; ok {
			coupons[i].StoreAddress = addr
			filled++
		}
	}
	slog.Info("Resolved store branches", "stores", len(stores), "resolved", len(resolved), "coupons", filled)
	return errs
}

// nearestRetailer returns the closest SNAP retailer inside box whose name
// contains the store name, case-insensitively.
func nearestRetailer(store string, at models.Coordinate, box BoundingBox, retailers []models.SnapRetailer) (models.SnapRetailer, bool) {
	want := strings.ToLower(strings.TrimSpace(store))
	if want == "" {
		return models.SnapRetailer{}, false
	}

	var best models.SnapRetailer
	bestDist := math.Inf(1)
	for _, r := range retailers {
		name := strings.ToLower(strings.TrimSpace(r.Name))
		if name == "" || r.Address == "" {
			continue
		}
		if !strings.Contains(name, want) {
			continue
		}
		if !box.Contains(r.Lat, r.Lng) {
			continue
		}
		if d := haversineKm(at, models.Coordinate{Lat: r.Lat, Lng: r.Lng}); d < bestDist {
			best, bestDist = r, d
		}
	}
	return best, !math.IsInf(bestDist, 1)
}
