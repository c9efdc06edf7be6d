package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pauljones0/grocery-deals/internal/api"
	"github.com/pauljones0/grocery-deals/internal/classifier"
	"github.com/pauljones0/grocery-deals/internal/config"
	"github.com/pauljones0/grocery-deals/internal/flipp"
	"github.com/pauljones0/grocery-deals/internal/locator"
	"github.com/pauljones0/grocery-deals/internal/processor"
	"github.com/pauljones0/grocery-deals/internal/retailer"
	"github.com/pauljones0/grocery-deals/internal/storage"
)

func main() {
	slog.Info("Starting grocery deals server...")
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	cls, err := loadClassifier(cfg.KeywordsConfigPath)
	if err != nil {
		slog.Error("Critical error loading keyword tables", "path", cfg.KeywordsConfigPath, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	cache, err := storage.New(ctx, cfg)
	if err != nil {
		slog.Error("Critical error initializing cache", "backend", cfg.CacheBackend, "error", err)
		os.Exit(1)
	}
	defer cache.Close()

	sources, err := retailer.FromConfig(cfg, cls)
	if err != nil {
		slog.Error("Critical error loading retailer sources", "path", cfg.RetailerSourcesPath, "error", err)
		os.Exit(1)
	}
	var extras []processor.SupplementalSource
	for _, src := range sources {
		extras = append(extras, src)
	}

	source := flipp.New(cfg, cls)
	loc := locator.NewFromConfig(cfg)
	p := processor.New(source, loc, extras, cfg)

	stopTrim := startCacheTrimmer(cache, cfg.CacheTTL)
	defer stopTrim()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(api.NewHandler(p, cache, 2*time.Minute)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh
		slog.Info("Received signal, shutting down gracefully...", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	slog.Info("Listening on port", "port", cfg.Port,
		"cache", cfg.CacheBackend,
		"retailerSources", cfg.RetailerSources,
		"placeSearch", placeSearchName(cfg))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Failed to listen and serve", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped.")
}

// loadClassifier uses the built-in keyword tables unless path names a
// replacement YAML file.
func loadClassifier(path string) (*classifier.Classifier, error) {
	if path == "" {
		slog.Info("Loaded keyword tables from embedded config.")
		return classifier.Default(), nil
	}
	k, err := classifier.LoadKeywords(path)
	if err != nil {
		return nil, err
	}
	slog.Info("Loaded keyword tables from external file", "path", path,
		"food", len(k.Food), "nonFood", len(k.NonFood), "groceryStores", len(k.GroceryStores))
	return classifier.New(k), nil
}

// startCacheTrimmer periodically removes expired Firestore entries. Redis
// expires keys itself, so other backends need nothing.
func startCacheTrimmer(cache storage.Cache, interval time.Duration) func() {
	fs, ok := cache.(*storage.FirestoreCache)
	if !ok || interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				if err := fs.TrimExpired(ctx); err != nil {
					slog.Warn("Failed to trim expired cache entries", "error", err)
				}
				cancel()
			}
		}
	}()
	return func() { close(done) }
}

func placeSearchName(cfg *config.Config) string {
	if cfg.GooglePlacesAPIKey != "" {
		return "google-places"
	}
	return "nominatim"
}
