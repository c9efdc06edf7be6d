package locator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pauljones0/grocery-deals/internal/config"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		NominatimBaseURL:     baseURL,
		PlaceSearchUserAgent: "grocery-deals-test/1.0",
		GooglePlacesAPIKey:   "test-key",
		RequestTimeout:       time.Second,
		MaxRetries:           0,
	}
}

func TestNominatim_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %q, want /search", r.URL.Path)
		}
		if ua := r.Header.Get("User-Agent"); ua != "grocery-deals-test/1.0" {
			t.Errorf("User-Agent = %q", ua)
		}
		q := r.URL.Query()
		want := map[string]string{
			"q":              "Kroger",
			"format":         "json",
			"limit":          "1",
			"viewbox":        "-84.65,39.25,-84.35,38.95",
			"bounded":        "1",
			"addressdetails": "1",
		}
		for k, v := range want {
			if got := q.Get(k); got != v {
				t.Errorf("param %s = %q, want %q", k, got, v)
			}
		}
		fmt.Fprint(w, `[{"display_name": "Kroger, 1 Vine St, Cincinnati, OH"}]`)
	}))
	defer server.Close()

	n := NewNominatim(testConfig(server.URL))
	box := BoundingBox{West: -84.65, North: 39.25, East: -84.35, South: 38.95}
	addr, err := n.Search(context.Background(), "Kroger", box)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if addr != "Kroger, 1 Vine St, Cincinnati, OH" {
		t.Errorf("Search() = %q", addr)
	}
}

func TestNominatim_NoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	addr, err := NewNominatim(testConfig(server.URL)).Search(context.Background(), "Nowhere Foods", BoundingBox{})
	if err != nil || addr != "" {
		t.Errorf("Search() = %q, %v, want empty and nil", addr, err)
	}
}

func TestNominatim_ClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxRetries = 3
	n := NewNominatim(cfg)
	n.retryBase = time.Millisecond

	if _, err := n.Search(context.Background(), "Kroger", BoundingBox{}); err == nil {
		t.Fatal("Search() error = nil, want status error")
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1", hits.Load())
	}
}

func TestGooglePlaces_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("X-Goog-Api-Key"); got != "test-key" {
			t.Errorf("X-Goog-Api-Key = %q", got)
		}
		if got := r.Header.Get("X-Goog-FieldMask"); got == "" {
			t.Error("X-Goog-FieldMask missing")
		}
		var body textSearchRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}
		if body.TextQuery != "Publix" {
			t.Errorf("textQuery = %q", body.TextQuery)
		}
		rect := body.LocationRestriction.Rectangle
		if rect.Low.Latitude != 27.8 || rect.High.Longitude != -82.3 {
			t.Errorf("rectangle = %+v", rect)
		}
		fmt.Fprint(w, `{"places":[{"formattedAddress":"100 Bay St, Tampa, FL"}]}`)
	}))
	defer server.Close()

	g := NewGooglePlaces(testConfig(""))
	g.endpoint = server.URL
	box := BoundingBox{West: -82.6, North: 28.1, East: -82.3, South: 27.8}
	addr, err := g.Search(context.Background(), "Publix", box)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if addr != "100 Bay St, Tampa, FL" {
		t.Errorf("Search() = %q", addr)
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := testConfig("http://localhost")
	if _, ok := NewFromConfig(cfg).searcher.(*GooglePlacesSearcher); !ok {
		t.Error("expected Google Places when an API key is set")
	}
	cfg.GooglePlacesAPIKey = ""
	if _, ok := NewFromConfig(cfg).searcher.(*NominatimSearcher); !ok {
		t.Error("expected Nominatim without an API key")
	}
}
