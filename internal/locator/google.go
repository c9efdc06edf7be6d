package locator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pauljones0/grocery-deals/internal/config"
	"github.com/pauljones0/grocery-deals/internal/util"
)

const googlePlacesURL = "https://places.googleapis.com/v1/places:searchText"

// GooglePlacesSearcher uses the Places API (New) Text Search endpoint.
type GooglePlacesSearcher struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	timeout    time.Duration
	maxRetries int
	retryBase  time.Duration
}

func NewGooglePlaces(cfg *config.Config) *GooglePlacesSearcher {
	return &GooglePlacesSearcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint:   googlePlacesURL,
		apiKey:     cfg.GooglePlacesAPIKey,
		timeout:    cfg.RequestTimeout,
		maxRetries: cfg.MaxRetries,
		retryBase:  500 * time.Millisecond,
	}
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type textSearchRequest struct {
	TextQuery           string `json:"textQuery"`
	MaxResultCount      int    `json:"maxResultCount"`
	LocationRestriction struct {
		Rectangle struct {
			Low  latLng `json:"low"`
			High latLng `json:"high"`
		} `json:"rectangle"`
	} `json:"locationRestriction"`
}

type textSearchResponse struct {
	Places []struct {
		FormattedAddress string `json:"formattedAddress"`
	} `json:"places"`
}

func (g *GooglePlacesSearcher) Search(ctx context.Context, name string, box BoundingBox) (string, error) {
	body := textSearchRequest{TextQuery: name, MaxResultCount: 1}
	body.LocationRestriction.Rectangle.Low = latLng{Latitude: box.South, Longitude: box.West}
	body.LocationRestriction.Rectangle.High = latLng{Latitude: box.North, Longitude: box.East}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode text search for %q: %w", name, err)
	}

	var resp textSearchResponse
	err = util.RetryWithBackoff(ctx, g.maxRetries, g.retryBase, func(attempt int) error {
		req, err := newRequest(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
		if err != nil {
			return util.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Goog-Api-Key", g.apiKey)
		req.Header.Set("X-Goog-FieldMask", "places.displayName,places.formattedAddress,places.location")
		return doJSON(g.httpClient, req, g.timeout, &resp)
	})
	if err != nil {
		return "", err
	}
	if len(resp.Places) == 0 {
		return "", nil
	}
	return resp.Places[0].FormattedAddress, nil
}
