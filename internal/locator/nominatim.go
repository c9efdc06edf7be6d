package locator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/pauljones0/grocery-deals/internal/config"
	"github.com/pauljones0/grocery-deals/internal/util"
)

// PlaceSearcher finds the address of the best match for a store name inside
// a bounding box. An empty address with a nil error means no match.
type PlaceSearcher interface {
	Search(ctx context.Context, name string, box BoundingBox) (string, error)
}

// NominatimSearcher queries an OpenStreetMap Nominatim instance.
type NominatimSearcher struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	userAgent  string
	timeout    time.Duration
	maxRetries int
	retryBase  time.Duration
}

func NewNominatim(cfg *config.Config) *NominatimSearcher {
	limit := rate.Inf
	if cfg.NominatimRateLimit > 0 {
		limit = rate.Limit(cfg.NominatimRateLimit)
	}
	return &NominatimSearcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(limit, 1),
		baseURL:    cfg.NominatimBaseURL,
		userAgent:  cfg.PlaceSearchUserAgent,
		timeout:    cfg.RequestTimeout,
		maxRetries: cfg.MaxRetries,
		retryBase:  time.Second,
	}
}

type nominatimPlace struct {
	DisplayName string `json:"display_name"`
}

func (n *NominatimSearcher) Search(ctx context.Context, name string, box BoundingBox) (string, error) {
	params := url.Values{
		"q":              {name},
		"format":         {"json"},
		"limit":          {"1"},
		"viewbox":        {formatViewbox(box)},
		"bounded":        {"1"},
		"addressdetails": {"1"},
	}
	target := n.baseURL + "/search?" + params.Encode()

	var places []nominatimPlace
	err := util.RetryWithBackoff(ctx, n.maxRetries, n.retryBase, func(attempt int) error {
		if err := n.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		req, err := newRequest(ctx, http.MethodGet, target, nil)
		if err != nil {
			return util.Permanent(err)
		}
		req.Header.Set("User-Agent", n.userAgent)
		return doJSON(n.httpClient, req, n.timeout, &places)
	})
	if err != nil {
		return "", err
	}
	if len(places) == 0 {
		return "", nil
	}
	return places[0].DisplayName, nil
}

// formatViewbox renders the box as Nominatim's "left,top,right,bottom".
func formatViewbox(b BoundingBox) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return f(b.West) + "," + f(b.North) + "," + f(b.East) + "," + f(b.South)
}

// StatusError is a non-2xx answer from a place-search service.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status code %d", e.URL, e.Code)
}

func newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", target, err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// doJSON sends req and decodes a 2xx JSON body into out. 4xx answers other
// than 429 are not worth retrying and come back as permanent errors.
func doJSON(client *http.Client, req *http.Request, timeout time.Duration, out any) error {
	if timeout > 0 {
		ctx, cancel := context.WithTimeout(req.Context(), timeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", req.URL.Redacted(), err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		statusErr := &StatusError{URL: req.URL.Redacted(), Code: res.StatusCode}
		if res.StatusCode >= 400 && res.StatusCode < 500 && res.StatusCode != http.StatusTooManyRequests {
			return util.Permanent(statusErr)
		}
		return statusErr
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return util.Permanent(fmt.Errorf("failed to decode %s: %w", req.URL.Redacted(), err))
	}
	return nil
}
