// Package flipp talks to the Flipp deal aggregator: active flyers per postal
// code, the items on each flyer, free-text item search and per-item details.
package flipp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/pauljones0/grocery-deals/internal/classifier"
	"github.com/pauljones0/grocery-deals/internal/config"
	"github.com/pauljones0/grocery-deals/internal/models"
	"github.com/pauljones0/grocery-deals/internal/util"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Detail is the per-item promotional data used to fill in missing prices.
type Detail struct {
	SaleStory    string
	CurrentPrice *float64
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status code %d", e.URL, e.Code)
}

type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	parser     Parser
	baseURL    string
	locale     string
	timeout    time.Duration
	maxRetries int
	retryBase  time.Duration
}

func New(cfg *config.Config, cls *classifier.Classifier) *Client {
	limit := rate.Inf
	if cfg.FlippRateLimit > 0 {
		limit = rate.Limit(cfg.FlippRateLimit)
	}
	burst := cfg.FetchConcurrency
	if burst < 1 {
		burst = 1
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(limit, burst),
		parser:     NewParser(cls),
		baseURL:    cfg.FlippBaseURL,
		locale:     cfg.FlippLocale,
		timeout:    cfg.RequestTimeout,
		maxRetries: cfg.MaxRetries,
		retryBase:  500 * time.Millisecond,
	}
}

// FetchFlyers lists the active flyers for postalCode, keeping only grocery merchants.
func (c *Client) FetchFlyers(ctx context.Context, postalCode string) ([]models.Flyer, error) {
	var data any
	if err := c.getJSON(ctx, "/flyers", url.Values{"postal_code": {postalCode}}, &data); err != nil {
		return nil, err
	}

	var flyers []models.Flyer
	for _, rec := range records(data, "flyers") {
		id := util.AsString(rec["id"])
		if id == "" || id == "0" {
			continue
		}
		merchant := util.AsString(firstPresent(rec, []string{"merchant", "merchant_name"}))
		if !c.parser.cls.IsGroceryStore(merchant) {
			continue
		}
		flyers = append(flyers, models.Flyer{ID: id, MerchantName: merchant})
	}
	return flyers, nil
}

// FetchFlyerItems returns the food items of one flyer, in flyer order.
func (c *Client) FetchFlyerItems(ctx context.Context, flyer models.Flyer) ([]models.Coupon, error) {
	var data any
	if err := c.getJSON(ctx, "/flyers/"+url.PathEscape(flyer.ID), nil, &data); err != nil {
		return nil, err
	}

	var coupons []models.Coupon
	for _, rec := range records(data, "items") {
		if coupon, ok := c.parser.ParseFlyerItem(rec, flyer.MerchantName); ok {
			coupons = append(coupons, coupon)
		}
	}
	return coupons, nil
}

// SearchItems queries the item-search endpoint for query near postalCode.
func (c *Client) SearchItems(ctx context.Context, postalCode, query string) ([]models.Coupon, error) {
	var data any
	params := url.Values{"postal_code": {postalCode}, "q": {query}}
	if err := c.getJSON(ctx, "/items/search", params, &data); err != nil {
		return nil, err
	}

	var coupons []models.Coupon
	for _, rec := range records(data, "items") {
		if coupon, ok := c.parser.ParseItem(rec, ""); ok {
			coupons = append(coupons, coupon)
		}
	}
	return coupons, nil
}

// FetchItemDetail loads the detail record for one item.
func (c *Client) FetchItemDetail(ctx context.Context, itemID string) (Detail, error) {
	var data map[string]any
	if err := c.getJSON(ctx, "/items/"+url.PathEscape(itemID), nil, &data); err != nil {
		return Detail{}, err
	}
	if inner, ok := data["item"].(map[string]any); ok {
		data = inner
	}
	if data == nil {
		return Detail{}, fmt.Errorf("empty detail for item %s", itemID)
	}

	detail := Detail{}
	if story, ok := data["sale_story"].(string); ok {
		detail.SaleStory = story
	}
	detail.CurrentPrice = util.AsFloat(data["current_price"])
	return detail, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("locale", c.locale)
	target := c.baseURL + path + "?" + params.Encode()

	return util.RetryWithBackoff(ctx, c.maxRetries, c.retryBase, func(attempt int) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		return c.fetchOnce(ctx, target, out)
	})
}

func (c *Client) fetchOnce(ctx context.Context, target string, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return util.Permanent(fmt.Errorf("failed to create request for %s: %w", target, err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", "https://flipp.com/")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		statusErr := &StatusError{URL: target, Code: res.StatusCode}
		if res.StatusCode >= 400 && res.StatusCode < 500 && res.StatusCode != http.StatusTooManyRequests {
			return util.Permanent(statusErr)
		}
		return statusErr
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return util.Permanent(fmt.Errorf("failed to decode %s: %w", target, err))
	}
	return nil
}

// records pulls a list of objects out of a payload that is either a bare array
// or an object holding the array under key.
func records(data any, key string) []map[string]any {
	var list []any
	switch v := data.(type) {
	case []any:
		list = v
	case map[string]any:
		list, _ = v[key].([]any)
	}

	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if rec, ok := item.(map[string]any); ok {
			out = append(out, rec)
		}
	}
	return out
}
