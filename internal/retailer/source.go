package retailer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/pauljones0/grocery-deals/internal/classifier"
	"github.com/pauljones0/grocery-deals/internal/config"
	"github.com/pauljones0/grocery-deals/internal/models"
	"github.com/pauljones0/grocery-deals/internal/util"
)

const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxPageBytes bounds how much of a retailer page is read.
const maxPageBytes = 8 << 20

// Source fetches one retailer's deals page and maps its embedded product
// data to coupons.
type Source struct {
	name       string
	cfg        SourceConfig
	httpClient *http.Client
	cls        *classifier.Classifier
	timeout    time.Duration
	maxRetries int
	retryBase  time.Duration
}

func NewSource(name string, src SourceConfig, cfg *config.Config, cls *classifier.Classifier) *Source {
	if cls == nil {
		cls = classifier.Default()
	}
	return &Source{
		name:       name,
		cfg:        src,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cls:        cls,
		timeout:    cfg.RequestTimeout,
		maxRetries: cfg.MaxRetries,
		retryBase:  time.Second,
	}
}

// FromConfig builds the sources enabled by RETAILER_SOURCES. Definitions from
// RETAILER_SOURCES_PATH, when set, are merged over the built-in ones. Unknown
// names are logged and skipped.
func FromConfig(cfg *config.Config, cls *classifier.Classifier) ([]*Source, error) {
	defs := DefaultSources()
	if cfg.RetailerSourcesPath != "" {
		custom, err := LoadSources(cfg.RetailerSourcesPath)
		if err != nil {
			return nil, err
		}
		maps.Copy(defs, custom)
	}

	var out []*Source
	for _, name := range cfg.RetailerSources {
		def, ok := defs[name]
		if !ok {
			slog.Warn("Unknown retailer source, skipping", "source", name, "known", slices.Sorted(maps.Keys(defs)))
			continue
		}
		out = append(out, NewSource(name, def, cfg, cls))
	}
	return out, nil
}

func (s *Source) Name() string { return s.name }

// FetchCoupons returns the food deals on the retailer's page. Items without a
// name or sale price are dropped.
func (s *Source) FetchCoupons(ctx context.Context) ([]models.Coupon, error) {
	var doc *goquery.Document
	err := util.RetryWithBackoff(ctx, s.maxRetries, s.retryBase, func(attempt int) error {
		var err error
		doc, err = s.fetchHTMLContent(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	data, nextData, err := extractPageData(doc, s.cfg.InlineVar)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.cfg.URL, err)
	}

	var records []map[string]any
	if nextData {
		records = itemList(data, s.cfg.ItemPaths)
	} else {
		list, _ := data.([]any)
		records = objects(list)
	}

	var coupons []models.Coupon
	for _, rec := range records {
		if c, ok := s.toCoupon(rec); ok {
			coupons = append(coupons, c)
		}
	}
	slog.Info("Fetched retailer deals", "source", s.name, "records", len(records), "coupons", len(coupons))
	return coupons, nil
}

func (s *Source) toCoupon(rec map[string]any) (models.Coupon, bool) {
	name := strings.TrimSpace(util.AsString(firstPath(rec, s.cfg.Fields.Name)))
	sale := util.AsFloat(firstPath(rec, s.cfg.Fields.SalePrice))
	if name == "" || sale == nil || !s.cls.IsFood(name) {
		return models.Coupon{}, false
	}
	regular := util.AsFloat(firstPath(rec, s.cfg.Fields.RegularPrice))

	return models.Coupon{
		Store:        s.cfg.Store,
		Item:         name,
		RegularPrice: regular,
		CouponPrice:  sale,
		Savings:      models.ComputeSavings(regular, sale),
		Expires:      util.AsString(firstPath(rec, s.cfg.Fields.Expires)),
		ImageURL:     util.AbsoluteURL(util.AsString(firstPath(rec, s.cfg.Fields.Image))),
		StoreName:    s.cfg.Store,
	}, true
}

func (s *Source) fetchHTMLContent(ctx context.Context) (*goquery.Document, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return nil, util.Permanent(fmt.Errorf("failed to create request for URL %s: %w", s.cfg.URL, err))
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	res, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL %s: %w", s.cfg.URL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		err := fmt.Errorf("failed to fetch URL %s: status code %d", s.cfg.URL, res.StatusCode)
		if res.StatusCode >= 400 && res.StatusCode < 500 && res.StatusCode != http.StatusTooManyRequests {
			return nil, util.Permanent(err)
		}
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read URL %s: %w", s.cfg.URL, err)
	}

	// Decode to UTF-8 if needed
	enc, _, _ := charset.DetermineEncoding(data, res.Header.Get("Content-Type"))
	utf8data, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		if !utf8.Valid(data) {
			return nil, util.Permanent(fmt.Errorf("failed to decode URL %s: %w", s.cfg.URL, err))
		}
		utf8data = data
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(utf8data))
	if err != nil {
		return nil, util.Permanent(fmt.Errorf("failed to parse HTML from %s: %w", s.cfg.URL, err))
	}
	return doc, nil
}
