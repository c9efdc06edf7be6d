package processor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pauljones0/grocery-deals/internal/config"
	"github.com/pauljones0/grocery-deals/internal/models"
	"github.com/pauljones0/grocery-deals/internal/validator"
)

// FallbackTerms are the broad category searches run alongside flyer traversal
// when the caller supplies no query.
var FallbackTerms = []string{"meat", "produce", "dairy", "bakery", "frozen"}

type Processor interface {
	GetCoupons(ctx context.Context, req models.Request) (*models.Result, error)
}

type CouponProcessor struct {
	source      DealSource
	locator     BranchResolver
	extras      []SupplementalSource
	validator   *validator.Validator
	concurrency int
}

// New builds a processor. locator may be nil, in which case store addresses
// are left as the sources supplied them.
func New(source DealSource, locator BranchResolver, extras []SupplementalSource, cfg *config.Config) *CouponProcessor {
	concurrency := 8
	if cfg != nil && cfg.FetchConcurrency > 0 {
		concurrency = cfg.FetchConcurrency
	}
	return &CouponProcessor{
		source:      source,
		locator:     locator,
		extras:      extras,
		validator:   validator.New(),
		concurrency: concurrency,
	}
}

// GetCoupons builds the deduplicated coupon list for a postal code. Upstream
// failures never fail the call; they are reported in Result.Errors next to
// whatever coupons could still be gathered.
func (p *CouponProcessor) GetCoupons(ctx context.Context, req models.Request) (*models.Result, error) {
	postalCode := strings.TrimSpace(req.PostalCode)
	if postalCode == "" {
		return nil, models.ErrNoLocation
	}
	query := strings.TrimSpace(req.Query)

	var errs []string
	var coupons []models.Coupon

	if query != "" {
		results, failures := runBatch(ctx, 1, []fetchTask{p.searchTask(postalCode, query, false)})
		errs = append(errs, failures...)
		coupons = Dedup(p.keepValid(flatten(results)))
	} else {
		var flyerCoupons, searchCoupons, extraCoupons []models.Coupon
		var flyerErrs, searchErrs, extraErrs []string

		// Three independent batches, each joining on its own tasks.
		var g errgroup.Group
		g.Go(func() error {
			flyerCoupons, flyerErrs = p.traverseFlyers(ctx, postalCode)
			return nil
		})
		g.Go(func() error {
			tasks := make([]fetchTask, 0, len(FallbackTerms))
			for _, term := range FallbackTerms {
				tasks = append(tasks, p.searchTask(postalCode, term, true))
			}
			lists, failures := runBatch(ctx, p.concurrency, tasks)
			searchCoupons, searchErrs = flatten(lists), failures
			return nil
		})
		g.Go(func() error {
			tasks := make([]fetchTask, 0, len(p.extras))
			for _, src := range p.extras {
				tasks = append(tasks, fetchTask{
					label: src.Name(),
					run: func(ctx context.Context) ([]models.Coupon, error) {
						coupons, err := src.FetchCoupons(ctx)
						if err != nil {
							return nil, fmt.Errorf("%s deals: %w", src.Name(), err)
						}
						return coupons, nil
					},
				})
			}
			lists, failures := runBatch(ctx, p.concurrency, tasks)
			extraCoupons, extraErrs = flatten(lists), failures
			return nil
		})
		_ = g.Wait()

		errs = append(errs, flyerErrs...)
		errs = append(errs, searchErrs...)
		errs = append(errs, extraErrs...)
		coupons = Dedup(p.keepValid(flyerCoupons), p.keepValid(searchCoupons), p.keepValid(extraCoupons))
	}

	p.Enrich(ctx, coupons)

	if req.Coordinate != nil && p.locator != nil {
		errs = append(errs, p.locator.Resolve(ctx, coupons, *req.Coordinate, req.SnapRetailers)...)
	}

	if coupons == nil {
		coupons = []models.Coupon{}
	}
	if errs == nil {
		errs = []string{}
	}
	slog.Info("Coupon lookup complete", "postalCode", postalCode, "query", query, "coupons", len(coupons), "errors", len(errs))
	return &models.Result{Coupons: coupons, Errors: errs}, nil
}

// keepValid drops coupons with no store or item before they can shadow a
// valid duplicate in Dedup.
func (p *CouponProcessor) keepValid(coupons []models.Coupon) []models.Coupon {
	kept, dropped := p.validator.FilterCoupons(coupons)
	if dropped > 0 {
		slog.Warn("Dropped coupons missing store or item", "count", dropped)
	}
	return kept
}

// traverseFlyers lists the active flyers and fetches every flyer's items.
// A failed listing yields no coupons and one error; a failed flyer yields an
// error for that flyer only.
func (p *CouponProcessor) traverseFlyers(ctx context.Context, postalCode string) ([]models.Coupon, []string) {
	flyers, failure := bestEffort(ctx, "flyer listing", func(ctx context.Context) ([]models.Flyer, error) {
		flyers, err := p.source.FetchFlyers(ctx, postalCode)
		if err != nil {
			return nil, fmt.Errorf("flyer listing: %w", err)
		}
		return flyers, nil
	})
	if failure != "" {
		return nil, []string{failure}
	}
	slog.Info("Fetched grocery flyers", "postalCode", postalCode, "count", len(flyers))

	tasks := make([]fetchTask, 0, len(flyers))
	for _, flyer := range flyers {
		tasks = append(tasks, fetchTask{
			label: "flyer " + flyer.ID,
			run: func(ctx context.Context) ([]models.Coupon, error) {
				coupons, err := p.source.FetchFlyerItems(ctx, flyer)
				if err != nil {
					return nil, fmt.Errorf("flyer %s (%s): %w", flyer.ID, flyer.MerchantName, err)
				}
				return coupons, nil
			},
		})
	}
	results, flyerErrs := runBatch(ctx, p.concurrency, tasks)
	return flatten(results), flyerErrs
}

// searchTask wraps one keyword search. Fallback searches tag their coupons
// with the search term as category when the record carried none.
func (p *CouponProcessor) searchTask(postalCode, term string, tagCategory bool) fetchTask {
	return fetchTask{
		label: "search " + term,
		run: func(ctx context.Context) ([]models.Coupon, error) {
			coupons, err := p.source.SearchItems(ctx, postalCode, term)
			if err != nil {
				return nil, fmt.Errorf("search %q: %w", term, err)
			}
			if tagCategory {
				for i := range coupons {
					if coupons[i].Category == "" {
						coupons[i].Category = term
					}
				}
			}
			return coupons, nil
		},
	}
}
