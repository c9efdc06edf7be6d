package processor

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/pauljones0/grocery-deals/internal/flipp"
	"github.com/pauljones0/grocery-deals/internal/models"
)

var (
	multiBuyRegex    = regexp.MustCompile(`(?i)(\d+)\s*(?:for|/)\s*\$\s*(\d+(?:\.\d{1,2})?)`)
	singlePriceRegex = regexp.MustCompile(`\$\s*(\d+(?:\.\d{1,2})?)`)
	discountRegex    = regexp.MustCompile(`(?i)\b(save|off)\b`)
)

// Enrich looks up details for every coupon that has an item id but no sale
// price, then fills DealText and, if still missing, CouponPrice. Lookups run
// concurrently; a failed lookup leaves its coupon untouched. Coupons that
// already have a price or lack an id are never looked up.
func (p *CouponProcessor) Enrich(ctx context.Context, coupons []models.Coupon) {
	var pending []int
	for i, c := range coupons {
		if c.CouponPrice == nil && c.ItemID != "" {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return
	}

	details := make([]*flipp.Detail, len(pending))
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for n, idx := range pending {
		itemID := coupons[idx].ItemID
		g.Go(func() error {
			d, err := p.source.FetchItemDetail(ctx, itemID)
			if err != nil {
				slog.Debug("Detail lookup failed", "itemId", itemID, "error", err)
				return nil
			}
			details[n] = &d
			return nil
		})
	}
	_ = g.Wait()

	enriched := 0
	for n, idx := range pending {
		if details[n] != nil && applyDetail(&coupons[idx], *details[n]) {
			enriched++
		}
	}
	slog.Info("Enriched coupons from item details", "candidates", len(pending), "enriched", enriched)
}

// applyDetail copies promotional data onto c and reports whether anything changed.
func applyDetail(c *models.Coupon, d flipp.Detail) bool {
	changed := false
	if d.SaleStory != "" {
		c.DealText = d.SaleStory
		changed = true
	}
	if c.CouponPrice == nil {
		price := d.CurrentPrice
		if price == nil || *price <= 0 {
			price = priceFromStory(d.SaleStory)
		}
		if price != nil && *price > 0 {
			c.CouponPrice = price
			c.Savings = models.ComputeSavings(c.RegularPrice, c.CouponPrice)
			changed = true
		}
	}
	return changed
}

// priceFromStory derives a unit price from promotional text such as
// "2 for $5" or "$3.99 each". Discount-only text ("Save $2") yields nil.
func priceFromStory(story string) *float64 {
	if m := multiBuyRegex.FindStringSubmatch(story); m != nil {
		qty, err1 := strconv.Atoi(m[1])
		total, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil && qty > 0 {
			unit := total / float64(qty)
			return &unit
		}
	}
	if discountRegex.MatchString(story) {
		return nil
	}
	if m := singlePriceRegex.FindStringSubmatch(story); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return &v
		}
	}
	return nil
}
