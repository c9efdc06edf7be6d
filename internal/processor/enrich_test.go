package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/pauljones0/grocery-deals/internal/flipp"
	"github.com/pauljones0/grocery-deals/internal/models"
)

func TestEnrich_OnlyQualifyingCoupons(t *testing.T) {
	src := &mockSource{
		details: map[string]flipp.Detail{
			"101": {SaleStory: "Digital coupon", CurrentPrice: models.Price(2.50)},
		},
	}
	p := newTestProcessor(src, nil)

	coupons := []models.Coupon{
		{Store: "Kroger", Item: "Yogurt", ItemID: "101", RegularPrice: models.Price(3.00)},
		{Store: "Kroger", Item: "Cheese", ItemID: "102", CouponPrice: models.Price(4.00)},
		{Store: "Kroger", Item: "Bread"},
	}
	p.Enrich(context.Background(), coupons)

	if got := src.detailCalls.Load(); got != 1 {
		t.Errorf("detail lookups = %d, want 1", got)
	}
	if coupons[0].DealText != "Digital coupon" {
		t.Errorf("DealText = %q, want sale story", coupons[0].DealText)
	}
	if coupons[0].CouponPrice == nil || *coupons[0].CouponPrice != 2.50 {
		t.Errorf("CouponPrice = %v, want 2.50", coupons[0].CouponPrice)
	}
	if coupons[0].Savings == nil || *coupons[0].Savings != 0.5 {
		t.Errorf("Savings = %v, want 0.5", coupons[0].Savings)
	}
	if *coupons[1].CouponPrice != 4.00 || coupons[1].DealText != "" {
		t.Errorf("priced coupon changed: %+v", coupons[1])
	}
}

func TestEnrich_FailureLeavesCouponUnchanged(t *testing.T) {
	src := &mockSource{detailErr: errors.New("status 500")}
	p := newTestProcessor(src, nil)

	coupons := []models.Coupon{
		{Store: "Kroger", Item: "Yogurt", ItemID: "1"},
		{Store: "Kroger", Item: "Kefir", ItemID: "2"},
	}
	p.Enrich(context.Background(), coupons)

	if got := src.detailCalls.Load(); got != 2 {
		t.Errorf("detail lookups = %d, want 2", got)
	}
	for _, c := range coupons {
		if c.CouponPrice != nil || c.DealText != "" {
			t.Errorf("coupon %q modified after failed lookup: %+v", c.Item, c)
		}
	}
}

func TestEnrich_PriceFromStory(t *testing.T) {
	src := &mockSource{
		details: map[string]flipp.Detail{
			"1": {SaleStory: "2 for $5"},
			"2": {SaleStory: "Save $2 on 2"},
			"3": {SaleStory: "$3.99 lb", CurrentPrice: models.Price(0)},
		},
	}
	p := newTestProcessor(src, nil)

	coupons := []models.Coupon{
		{Store: "Kroger", Item: "Cereal", ItemID: "1"},
		{Store: "Kroger", Item: "Pasta", ItemID: "2"},
		{Store: "Kroger", Item: "Pork Chops", ItemID: "3"},
	}
	p.Enrich(context.Background(), coupons)

	if coupons[0].CouponPrice == nil || *coupons[0].CouponPrice != 2.5 {
		t.Errorf("Cereal price = %v, want 2.5", coupons[0].CouponPrice)
	}
	if coupons[1].CouponPrice != nil {
		t.Errorf("Pasta price = %v, want nil for discount-only story", *coupons[1].CouponPrice)
	}
	if coupons[1].DealText != "Save $2 on 2" {
		t.Errorf("Pasta DealText = %q", coupons[1].DealText)
	}
	if coupons[2].CouponPrice == nil || *coupons[2].CouponPrice != 3.99 {
		t.Errorf("Pork Chops price = %v, want 3.99", coupons[2].CouponPrice)
	}
}

func TestPriceFromStory(t *testing.T) {
	tests := []struct {
		story string
		want  float64
		ok    bool
	}{
		{"2 for $5", 2.5, true},
		{"3/$10.00", 10.0 / 3, true},
		{"$3.99", 3.99, true},
		{"Now $ 4.49 each", 4.49, true},
		{"Save $1.00", 0, false},
		{"$2 off", 0, false},
		{"BOGO", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.story, func(t *testing.T) {
			got := priceFromStory(tt.story)
			if !tt.ok {
				if got != nil {
					t.Errorf("priceFromStory(%q) = %v, want nil", tt.story, *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("priceFromStory(%q) = %v, want %v", tt.story, got, tt.want)
			}
		})
	}
}
