package processor

import (
	"context"

	"github.com/pauljones0/grocery-deals/internal/flipp"
	"github.com/pauljones0/grocery-deals/internal/models"
)

// DealSource abstracts the deal aggregator.
type DealSource interface {
	FetchFlyers(ctx context.Context, postalCode string) ([]models.Flyer, error)
	FetchFlyerItems(ctx context.Context, flyer models.Flyer) ([]models.Coupon, error)
	SearchItems(ctx context.Context, postalCode, query string) ([]models.Coupon, error)
	FetchItemDetail(ctx context.Context, itemID string) (flipp.Detail, error)
}

// BranchResolver back-fills store addresses near a coordinate. It returns one
// message per failed lookup and never fails the batch.
type BranchResolver interface {
	Resolve(ctx context.Context, coupons []models.Coupon, at models.Coordinate, retailers []models.SnapRetailer) []string
}

// SupplementalSource is an extra deal feed appended after the aggregator's results.
type SupplementalSource interface {
	Name() string
	FetchCoupons(ctx context.Context) ([]models.Coupon, error)
}
