package flipp

import (
	"strings"

	"github.com/pauljones0/grocery-deals/internal/classifier"
	"github.com/pauljones0/grocery-deals/internal/models"
	"github.com/pauljones0/grocery-deals/internal/util"
)

// Parser maps raw aggregator records onto Coupons. It does no I/O.
type Parser struct {
	cls *classifier.Classifier
}

func NewParser(cls *classifier.Classifier) Parser {
	if cls == nil {
		cls = classifier.Default()
	}
	return Parser{cls: cls}
}

// Parse builds a Coupon from rec using the given field table. fallbackMerchant
// is used when the record names no merchant. It returns false when the merchant
// is missing or not a grocery store, or the item name is missing or not food.
func (p Parser) Parse(rec map[string]any, fallbackMerchant string, fields FieldTable) (models.Coupon, bool) {
	merchant := fallbackMerchant
	if v := firstPresent(rec, fields.Merchant); v != nil {
		merchant = util.AsString(v)
	}
	merchant = strings.TrimSpace(merchant)
	if merchant == "" || !p.cls.IsGroceryStore(merchant) {
		return models.Coupon{}, false
	}

	name := strings.TrimSpace(util.AsString(firstPresent(rec, fields.Name)))
	if name == "" || !p.cls.IsFood(name) {
		return models.Coupon{}, false
	}

	sale := util.AsFloat(firstPresent(rec, fields.SalePrice))
	regular := util.AsFloat(firstPresent(rec, fields.RegularPrice))

	storeName := strings.TrimSpace(util.AsString(firstPresent(rec, fields.StoreName)))
	if storeName == "" {
		storeName = merchant
	}

	return models.Coupon{
		Store:        merchant,
		ItemID:       util.AsString(firstPresent(rec, fields.ItemID)),
		Item:         name,
		Category:     util.AsString(firstPresent(rec, fields.Category)),
		RegularPrice: regular,
		CouponPrice:  sale,
		Savings:      models.ComputeSavings(regular, sale),
		Unit:         strings.TrimSpace(util.AsString(firstPresent(rec, fields.Unit))),
		Expires:      util.AsString(firstPresent(rec, fields.Expires)),
		ImageURL:     util.AbsoluteURL(util.AsString(firstPresent(rec, fields.Image))),
		StoreAddress: strings.TrimSpace(util.AsString(firstPresent(rec, fields.Address))),
		StoreName:    storeName,
	}, true
}

// ParseItem parses an item-search record.
func (p Parser) ParseItem(rec map[string]any, fallbackMerchant string) (models.Coupon, bool) {
	return p.Parse(rec, fallbackMerchant, SearchItemFields)
}

// ParseFlyerItem parses one record from a flyer's item list.
func (p Parser) ParseFlyerItem(rec map[string]any, merchant string) (models.Coupon, bool) {
	return p.Parse(rec, merchant, FlyerItemFields)
}
