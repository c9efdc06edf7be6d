package flipp

// FieldTable lists, per Coupon attribute, the raw record keys to try in order.
// The aggregator renames fields between endpoints and over time, so every
// attribute resolves through a fallback list rather than a single key.
type FieldTable struct {
	ItemID       []string
	Merchant     []string
	Name         []string
	SalePrice    []string
	RegularPrice []string
	Unit         []string
	Category     []string
	Expires      []string
	Image        []string
	Address      []string
	StoreName    []string
}

// SearchItemFields resolves records from the item-search endpoint.
var SearchItemFields = FieldTable{
	ItemID:       []string{"id"},
	Merchant:     []string{"merchant_name", "store_name"},
	Name:         []string{"name", "description"},
	SalePrice:    []string{"current_price", "sale_price", "price"},
	RegularPrice: []string{"pre_price", "original_price", "regular_price"},
	Unit:         []string{"unit", "post_price_text"},
	Category:     []string{"category"},
	Expires:      []string{"valid_to", "expiry_date"},
	Image:        []string{"cutout_image_url", "clean_image_url", "image_url"},
	Address:      []string{"store_address", "merchant_address", "address"},
	StoreName:    []string{"flyer_merchant_name"},
}

// FlyerItemFields resolves records from a single flyer's item list. Those
// records carry no merchant; the flyer's merchant is passed in instead.
var FlyerItemFields = FieldTable{
	ItemID:       []string{"id"},
	Name:         []string{"name", "short_name"},
	SalePrice:    []string{"price"},
	RegularPrice: []string{"pre_price", "original_price"},
	Unit:         []string{"unit", "post_price_text"},
	Category:     []string{"category"},
	Expires:      []string{"valid_to"},
	Image:        []string{"cutout_image_url"},
}

// firstPresent returns the value of the first key that exists with a non-null value.
// Empty strings count as present.
func firstPresent(rec map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
