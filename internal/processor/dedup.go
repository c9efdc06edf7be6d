package processor

import "github.com/pauljones0/grocery-deals/internal/models"

// Dedup concatenates lists in order and keeps only the first coupon seen for
// each (store, item) pair. Later duplicates are dropped whole, even when they
// carry different prices or images.
func Dedup(lists ...[]models.Coupon) []models.Coupon {
	seen := make(map[string]struct{})
	var out []models.Coupon
	for _, list := range lists {
		for _, c := range list {
			key := c.DedupKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
