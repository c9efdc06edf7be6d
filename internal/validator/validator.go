package validator

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/pauljones0/grocery-deals/internal/models"
)

// US ZIP, ZIP+4, or Canadian postal code; the aggregator serves both countries.
var postalCodeRegex = regexp.MustCompile(`^(\d{5}(-\d{4})?|[A-Za-z]\d[A-Za-z] ?\d[A-Za-z]\d)$`)

// Validator is a wrapper around the validator library.
type Validator struct {
	validate *validator.Validate
}

// New creates a new Validator instance with the postal_code rule registered.
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("postal_code", func(fl validator.FieldLevel) bool {
		return postalCodeRegex.MatchString(fl.Field().String())
	})
	return &Validator{validate: v}
}

// ValidateStruct validates a struct based on its tags.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// ValidatePostalCode checks a single postal code.
func (v *Validator) ValidatePostalCode(code string) error {
	if err := v.validate.Var(code, "required,postal_code"); err != nil {
		return fmt.Errorf("invalid postal code %q: %w", code, err)
	}
	return nil
}

// FilterCoupons drops coupons missing a store or item and returns the
// survivors in order along with the number dropped. Prices and image URLs are
// normalized at parse time and never cause a drop.
func (v *Validator) FilterCoupons(coupons []models.Coupon) ([]models.Coupon, int) {
	kept := make([]models.Coupon, 0, len(coupons))
	dropped := 0
	for _, c := range coupons {
		if err := v.validate.Struct(c); err != nil {
			dropped++
			continue
		}
		kept = append(kept, c)
	}
	return kept, dropped
}
