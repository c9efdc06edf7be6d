package models

import (
	"errors"
	"math"
)

// ErrNoLocation is returned when a request carries no postal code to key the fetches on.
var ErrNoLocation = errors.New("no location: postal code is required")

// ErrCacheMiss is returned by coupon caches when no live entry exists for a key.
var ErrCacheMiss = errors.New("cache miss")

// Coupon is one normalized grocery deal line item.
type Coupon struct {
	Store        string   `json:"store" firestore:"store" validate:"required"`
	ItemID       string   `json:"itemId,omitempty" firestore:"itemId,omitempty"`
	Item         string   `json:"item" firestore:"item" validate:"required"`
	Category     string   `json:"category,omitempty" firestore:"category,omitempty"`
	RegularPrice *float64 `json:"regularPrice,omitempty" firestore:"regularPrice,omitempty"`
	CouponPrice  *float64 `json:"couponPrice,omitempty" firestore:"couponPrice,omitempty"`
	DealText     string   `json:"dealText,omitempty" firestore:"dealText,omitempty"`
	Savings      *float64 `json:"savings,omitempty" firestore:"savings,omitempty"`
	Unit         string   `json:"unit,omitempty" firestore:"unit,omitempty"`
	Expires      string   `json:"expires,omitempty" firestore:"expires,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty" firestore:"imageUrl,omitempty"`
	StoreAddress string   `json:"storeAddress,omitempty" firestore:"storeAddress,omitempty"`
	StoreName    string   `json:"storeName,omitempty" firestore:"storeName,omitempty"`
}

// DedupKey is the (store, item) identity used to collapse duplicate observations.
func (c Coupon) DedupKey() string {
	return c.Store + "|" + c.Item
}

// ComputeSavings returns max(0, regular-sale), or nil when either input is unknown.
func ComputeSavings(regular, sale *float64) *float64 {
	if regular == nil || sale == nil {
		return nil
	}
	s := math.Max(0, *regular-*sale)
	return &s
}

// Price is a convenience for building optional prices.
func Price(v float64) *float64 {
	return &v
}

// Flyer is one active weekly circular for one merchant in one postal code.
// Flyers are fetched fresh per request and never persisted.
type Flyer struct {
	ID           string
	MerchantName string
}

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

// SnapRetailer is a SNAP-authorized store supplied by the caller. The core only reads it.
type SnapRetailer struct {
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// Request is the input to a coupon lookup.
type Request struct {
	PostalCode    string
	Query         string
	Coordinate    *Coordinate
	SnapRetailers []SnapRetailer
}

// Result is the final coupon list plus the non-fatal upstream failures hit while building it.
type Result struct {
	Coupons []Coupon `json:"coupons"`
	Errors  []string `json:"errors"`
}
