package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pauljones0/grocery-deals/internal/models"
	"github.com/pauljones0/grocery-deals/internal/processor"
	"github.com/pauljones0/grocery-deals/internal/storage"
	"github.com/pauljones0/grocery-deals/internal/validator"
)

const maxBodyBytes = 1 << 20

// CouponsRequest is the POST /coupons body. It carries the same fields as the
// GET query plus an optional list of SNAP retailers near the user.
type CouponsRequest struct {
	Zip           string                `json:"zip"`
	Query         string                `json:"q"`
	Lat           *float64              `json:"lat"`
	Lng           *float64              `json:"lng"`
	SnapRetailers []models.SnapRetailer `json:"snapRetailers"`
}

type Handler struct {
	processor processor.Processor
	cache     storage.Cache
	validator *validator.Validator
	group     singleflight.Group
	timeout   time.Duration
}

// NewHandler wires the HTTP surface. cache may be nil.
func NewHandler(p processor.Processor, cache storage.Cache, timeout time.Duration) *Handler {
	if cache == nil {
		cache = storage.NoopCache{}
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Handler{
		processor: p,
		cache:     cache,
		validator: validator.New(),
		timeout:   timeout,
	}
}

// GetCoupons serves GET /coupons?zip=&q=&lat=&lng=.
func (h *Handler) GetCoupons(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := CouponsRequest{Zip: q.Get("zip"), Query: q.Get("q")}
	if lat, err := strconv.ParseFloat(q.Get("lat"), 64); err == nil {
		req.Lat = &lat
	}
	if lng, err := strconv.ParseFloat(q.Get("lng"), 64); err == nil {
		req.Lng = &lng
	}
	h.serve(w, r, req)
}

// PostCoupons serves POST /coupons with a JSON CouponsRequest body.
func (h *Handler) PostCoupons(w http.ResponseWriter, r *http.Request) {
	var req CouponsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeResult(w, http.StatusBadRequest, failure("invalid request body: "+err.Error()))
		return
	}
	h.serve(w, r, req)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, body CouponsRequest) {
	zip := strings.TrimSpace(body.Zip)
	if zip == "" {
		writeResult(w, http.StatusOK, failure("zip parameter is required"))
		return
	}
	if err := h.validator.ValidatePostalCode(zip); err != nil {
		writeResult(w, http.StatusBadRequest, failure(err.Error()))
		return
	}

	req := models.Request{
		PostalCode:    zip,
		Query:         strings.TrimSpace(body.Query),
		SnapRetailers: body.SnapRetailers,
	}
	if body.Lat != nil && body.Lng != nil {
		coord := models.Coordinate{Lat: *body.Lat, Lng: *body.Lng}
		if err := h.validator.ValidateStruct(coord); err != nil {
			writeResult(w, http.StatusBadRequest, failure("invalid coordinate: "+err.Error()))
			return
		}
		req.Coordinate = &coord
	}

	result, err := h.lookup(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, models.ErrNoLocation) {
			status = http.StatusBadRequest
		}
		slog.Error("Coupon lookup failed", "zip", zip, "error", err)
		writeResult(w, status, failure(err.Error()))
		return
	}
	writeResult(w, http.StatusOK, result)
}

// lookup answers from the cache when it can and otherwise runs the pipeline,
// coalescing identical in-flight requests. Requests carrying SNAP retailers
// bypass both because the retailer list is not part of the cache key.
func (h *Handler) lookup(ctx context.Context, req models.Request) (*models.Result, error) {
	if len(req.SnapRetailers) > 0 {
		ctx, cancel := context.WithTimeout(ctx, h.timeout)
		defer cancel()
		return h.processor.GetCoupons(ctx, req)
	}

	key := storage.Key{PostalCode: req.PostalCode, Query: req.Query, Coordinate: req.Coordinate}
	cached, err := h.cache.Get(ctx, key)
	if err == nil {
		slog.Debug("Cache hit", "key", key.String())
		return cached, nil
	}
	if !errors.Is(err, models.ErrCacheMiss) {
		slog.Warn("Cache read failed, treating as miss", "key", key.String(), "error", err)
	}

	v, err, shared := h.group.Do(key.ID(), func() (any, error) {
		// Detached so one caller hanging up does not fail the others.
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.timeout)
		defer cancel()

		result, err := h.processor.GetCoupons(runCtx, req)
		if err != nil {
			return nil, err
		}
		// Partial results are served but not kept.
		if len(result.Errors) == 0 {
			if err := h.cache.Set(runCtx, key, result); err != nil {
				slog.Warn("Cache write failed", "key", key.String(), "error", err)
			}
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("Coalesced coupon lookup", "key", key.String())
	}
	return v.(*models.Result), nil
}

func failure(msg string) *models.Result {
	return &models.Result{Coupons: []models.Coupon{}, Errors: []string{msg}}
}

func writeResult(w http.ResponseWriter, status int, result *models.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
