package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/service"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/errors"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/httputil"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/logger"
)

// RequirementHandler handles requirement explosion and procurement
// tracking endpoints
type RequirementHandler struct {
	explosion *service.ExplosionService
	tracker   *service.TrackerService
	logger    *logger.Logger
}

// NewRequirementHandler creates a new requirement handler
func NewRequirementHandler(explosion *service.ExplosionService, tracker *service.TrackerService, log *logger.Logger) *RequirementHandler {
	return &RequirementHandler{
		explosion: explosion,
		tracker:   tracker,
		logger:    log,
	}
}

// Explode computes raw material requirements for runs inside a date range.
// The computation is derived from current runs and recipes on every call;
// nothing is stored.
func (h *RequirementHandler) Explode(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	leadTime := -1
	if v := r.URL.Query().Get("lead_time_days"); v != "" {
		leadTime, err = strconv.Atoi(v)
		if err != nil || leadTime < 0 {
			httputil.Error(w, errors.BadRequest("invalid lead_time_days parameter"))
			return
		}
	}

	requirements, err := h.explosion.Requirements(r.Context(), from, to, leadTime)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, requirements)
}

// ExplodeSemiFinished computes semi-finished requirements for a date range
func (h *RequirementHandler) ExplodeSemiFinished(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	requirements, err := h.explosion.SemiFinishedRequirements(r.Context(), from, to, -1)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, requirements)
}

// DeliveryList builds the next delivery window's material list for one
// production resource, with stock warnings against the central warehouse.
func (h *RequirementHandler) DeliveryList(w http.ResponseWriter, r *http.Request) {
	resourceID := r.URL.Query().Get("resource_id")
	if resourceID == "" {
		httputil.Error(w, errors.BadRequest("resource_id is required"))
		return
	}

	list, err := h.explosion.DeliveryListFor(r.Context(), resourceID, time.Now().UTC())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, list)
}

// ListTracking lists tracking records inside a requirement date range
func (h *RequirementHandler) ListTracking(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	records, err := h.tracker.ListRange(r.Context(), from, to)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, records)
}

// GetTracking returns the tracking status of one requirement. Requirements
// that were never ordered come back as not_ordered, not as 404.
func (h *RequirementHandler) GetTracking(w http.ResponseWriter, r *http.Request) {
	materialID := chi.URLParam(r, "materialId")

	date, err := time.Parse(service.DateFormat, chi.URLParam(r, "date"))
	if err != nil {
		httputil.Error(w, errors.BadRequest("invalid date parameter"))
		return
	}

	record, err := h.tracker.StatusFor(r.Context(), materialID, date)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, record)
}

type recordOrderRequest struct {
	MaterialID      string          `json:"material_id" validate:"required"`
	RequirementDate string          `json:"requirement_date" validate:"required"`
	QuantityOrdered decimal.Decimal `json:"quantity_ordered"`
	QuantityNeeded  decimal.Decimal `json:"quantity_needed"`
	OrderLineID     *string         `json:"order_line_id,omitempty"`
}

// RecordOrder books a purchase order line against a requirement
func (h *RequirementHandler) RecordOrder(w http.ResponseWriter, r *http.Request) {
	var req recordOrderRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	date, err := time.Parse(service.DateFormat, req.RequirementDate)
	if err != nil {
		httputil.Error(w, errors.BadRequest("invalid requirement_date"))
		return
	}

	record, err := h.tracker.RecordOrder(r.Context(), &service.OrderInput{
		MaterialID:      req.MaterialID,
		RequirementDate: date,
		QuantityOrdered: req.QuantityOrdered,
		QuantityNeeded:  req.QuantityNeeded,
		OrderLineID:     req.OrderLineID,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, record)
}

type recordReceiptRequest struct {
	MaterialID       string          `json:"material_id" validate:"required"`
	RequirementDate  string          `json:"requirement_date" validate:"required"`
	QuantityReceived decimal.Decimal `json:"quantity_received"`
}

// RecordReceipt books received goods against a requirement
func (h *RequirementHandler) RecordReceipt(w http.ResponseWriter, r *http.Request) {
	var req recordReceiptRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	date, err := time.Parse(service.DateFormat, req.RequirementDate)
	if err != nil {
		httputil.Error(w, errors.BadRequest("invalid requirement_date"))
		return
	}

	record, err := h.tracker.RecordReceipt(r.Context(), req.MaterialID, date, req.QuantityReceived)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, record)
}
