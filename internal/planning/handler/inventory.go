package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/service"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/httputil"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/logger"
)

// InventoryHandler handles stock location, balance and movement endpoints
type InventoryHandler struct {
	service *service.LedgerService
	logger  *logger.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(svc *service.LedgerService, log *logger.Logger) *InventoryHandler {
	return &InventoryHandler{
		service: svc,
		logger:  log,
	}
}

type createLocationRequest struct {
	Code               string  `json:"code" validate:"required"`
	Name               string  `json:"name" validate:"required"`
	ResourceID         *string `json:"resource_id,omitempty"`
	IsCentralWarehouse bool    `json:"is_central_warehouse"`
}

// CreateLocation registers a stock location
func (h *InventoryHandler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var req createLocationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	loc, err := h.service.CreateLocation(r.Context(), &service.LocationInput{
		Code:               req.Code,
		Name:               req.Name,
		ResourceID:         req.ResourceID,
		IsCentralWarehouse: req.IsCentralWarehouse,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, loc)
}

type updateLocationRequest struct {
	Code               string  `json:"code" validate:"required"`
	Name               string  `json:"name" validate:"required"`
	ResourceID         *string `json:"resource_id,omitempty"`
	IsCentralWarehouse bool    `json:"is_central_warehouse"`
	IsActive           bool    `json:"is_active"`
}

// UpdateLocation updates a location's attributes
func (h *InventoryHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateLocationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	loc, err := h.service.UpdateLocation(r.Context(), id, &service.LocationInput{
		Code:               req.Code,
		Name:               req.Name,
		ResourceID:         req.ResourceID,
		IsCentralWarehouse: req.IsCentralWarehouse,
	}, req.IsActive)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, loc)
}

// ListLocations lists all active locations
func (h *InventoryHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.service.ListLocations(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, locations)
}

// ListBalances lists balances, optionally filtered by location and product
func (h *InventoryHandler) ListBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.service.ListBalances(r.Context(),
		r.URL.Query().Get("location_id"),
		r.URL.Query().Get("product_id"),
	)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, balances)
}

type transferRequest struct {
	ProductID      string          `json:"product_id" validate:"required"`
	Quantity       decimal.Decimal `json:"quantity"`
	LocationFromID string          `json:"location_from_id" validate:"required"`
	LocationToID   string          `json:"location_to_id" validate:"required"`
	Notes          *string         `json:"notes,omitempty"`
}

func (req *transferRequest) toInput() *service.TransferInput {
	return &service.TransferInput{
		ProductID:      req.ProductID,
		Quantity:       req.Quantity,
		LocationFromID: req.LocationFromID,
		LocationToID:   req.LocationToID,
		Notes:          req.Notes,
	}
}

type movementPairResponse struct {
	MovementOutID string      `json:"movement_out_id"`
	MovementInID  string      `json:"movement_in_id"`
	Movement      interface{} `json:"movement"`
}

// CreateTransfer records a pending transfer between two locations
func (h *InventoryHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	out, in, err := h.service.CreateTransfer(r.Context(), req.toInput())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, movementPairResponse{MovementOutID: out.ID, MovementInID: in.ID, Movement: in})
}

// CreateReturn records a pending return movement
func (h *InventoryHandler) CreateReturn(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	out, in, err := h.service.CreateReturn(r.Context(), req.toInput())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, movementPairResponse{MovementOutID: out.ID, MovementInID: in.ID, Movement: in})
}

// Confirm applies a pending movement pair to the balances. The URL carries
// the receiving movement's ID.
func (h *InventoryHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	movement, err := h.service.Confirm(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, movement)
}

// ListMovements lists movements, optionally filtered by status
func (h *InventoryHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	movements, err := h.service.ListMovements(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, movements)
}

// GetMovement fetches a movement by ID
func (h *InventoryHandler) GetMovement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	movement, err := h.service.GetMovement(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, movement)
}

type consolidatedDeliveryRequest struct {
	ResourceID string `json:"resource_id" validate:"required"`
	Lines      []struct {
		ProductID string          `json:"product_id" validate:"required"`
		Quantity  decimal.Decimal `json:"quantity"`
	} `json:"lines" validate:"required,min=1,dive"`
}

// CreateConsolidatedDelivery creates one pending transfer per line from the
// central warehouse to a resource's staging location. Lines succeed or fail
// independently; the response itemizes both.
func (h *InventoryHandler) CreateConsolidatedDelivery(w http.ResponseWriter, r *http.Request) {
	var req consolidatedDeliveryRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	lines := make([]service.DeliveryLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, service.DeliveryLine{ProductID: line.ProductID, Quantity: line.Quantity})
	}

	result, err := h.service.CreateConsolidatedDelivery(r.Context(), req.ResourceID, lines)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	status := http.StatusCreated
	if result.Failed > 0 {
		status = http.StatusMultiStatus
	}
	httputil.JSON(w, status, result)
}
