package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/service"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/httputil"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/logger"
)

// RecipeHandler handles bill of materials endpoints
type RecipeHandler struct {
	service *service.RecipeService
	logger  *logger.Logger
}

// NewRecipeHandler creates a new recipe handler
func NewRecipeHandler(svc *service.RecipeService, log *logger.Logger) *RecipeHandler {
	return &RecipeHandler{
		service: svc,
		logger:  log,
	}
}

// ListLines lists all BOM lines of a product
func (h *RecipeHandler) ListLines(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	lines, err := h.service.ListLines(r.Context(), productID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, lines)
}

// CreateLine adds a line to a product's recipe
func (h *RecipeHandler) CreateLine(w http.ResponseWriter, r *http.Request) {
	var input service.LineInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}

	input.ProductID = chi.URLParam(r, "productId")
	if err := httputil.Validate(&input); err != nil {
		httputil.Error(w, err)
		return
	}

	line, err := h.service.CreateLine(r.Context(), &input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, line)
}

// UpdateLine updates a recipe line
func (h *RecipeHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input service.LineInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}

	line, err := h.service.UpdateLine(r.Context(), id, &input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, line)
}

// DeleteLine removes a recipe line
func (h *RecipeHandler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteLine(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
