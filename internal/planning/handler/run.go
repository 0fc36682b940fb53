package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/service"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/errors"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/httputil"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/logger"
)

// RunHandler handles production run endpoints
type RunHandler struct {
	service *service.CalendarService
	logger  *logger.Logger
}

// NewRunHandler creates a new run handler
func NewRunHandler(svc *service.CalendarService, log *logger.Logger) *RunHandler {
	return &RunHandler{
		service: svc,
		logger:  log,
	}
}

// Create places a run on a resource calendar
func (h *RunHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.PlaceRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.Place(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, result)
}

// Update reschedules a run. Unlike creation, a conflicting slot is
// rejected rather than shifted.
func (h *RunHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch service.ReschedulePatch
	if err := httputil.DecodeJSON(r, &patch); err != nil {
		httputil.Error(w, err)
		return
	}

	run, err := h.service.Reschedule(r.Context(), id, &patch)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, run)
}

// Delete cancels a run
func (h *RunHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Cancel(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// List lists runs inside a date range, optionally for one resource
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	runs, err := h.service.ListRuns(r.Context(), r.URL.Query().Get("resource_id"), from, to)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, runs)
}

// LatestEnd returns when a resource's schedule currently ends
func (h *RunHandler) LatestEnd(w http.ResponseWriter, r *http.Request) {
	resourceID := r.URL.Query().Get("resource_id")
	if resourceID == "" {
		httputil.Error(w, errors.BadRequest("resource_id is required"))
		return
	}

	latest, err := h.service.LatestEnd(r.Context(), resourceID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]*time.Time{"latest_end": latest})
}

// parseRange reads the from/to query parameters. Both are required;
// RFC 3339 timestamps and plain dates are accepted.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	from, err := parseTimeParam(r.URL.Query().Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.BadRequest("invalid from parameter")
	}
	to, err := parseTimeParam(r.URL.Query().Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.BadRequest("invalid to parameter")
	}
	return from, to, nil
}

func parseTimeParam(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse(service.DateFormat, value)
}
