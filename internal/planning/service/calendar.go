package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/events"
	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/repository"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/actor"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/database"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/errors"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/logger"
)

// CalendarService owns placement of production runs on shared resources.
//
// Placement and reschedule apply two deliberately different overlap
// policies: creating a run that collides with the existing schedule is
// auto-shifted to start at the latest end on the resource, while editing an
// existing run into a collision is rejected. The schedule is protected from
// destructive edits; creation stays frictionless.
type CalendarService struct {
	db        *database.DB
	runs      *repository.RunRepository
	publisher *events.PlanningEventPublisher
	logger    *logger.Logger
}

// NewCalendarService creates a new calendar service
func NewCalendarService(db *database.DB, runs *repository.RunRepository, publisher *events.PlanningEventPublisher, log *logger.Logger) *CalendarService {
	return &CalendarService{
		db:        db,
		runs:      runs,
		publisher: publisher,
		logger:    log,
	}
}

// PlaceRequest describes a run to place on a resource
type PlaceRequest struct {
	ResourceID string          `json:"resource_id" validate:"required"`
	ProductID  string          `json:"product_id" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity"`
	StartsAt   time.Time       `json:"starts_at" validate:"required"`
	EndsAt     time.Time       `json:"ends_at" validate:"required"`
}

// PlaceResult is the outcome of a placement
type PlaceResult struct {
	Run *repository.ProductionRun `json:"run"`
	// Adjusted reports that the requested slot overlapped the existing
	// schedule and the run was shifted to the end of it.
	Adjusted         bool      `json:"adjusted"`
	RequestedStartAt time.Time `json:"requested_start_at"`
}

// ReschedulePatch carries the fields of a reschedule; nil fields keep the
// run's current value.
type ReschedulePatch struct {
	StartsAt   *time.Time `json:"starts_at,omitempty"`
	EndsAt     *time.Time `json:"ends_at,omitempty"`
	ResourceID *string    `json:"resource_id,omitempty"`
}

// intervalsOverlap reports whether two half-open intervals [aStart, aEnd)
// and [bStart, bEnd) intersect.
func intervalsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// resolvePlacement computes the slot a new run actually gets. When the
// requested slot overlaps any existing run it is shifted to begin at the
// latest end on the resource, keeping the requested duration. Every
// existing run ends at or before that point, so the shifted slot is free.
func resolvePlacement(existing []repository.ProductionRun, start, end time.Time) (time.Time, time.Time, bool) {
	overlaps := false
	var latestEnd time.Time
	for _, run := range existing {
		if intervalsOverlap(start, end, run.StartsAt, run.EndsAt) {
			overlaps = true
		}
		if run.EndsAt.After(latestEnd) {
			latestEnd = run.EndsAt
		}
	}

	if !overlaps {
		return start, end, false
	}

	duration := end.Sub(start)
	return latestEnd, latestEnd.Add(duration), true
}

// overlapsAnyOther reports whether the candidate slot collides with any run
// on the resource other than the run being moved.
func overlapsAnyOther(existing []repository.ProductionRun, excludeRunID string, start, end time.Time) bool {
	for _, run := range existing {
		if run.ID == excludeRunID {
			continue
		}
		if intervalsOverlap(start, end, run.StartsAt, run.EndsAt) {
			return true
		}
	}
	return false
}

// Place places a production run on a resource. Overlapping requests are
// auto-shifted, not rejected; the result reports the adjustment.
func (s *CalendarService) Place(ctx context.Context, req *PlaceRequest) (*PlaceResult, error) {
	if !req.EndsAt.After(req.StartsAt) {
		return nil, errors.InvalidRange("run end must be after run start")
	}
	if !req.Quantity.IsPositive() {
		return nil, errors.Validation(map[string]string{"quantity": "must be greater than zero"})
	}

	result := &PlaceResult{RequestedStartAt: req.StartsAt}

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		existing, err := s.runs.ListByResourceForUpdate(ctx, tx, req.ResourceID)
		if err != nil {
			return err
		}

		start, end, adjusted := resolvePlacement(existing, req.StartsAt, req.EndsAt)

		run := &repository.ProductionRun{
			ResourceID: req.ResourceID,
			ProductID:  req.ProductID,
			Quantity:   req.Quantity,
			StartsAt:   start,
			EndsAt:     end,
			CreatedBy:  actor.IDOrSystem(ctx),
		}
		if err := s.runs.InsertTx(ctx, tx, run); err != nil {
			return err
		}

		result.Run = run
		result.Adjusted = adjusted
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Adjusted {
		s.logger.Info().
			Str("run_id", result.Run.ID).
			Str("resource_id", req.ResourceID).
			Time("requested_start", req.StartsAt).
			Time("placed_start", result.Run.StartsAt).
			Msg("run auto-shifted past existing schedule")
	}

	s.publisher.PublishRunScheduled(ctx, result.Run, result.Adjusted)
	return result, nil
}

// Reschedule moves an existing run. Unlike Place it rejects any resulting
// overlap instead of auto-shifting.
func (s *CalendarService) Reschedule(ctx context.Context, runID string, patch *ReschedulePatch) (*repository.ProductionRun, error) {
	var updated *repository.ProductionRun

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		run, err := s.runs.GetByIDTx(ctx, tx, runID)
		if err != nil {
			return err
		}

		if patch.StartsAt != nil {
			run.StartsAt = *patch.StartsAt
		}
		if patch.EndsAt != nil {
			run.EndsAt = *patch.EndsAt
		}
		if patch.ResourceID != nil {
			run.ResourceID = *patch.ResourceID
		}

		if !run.EndsAt.After(run.StartsAt) {
			return errors.InvalidRange("run end must be after run start")
		}

		existing, err := s.runs.ListByResourceForUpdate(ctx, tx, run.ResourceID)
		if err != nil {
			return err
		}
		if overlapsAnyOther(existing, run.ID, run.StartsAt, run.EndsAt) {
			return errors.ResourceConflict("run would overlap another run on resource " + run.ResourceID)
		}

		if err := s.runs.UpdateScheduleTx(ctx, tx, run); err != nil {
			return err
		}

		updated = run
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishRunRescheduled(ctx, updated)
	return updated, nil
}

// Cancel deletes a run
func (s *CalendarService) Cancel(ctx context.Context, runID string) error {
	if err := s.runs.Delete(ctx, runID); err != nil {
		return err
	}
	s.publisher.PublishRunCancelled(ctx, runID)
	return nil
}

// LatestEnd returns the latest end time on a resource, or nil when the
// resource has no runs. Duplication features build on this.
func (s *CalendarService) LatestEnd(ctx context.Context, resourceID string) (*time.Time, error) {
	return s.runs.LatestEnd(ctx, resourceID)
}

// ListRuns returns runs in a date range, optionally for one resource
func (s *CalendarService) ListRuns(ctx context.Context, resourceID string, from, to time.Time) ([]repository.ProductionRun, error) {
	return s.runs.ListByRange(ctx, resourceID, from, to)
}
