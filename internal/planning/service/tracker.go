package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/events"
	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/repository"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/database"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/errors"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/logger"
)

// TrackerService records ordering and receiving progress against derived
// material requirements. The status of a record is always a function of
// its quantities; it is recomputed and stored on every write, never set by
// a caller.
type TrackerService struct {
	db        *database.DB
	tracking  *repository.TrackingRepository
	publisher *events.PlanningEventPublisher
	logger    *logger.Logger
}

// NewTrackerService creates a new tracker service
func NewTrackerService(db *database.DB, tracking *repository.TrackingRepository, publisher *events.PlanningEventPublisher, log *logger.Logger) *TrackerService {
	return &TrackerService{
		db:        db,
		tracking:  tracking,
		publisher: publisher,
		logger:    log,
	}
}

// DeriveStatus maps the quantity fields of a tracking record to its status
func DeriveStatus(ordered, received decimal.Decimal) string {
	switch {
	case !ordered.IsPositive():
		return repository.StatusNotOrdered
	case !received.IsPositive():
		return repository.StatusOrdered
	case received.GreaterThanOrEqual(ordered):
		return repository.StatusReceived
	default:
		return repository.StatusPartiallyReceived
	}
}

// OrderInput describes a purchase order line recorded against a requirement
type OrderInput struct {
	MaterialID      string
	RequirementDate time.Time
	QuantityOrdered decimal.Decimal
	// QuantityNeeded snapshots the requirement at the moment of the first
	// order; later orders against the same requirement leave it untouched.
	QuantityNeeded decimal.Decimal
	OrderLineID    *string
}

// RecordOrder creates or extends the tracking record for a requirement.
// Multiple partial purchase orders against the same requirement accumulate
// into quantity_ordered; the latest order line reference is kept. The upsert
// and the derived-status write commit together or not at all.
func (s *TrackerService) RecordOrder(ctx context.Context, input *OrderInput) (*repository.TrackingRecord, error) {
	if !input.QuantityOrdered.IsPositive() {
		return nil, errors.Validation(map[string]string{"quantity_ordered": "must be greater than zero"})
	}

	rec := &repository.TrackingRecord{
		MaterialID:      input.MaterialID,
		RequirementDate: dateOnly(input.RequirementDate),
		QuantityNeeded:  input.QuantityNeeded,
		QuantityOrdered: input.QuantityOrdered,
		Status:          repository.StatusOrdered,
		OrderLineID:     input.OrderLineID,
	}

	var stored *repository.TrackingRecord
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		var err error
		stored, err = s.tracking.RecordOrderTx(ctx, tx, rec)
		if err != nil {
			return err
		}
		return s.refreshStatusTx(ctx, tx, stored)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishRequirementOrdered(ctx, stored)
	return stored, nil
}

// RecordReceipt books received goods against a requirement. The tracking
// record must exist: receiving without ordering is a caller error.
func (s *TrackerService) RecordReceipt(ctx context.Context, materialID string, requirementDate time.Time, quantity decimal.Decimal) (*repository.TrackingRecord, error) {
	if !quantity.IsPositive() {
		return nil, errors.Validation(map[string]string{"quantity_received": "must be greater than zero"})
	}

	var stored *repository.TrackingRecord
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		var err error
		stored, err = s.tracking.RecordReceiptTx(ctx, tx, materialID, dateOnly(requirementDate), quantity)
		if err != nil {
			return err
		}
		return s.refreshStatusTx(ctx, tx, stored)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishRequirementReceived(ctx, stored)
	return stored, nil
}

// StatusFor returns the tracking record for (material, date). A missing
// record is not an error: it comes back as a zero-quantity record in
// not_ordered state.
func (s *TrackerService) StatusFor(ctx context.Context, materialID string, requirementDate time.Time) (*repository.TrackingRecord, error) {
	rec, err := s.tracking.Get(ctx, materialID, dateOnly(requirementDate))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &repository.TrackingRecord{
			MaterialID:      materialID,
			RequirementDate: dateOnly(requirementDate),
			Status:          repository.StatusNotOrdered,
		}, nil
	}
	return rec, nil
}

// ListRange returns tracking records with requirement dates inside [from, to)
func (s *TrackerService) ListRange(ctx context.Context, from, to time.Time) ([]repository.TrackingRecord, error) {
	return s.tracking.ListByDateRange(ctx, dateOnly(from), dateOnly(to))
}

// refreshStatusTx re-derives the status from the stored quantities and
// persists it in the same transaction when it changed.
func (s *TrackerService) refreshStatusTx(ctx context.Context, tx *sqlx.Tx, rec *repository.TrackingRecord) error {
	derived := DeriveStatus(rec.QuantityOrdered, rec.QuantityReceived)
	if derived == rec.Status {
		return nil
	}
	if err := s.tracking.UpdateStatusTx(ctx, tx, rec.ID, derived); err != nil {
		return err
	}
	rec.Status = derived
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
