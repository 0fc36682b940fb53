package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/database"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/errors"
)

// Procurement tracking statuses, derived from the quantity fields and never
// set independently.
const (
	StatusNotOrdered        = "not_ordered"
	StatusOrdered           = "ordered"
	StatusPartiallyReceived = "partially_received"
	StatusReceived          = "received"
)

// TrackingRecord records ordering and receiving progress against one
// material requirement. Keyed by (material_id, requirement_date); a
// requirement with no record is implicitly not_ordered.
type TrackingRecord struct {
	ID               string          `db:"id" json:"id"`
	MaterialID       string          `db:"material_id" json:"material_id"`
	RequirementDate  time.Time       `db:"requirement_date" json:"requirement_date"`
	QuantityNeeded   decimal.Decimal `db:"quantity_needed" json:"quantity_needed"`
	QuantityOrdered  decimal.Decimal `db:"quantity_ordered" json:"quantity_ordered"`
	QuantityReceived decimal.Decimal `db:"quantity_received" json:"quantity_received"`
	Status           string          `db:"status" json:"status"`
	OrderLineID      *string         `db:"order_line_id" json:"order_line_id,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

const trackingColumns = `id, material_id, requirement_date, quantity_needed, quantity_ordered, quantity_received, status, order_line_id, created_at, updated_at`

// TrackingRepository handles procurement tracking persistence
type TrackingRepository struct {
	db *database.DB
}

// NewTrackingRepository creates a new tracking repository
func NewTrackingRepository(db *database.DB) *TrackingRepository {
	return &TrackingRepository{db: db}
}

// Get returns the tracking record for (material, date), or nil when absent.
// Absence is not an error: it means not_ordered.
func (r *TrackingRepository) Get(ctx context.Context, materialID string, date time.Time) (*TrackingRecord, error) {
	var rec TrackingRecord
	query := `
		SELECT ` + trackingColumns + `
		FROM explosion_purchase_tracking
		WHERE material_id = $1 AND requirement_date = $2
	`
	err := r.db.GetContext(ctx, &rec, query, materialID, date)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// RecordOrderTx creates the tracking record on first order and adds to
// quantity_ordered on subsequent orders, inside an open transaction. The
// latest order line reference wins. Returns the record as stored after the
// write.
func (r *TrackingRepository) RecordOrderTx(ctx context.Context, tx *sqlx.Tx, rec *TrackingRecord) (*TrackingRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	var stored TrackingRecord
	query := `
		INSERT INTO explosion_purchase_tracking
			(id, material_id, requirement_date, quantity_needed, quantity_ordered, quantity_received, status, order_line_id)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
		ON CONFLICT (material_id, requirement_date) DO UPDATE SET
			quantity_ordered = explosion_purchase_tracking.quantity_ordered + EXCLUDED.quantity_ordered,
			order_line_id = EXCLUDED.order_line_id,
			updated_at = NOW()
		RETURNING ` + trackingColumns + `
	`
	err := tx.GetContext(ctx, &stored, query,
		rec.ID, rec.MaterialID, rec.RequirementDate, rec.QuantityNeeded,
		rec.QuantityOrdered, rec.Status, rec.OrderLineID,
	)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return nil, appErr
		}
		return nil, err
	}
	return &stored, nil
}

// RecordReceiptTx adds to quantity_received of an existing record, inside an
// open transaction. Receipts against a requirement with no record are
// rejected: nothing was ordered.
func (r *TrackingRepository) RecordReceiptTx(ctx context.Context, tx *sqlx.Tx, materialID string, date time.Time, quantity decimal.Decimal) (*TrackingRecord, error) {
	var stored TrackingRecord
	query := `
		UPDATE explosion_purchase_tracking
		SET quantity_received = quantity_received + $3, updated_at = NOW()
		WHERE material_id = $1 AND requirement_date = $2
		RETURNING ` + trackingColumns + `
	`
	err := tx.GetContext(ctx, &stored, query, materialID, date, quantity)
	if err == sql.ErrNoRows {
		return nil, errors.RequirementNotFound(materialID, date.Format("2006-01-02"))
	}
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// UpdateStatusTx persists a derived status value inside an open transaction
func (r *TrackingRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id, status string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE explosion_purchase_tracking SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status,
	)
	return err
}

// ListByDateRange returns tracking records with requirement dates inside
// [from, to), ordered for stable rendering.
func (r *TrackingRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]TrackingRecord, error) {
	var recs []TrackingRecord
	query := `
		SELECT ` + trackingColumns + `
		FROM explosion_purchase_tracking
		WHERE requirement_date >= $1 AND requirement_date < $2
		ORDER BY requirement_date, material_id
	`
	if err := r.db.SelectContext(ctx, &recs, query, from, to); err != nil {
		return nil, err
	}
	return recs, nil
}
