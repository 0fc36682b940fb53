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

// ProductionRun represents a production run placed on a resource's timeline.
// The [StartsAt, EndsAt) interval of a run never overlaps another run on the
// same resource.
type ProductionRun struct {
	ID         string          `db:"id" json:"id"`
	ResourceID string          `db:"resource_id" json:"resource_id"`
	ProductID  string          `db:"product_id" json:"product_id"`
	Quantity   decimal.Decimal `db:"quantity" json:"quantity"`
	StartsAt   time.Time       `db:"starts_at" json:"starts_at"`
	EndsAt     time.Time       `db:"ends_at" json:"ends_at"`
	CreatedBy  string          `db:"created_by" json:"created_by"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// ProductionDate returns the calendar date the run produces on.
func (r *ProductionRun) ProductionDate() time.Time {
	y, m, d := r.StartsAt.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const runColumns = `id, resource_id, product_id, quantity, starts_at, ends_at, created_by, created_at, updated_at`

// RunRepository handles production run persistence
type RunRepository struct {
	db *database.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *database.DB) *RunRepository {
	return &RunRepository{db: db}
}

// ListByResourceForUpdate returns all runs on a resource, serializing
// concurrent writers on that resource for the duration of the enclosing
// transaction. Row locks alone cannot do this: on an empty schedule there is
// no row to lock, and a waiter's snapshot would miss rows the winner inserts.
// The advisory lock covers the resource itself, inserts included.
func (r *RunRepository) ListByResourceForUpdate(ctx context.Context, tx *sqlx.Tx, resourceID string) ([]ProductionRun, error) {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, resourceID); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + runColumns + `
		FROM production_runs
		WHERE resource_id = $1
		ORDER BY starts_at
	`
	var runs []ProductionRun
	if err := tx.SelectContext(ctx, &runs, query, resourceID); err != nil {
		return nil, err
	}
	return runs, nil
}

// InsertTx inserts a run inside an open transaction
func (r *RunRepository) InsertTx(ctx context.Context, tx *sqlx.Tx, run *ProductionRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	query := `
		INSERT INTO production_runs (id, resource_id, product_id, quantity, starts_at, ends_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := tx.QueryRowxContext(ctx, query,
		run.ID, run.ResourceID, run.ProductID, run.Quantity, run.StartsAt, run.EndsAt, run.CreatedBy,
	).Scan(&run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// UpdateScheduleTx rewrites a run's placement inside an open transaction
func (r *RunRepository) UpdateScheduleTx(ctx context.Context, tx *sqlx.Tx, run *ProductionRun) error {
	query := `
		UPDATE production_runs
		SET resource_id = $2, starts_at = $3, ends_at = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := tx.QueryRowxContext(ctx, query, run.ID, run.ResourceID, run.StartsAt, run.EndsAt).Scan(&run.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.NotFound("production run")
	}
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByIDTx fetches a run by ID inside an open transaction, locking the row
func (r *RunRepository) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id string) (*ProductionRun, error) {
	var run ProductionRun
	query := `SELECT ` + runColumns + ` FROM production_runs WHERE id = $1 FOR UPDATE`
	err := tx.GetContext(ctx, &run, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("production run")
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetByID fetches a run by ID
func (r *RunRepository) GetByID(ctx context.Context, id string) (*ProductionRun, error) {
	var run ProductionRun
	query := `SELECT ` + runColumns + ` FROM production_runs WHERE id = $1`
	err := r.db.GetContext(ctx, &run, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("production run")
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Delete removes a run (cancellation)
func (r *RunRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM production_runs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.NotFound("production run")
	}
	return nil
}

// LatestEnd returns the maximum end time across all runs of a resource,
// or nil when the resource has no runs.
func (r *RunRepository) LatestEnd(ctx context.Context, resourceID string) (*time.Time, error) {
	var latest sql.NullTime
	query := `SELECT MAX(ends_at) FROM production_runs WHERE resource_id = $1`
	if err := r.db.GetContext(ctx, &latest, query, resourceID); err != nil {
		return nil, err
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}

// ListByRange returns runs starting inside [from, to), optionally restricted
// to one resource.
func (r *RunRepository) ListByRange(ctx context.Context, resourceID string, from, to time.Time) ([]ProductionRun, error) {
	var runs []ProductionRun
	var err error

	if resourceID != "" {
		query := `
			SELECT ` + runColumns + `
			FROM production_runs
			WHERE resource_id = $1 AND starts_at >= $2 AND starts_at < $3
			ORDER BY starts_at
		`
		err = r.db.SelectContext(ctx, &runs, query, resourceID, from, to)
	} else {
		query := `
			SELECT ` + runColumns + `
			FROM production_runs
			WHERE starts_at >= $1 AND starts_at < $2
			ORDER BY resource_id, starts_at
		`
		err = r.db.SelectContext(ctx, &runs, query, from, to)
	}

	if err != nil {
		return nil, err
	}
	return runs, nil
}
