package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/database"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/errors"
)

// Movement types and statuses
const (
	MovementTransferOut = "transfer_out"
	MovementTransferIn  = "transfer_in"

	MovementPending   = "pending"
	MovementConfirmed = "confirmed"
)

// Location is a physical or virtual place holding stock: the central
// warehouse receiving area, a production resource's staging area.
type Location struct {
	ID                 string    `db:"id" json:"id"`
	Code               string    `db:"code" json:"code"`
	Name               string    `db:"name" json:"name"`
	ResourceID         *string   `db:"resource_id" json:"resource_id,omitempty"`
	IsCentralWarehouse bool      `db:"is_central_warehouse" json:"is_central_warehouse"`
	IsActive           bool      `db:"is_active" json:"is_active"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// Balance is the on-hand quantity of one product at one location. One row
// per (product, location); never negative; mutated only by confirmed
// movements.
type Balance struct {
	ID             string          `db:"id" json:"id"`
	ProductID      string          `db:"product_id" json:"product_id"`
	LocationID     string          `db:"location_id" json:"location_id"`
	QuantityOnHand decimal.Decimal `db:"quantity_on_hand" json:"quantity_on_hand"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Movement is one side of a two-phase stock movement. A transfer or return
// is a linked OUT/IN pair sharing a pair_id; balances change only when the
// pair is confirmed.
type Movement struct {
	ID             string          `db:"id" json:"id"`
	PairID         string          `db:"pair_id" json:"pair_id"`
	ProductID      string          `db:"product_id" json:"product_id"`
	Quantity       decimal.Decimal `db:"quantity" json:"quantity"`
	LocationFromID string          `db:"location_from_id" json:"location_from_id"`
	LocationToID   string          `db:"location_to_id" json:"location_to_id"`
	Type           string          `db:"type" json:"type"`
	Status         string          `db:"status" json:"status"`
	ReferenceType  *string         `db:"reference_type" json:"reference_type,omitempty"`
	Notes          *string         `db:"notes" json:"notes,omitempty"`
	RecordedBy     string          `db:"recorded_by" json:"recorded_by"`
	AcceptedBy     *string         `db:"accepted_by" json:"accepted_by,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	ConfirmedAt    *time.Time      `db:"confirmed_at" json:"confirmed_at,omitempty"`
}

const movementColumns = `id, pair_id, product_id, quantity, location_from_id, location_to_id, type, status, reference_type, notes, recorded_by, accepted_by, created_at, confirmed_at`

// InventoryRepository handles locations, balances and movements
type InventoryRepository struct {
	db *database.DB
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *database.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// --- Locations ---

// CreateLocation creates a new stock location
func (r *InventoryRepository) CreateLocation(ctx context.Context, loc *Location) error {
	if loc.ID == "" {
		loc.ID = uuid.New().String()
	}

	query := `
		INSERT INTO inventory_locations (id, code, name, resource_id, is_central_warehouse, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		loc.ID, loc.Code, loc.Name, loc.ResourceID, loc.IsCentralWarehouse, loc.IsActive,
	).Scan(&loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetLocation fetches a location by ID
func (r *InventoryRepository) GetLocation(ctx context.Context, id string) (*Location, error) {
	var loc Location
	query := `
		SELECT id, code, name, resource_id, is_central_warehouse, is_active, created_at, updated_at
		FROM inventory_locations WHERE id = $1
	`
	err := r.db.GetContext(ctx, &loc, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("location")
	}
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// GetLocationByResource returns the staging location mapped to a production
// resource. A resource without a mapping cannot receive deliveries.
func (r *InventoryRepository) GetLocationByResource(ctx context.Context, resourceID string) (*Location, error) {
	var loc Location
	query := `
		SELECT id, code, name, resource_id, is_central_warehouse, is_active, created_at, updated_at
		FROM inventory_locations WHERE resource_id = $1 AND is_active
	`
	err := r.db.GetContext(ctx, &loc, query, resourceID)
	if err == sql.ErrNoRows {
		return nil, errors.LocationUnconfigured("no location configured for resource " + resourceID)
	}
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// GetCentralWarehouse returns the central warehouse location. A non-empty
// code pins the lookup to that location code, which keeps deployments with
// several flagged warehouses deterministic; an empty code falls back to the
// is_central_warehouse flag.
func (r *InventoryRepository) GetCentralWarehouse(ctx context.Context, code string) (*Location, error) {
	var loc Location
	query := `
		SELECT id, code, name, resource_id, is_central_warehouse, is_active, created_at, updated_at
		FROM inventory_locations WHERE is_central_warehouse AND is_active
	`
	args := []interface{}{}
	if code != "" {
		query = `
			SELECT id, code, name, resource_id, is_central_warehouse, is_active, created_at, updated_at
			FROM inventory_locations WHERE code = $1 AND is_active
		`
		args = append(args, code)
	}

	err := r.db.GetContext(ctx, &loc, query, args...)
	if err == sql.ErrNoRows {
		return nil, errors.LocationUnconfigured("no central warehouse location configured")
	}
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// ListLocations returns all active locations
func (r *InventoryRepository) ListLocations(ctx context.Context) ([]Location, error) {
	var locs []Location
	query := `
		SELECT id, code, name, resource_id, is_central_warehouse, is_active, created_at, updated_at
		FROM inventory_locations WHERE is_active ORDER BY code
	`
	if err := r.db.SelectContext(ctx, &locs, query); err != nil {
		return nil, err
	}
	return locs, nil
}

// UpdateLocation updates a location's attributes
func (r *InventoryRepository) UpdateLocation(ctx context.Context, loc *Location) error {
	query := `
		UPDATE inventory_locations
		SET code = $2, name = $3, resource_id = $4, is_central_warehouse = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		loc.ID, loc.Code, loc.Name, loc.ResourceID, loc.IsCentralWarehouse, loc.IsActive,
	).Scan(&loc.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.NotFound("location")
	}
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// --- Balances ---

// ListBalances returns balances, optionally filtered by location and product
func (r *InventoryRepository) ListBalances(ctx context.Context, locationID, productID string) ([]Balance, error) {
	var balances []Balance
	query := `
		SELECT id, product_id, location_id, quantity_on_hand, updated_at
		FROM inventory_balances
		WHERE ($1 = '' OR location_id = $1) AND ($2 = '' OR product_id = $2)
		ORDER BY location_id, product_id
	`
	if err := r.db.SelectContext(ctx, &balances, query, locationID, productID); err != nil {
		return nil, err
	}
	return balances, nil
}

// GetBalance returns the on-hand quantity of a product at a location,
// zero when no row exists yet.
func (r *InventoryRepository) GetBalance(ctx context.Context, productID, locationID string) (decimal.Decimal, error) {
	var qty decimal.Decimal
	query := `
		SELECT COALESCE(
			(SELECT quantity_on_hand FROM inventory_balances WHERE product_id = $1 AND location_id = $2),
			0
		)
	`
	if err := r.db.GetContext(ctx, &qty, query, productID, locationID); err != nil {
		return decimal.Zero, err
	}
	return qty, nil
}

// BalancesAt returns the on-hand quantities of the given products at one
// location. Products without a balance row are simply absent from the map.
func (r *InventoryRepository) BalancesAt(ctx context.Context, locationID string, productIDs []string) (map[string]decimal.Decimal, error) {
	balances := make(map[string]decimal.Decimal, len(productIDs))
	if len(productIDs) == 0 {
		return balances, nil
	}

	query := `
		SELECT id, product_id, location_id, quantity_on_hand, updated_at
		FROM inventory_balances
		WHERE location_id = $1 AND product_id = ANY($2)
	`
	var rows []Balance
	if err := r.db.SelectContext(ctx, &rows, query, locationID, pq.Array(productIDs)); err != nil {
		return nil, err
	}
	for _, b := range rows {
		balances[b.ProductID] = b.QuantityOnHand
	}
	return balances, nil
}

// lockBalanceTx ensures the (product, location) balance row exists and locks
// it. Rows are created lazily with a zero quantity the first time a product
// moves through a location.
func (r *InventoryRepository) lockBalanceTx(ctx context.Context, tx *sqlx.Tx, productID, locationID string) (*Balance, error) {
	insert := `
		INSERT INTO inventory_balances (id, product_id, location_id, quantity_on_hand)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (product_id, location_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, insert, uuid.New().String(), productID, locationID); err != nil {
		return nil, err
	}

	var b Balance
	query := `
		SELECT id, product_id, location_id, quantity_on_hand, updated_at
		FROM inventory_balances
		WHERE product_id = $1 AND location_id = $2
		FOR UPDATE
	`
	if err := tx.GetContext(ctx, &b, query, productID, locationID); err != nil {
		return nil, err
	}
	return &b, nil
}

// LockBalancesTx locks the source and destination balance rows of a movement
// in a deterministic order so concurrent confirmations cannot deadlock.
func (r *InventoryRepository) LockBalancesTx(ctx context.Context, tx *sqlx.Tx, productID, fromLocationID, toLocationID string) (from *Balance, to *Balance, err error) {
	first, second := fromLocationID, toLocationID
	if second < first {
		first, second = second, first
	}

	a, err := r.lockBalanceTx(ctx, tx, productID, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := r.lockBalanceTx(ctx, tx, productID, second)
	if err != nil {
		return nil, nil, err
	}

	if a.LocationID == fromLocationID {
		return a, b, nil
	}
	return b, a, nil
}

// AdjustBalanceTx applies a signed delta to a locked balance row
func (r *InventoryRepository) AdjustBalanceTx(ctx context.Context, tx *sqlx.Tx, balanceID string, delta decimal.Decimal) error {
	query := `
		UPDATE inventory_balances
		SET quantity_on_hand = quantity_on_hand + $2, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, query, balanceID, delta); err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// --- Movements ---

// InsertMovementPairTx inserts the linked OUT/IN rows of a pending movement
func (r *InventoryRepository) InsertMovementPairTx(ctx context.Context, tx *sqlx.Tx, out, in *Movement) error {
	query := `
		INSERT INTO inventory_movements
			(id, pair_id, product_id, quantity, location_from_id, location_to_id, type, status, reference_type, notes, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`
	for _, m := range []*Movement{out, in} {
		err := tx.QueryRowxContext(ctx, query,
			m.ID, m.PairID, m.ProductID, m.Quantity, m.LocationFromID, m.LocationToID,
			m.Type, m.Status, m.ReferenceType, m.Notes, m.RecordedBy,
		).Scan(&m.CreatedAt)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}
	}
	return nil
}

// GetMovement fetches a movement by ID
func (r *InventoryRepository) GetMovement(ctx context.Context, id string) (*Movement, error) {
	var m Movement
	query := `SELECT ` + movementColumns + ` FROM inventory_movements WHERE id = $1`
	err := r.db.GetContext(ctx, &m, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("movement")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetPairForUpdateTx returns both sides of a movement pair, locked. The
// caller passes the IN movement's ID; confirmation is driven from the
// receiving side.
func (r *InventoryRepository) GetPairForUpdateTx(ctx context.Context, tx *sqlx.Tx, movementInID string) ([]Movement, error) {
	var pair []Movement
	query := `
		SELECT ` + movementColumns + `
		FROM inventory_movements
		WHERE pair_id = (SELECT pair_id FROM inventory_movements WHERE id = $1)
		ORDER BY type
		FOR UPDATE
	`
	if err := tx.SelectContext(ctx, &pair, query, movementInID); err != nil {
		return nil, err
	}
	if len(pair) == 0 {
		return nil, errors.NotFound("movement")
	}
	return pair, nil
}

// ConfirmPairTx marks both sides of a pair confirmed
func (r *InventoryRepository) ConfirmPairTx(ctx context.Context, tx *sqlx.Tx, pairID, acceptedBy string) error {
	query := `
		UPDATE inventory_movements
		SET status = $2, accepted_by = $3, confirmed_at = NOW()
		WHERE pair_id = $1
	`
	_, err := tx.ExecContext(ctx, query, pairID, MovementConfirmed, acceptedBy)
	return err
}

// ListMovements returns movements filtered by status, newest first
func (r *InventoryRepository) ListMovements(ctx context.Context, status string) ([]Movement, error) {
	var movements []Movement
	query := `
		SELECT ` + movementColumns + `
		FROM inventory_movements
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &movements, query, status); err != nil {
		return nil, err
	}
	return movements, nil
}
