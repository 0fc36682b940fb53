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

// Product categories. Only raw materials feed the purchase explosion;
// semi-finished products carry their own recipes and are exploded in a
// separate single-level pass.
const (
	CategoryRawMaterial  = "raw_material"
	CategorySemiFinished = "semi_finished"
	CategoryFinished     = "finished"
)

// Product is the catalog entry a recipe or balance refers to
type Product struct {
	ID               string    `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	Category         string    `db:"category" json:"category"`
	Unit             string    `db:"unit" json:"unit"`
	WeightNormalized bool      `db:"weight_normalized" json:"weight_normalized"`
	IsActive         bool      `db:"is_active" json:"is_active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// RecipeLine is one bill-of-materials entry: the quantity of one material
// needed to produce one unit of a product. For weight-normalized products
// QuantityNeeded is OriginalQuantity divided by the sum of the product's
// active original quantities, so the active lines always sum to 1;
// OriginalQuantity preserves the user's literal input so renormalization
// is lossless and repeatable.
type RecipeLine struct {
	ID               string          `db:"id" json:"id"`
	ProductID        string          `db:"product_id" json:"product_id"`
	MaterialID       string          `db:"material_id" json:"material_id"`
	QuantityNeeded   decimal.Decimal `db:"quantity_needed" json:"quantity_needed"`
	OriginalQuantity decimal.Decimal `db:"original_quantity" json:"original_quantity"`
	OperationID      *string         `db:"operation_id" json:"operation_id,omitempty"`
	IsActive         bool            `db:"is_active" json:"is_active"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`

	// Joined material attributes, populated by explosion queries
	MaterialName     string `db:"material_name" json:"material_name,omitempty"`
	MaterialUnit     string `db:"material_unit" json:"material_unit,omitempty"`
	MaterialCategory string `db:"material_category" json:"material_category,omitempty"`
}

// RecipeRepository handles bill-of-materials persistence
type RecipeRepository struct {
	db *database.DB
}

// NewRecipeRepository creates a new recipe repository
func NewRecipeRepository(db *database.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// GetProduct fetches a product by ID
func (r *RecipeRepository) GetProduct(ctx context.Context, id string) (*Product, error) {
	var p Product
	query := `
		SELECT id, name, category, unit, weight_normalized, is_active, created_at, updated_at
		FROM products WHERE id = $1
	`
	err := r.db.GetContext(ctx, &p, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("product")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByProduct returns all BOM lines of a product, active and inactive
func (r *RecipeRepository) ListByProduct(ctx context.Context, productID string) ([]RecipeLine, error) {
	var lines []RecipeLine
	query := `
		SELECT b.id, b.product_id, b.material_id, b.quantity_needed, b.original_quantity,
		       b.operation_id, b.is_active, b.created_at, b.updated_at,
		       m.name AS material_name, m.unit AS material_unit, m.category AS material_category
		FROM bill_of_materials b
		JOIN products m ON m.id = b.material_id
		WHERE b.product_id = $1
		ORDER BY b.created_at
	`
	if err := r.db.SelectContext(ctx, &lines, query, productID); err != nil {
		return nil, err
	}
	return lines, nil
}

// ListActiveByProducts returns the active BOM lines of the given products
// together with the material attributes the explosion needs.
func (r *RecipeRepository) ListActiveByProducts(ctx context.Context, productIDs []string) ([]RecipeLine, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	var lines []RecipeLine
	query := `
		SELECT b.id, b.product_id, b.material_id, b.quantity_needed, b.original_quantity,
		       b.operation_id, b.is_active, b.created_at, b.updated_at,
		       m.name AS material_name, m.unit AS material_unit, m.category AS material_category
		FROM bill_of_materials b
		JOIN products m ON m.id = b.material_id
		WHERE b.product_id = ANY($1) AND b.is_active
		ORDER BY b.product_id, b.created_at
	`
	if err := r.db.SelectContext(ctx, &lines, query, pq.Array(productIDs)); err != nil {
		return nil, err
	}
	return lines, nil
}

// GetLine fetches a single BOM line
func (r *RecipeRepository) GetLine(ctx context.Context, id string) (*RecipeLine, error) {
	var line RecipeLine
	query := `
		SELECT id, product_id, material_id, quantity_needed, original_quantity,
		       operation_id, is_active, created_at, updated_at
		FROM bill_of_materials WHERE id = $1
	`
	err := r.db.GetContext(ctx, &line, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("recipe line")
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// InsertLineTx inserts a BOM line inside an open transaction
func (r *RecipeRepository) InsertLineTx(ctx context.Context, tx *sqlx.Tx, line *RecipeLine) error {
	if line.ID == "" {
		line.ID = uuid.New().String()
	}

	query := `
		INSERT INTO bill_of_materials (id, product_id, material_id, quantity_needed, original_quantity, operation_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := tx.QueryRowxContext(ctx, query,
		line.ID, line.ProductID, line.MaterialID, line.QuantityNeeded,
		line.OriginalQuantity, line.OperationID, line.IsActive,
	).Scan(&line.CreatedAt, &line.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// UpdateLineTx updates a BOM line inside an open transaction
func (r *RecipeRepository) UpdateLineTx(ctx context.Context, tx *sqlx.Tx, line *RecipeLine) error {
	query := `
		UPDATE bill_of_materials
		SET quantity_needed = $2, original_quantity = $3, operation_id = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := tx.QueryRowxContext(ctx, query,
		line.ID, line.QuantityNeeded, line.OriginalQuantity, line.OperationID, line.IsActive,
	).Scan(&line.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.NotFound("recipe line")
	}
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// DeleteLineTx deletes a BOM line inside an open transaction
func (r *RecipeRepository) DeleteLineTx(ctx context.Context, tx *sqlx.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM bill_of_materials WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.NotFound("recipe line")
	}
	return nil
}

// ListActiveByProductTx returns the active lines of one product, locked for
// the duration of the transaction. Renormalization reads this set.
func (r *RecipeRepository) ListActiveByProductTx(ctx context.Context, tx *sqlx.Tx, productID string) ([]RecipeLine, error) {
	var lines []RecipeLine
	query := `
		SELECT id, product_id, material_id, quantity_needed, original_quantity,
		       operation_id, is_active, created_at, updated_at
		FROM bill_of_materials
		WHERE product_id = $1 AND is_active
		ORDER BY created_at
		FOR UPDATE
	`
	if err := tx.SelectContext(ctx, &lines, query, productID); err != nil {
		return nil, err
	}
	return lines, nil
}

// SaveNormalizedTx persists the recomputed quantity_needed of each line
func (r *RecipeRepository) SaveNormalizedTx(ctx context.Context, tx *sqlx.Tx, lines []RecipeLine) error {
	query := `UPDATE bill_of_materials SET quantity_needed = $2, updated_at = NOW() WHERE id = $1`
	for i := range lines {
		if _, err := tx.ExecContext(ctx, query, lines[i].ID, lines[i].QuantityNeeded); err != nil {
			return err
		}
	}
	return nil
}
