package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/repository"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/database"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/errors"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/logger"
)

// RecipeService owns bill-of-materials writes. Every write to a line of a
// weight-normalized product triggers an explicit renormalization of that
// product's active lines inside the same transaction: quantity_needed
// becomes original_quantity / sum(original_quantity), so the active lines
// always sum to 1 while original_quantity keeps the user's literal input.
type RecipeService struct {
	db      *database.DB
	recipes *repository.RecipeRepository
	logger  *logger.Logger
}

// NewRecipeService creates a new recipe service
func NewRecipeService(db *database.DB, recipes *repository.RecipeRepository, log *logger.Logger) *RecipeService {
	return &RecipeService{
		db:      db,
		recipes: recipes,
		logger:  log,
	}
}

// NormalizeLines recomputes quantity_needed of each line as its
// original_quantity divided by the sum of all original quantities. Lines
// are returned in input order; an all-zero set is returned unchanged since
// there is nothing to scale against.
func NormalizeLines(lines []repository.RecipeLine) []repository.RecipeLine {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.OriginalQuantity)
	}
	if total.IsZero() {
		return lines
	}

	out := make([]repository.RecipeLine, len(lines))
	copy(out, lines)
	for i := range out {
		out[i].QuantityNeeded = out[i].OriginalQuantity.Div(total)
	}
	return out
}

// LineInput carries the writable fields of a recipe line
type LineInput struct {
	ProductID   string          `json:"product_id" validate:"required"`
	MaterialID  string          `json:"material_id" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	OperationID *string         `json:"operation_id,omitempty"`
	IsActive    *bool           `json:"is_active,omitempty"`
}

// ListLines returns all BOM lines of a product
func (s *RecipeService) ListLines(ctx context.Context, productID string) ([]repository.RecipeLine, error) {
	return s.recipes.ListByProduct(ctx, productID)
}

// CreateLine adds a BOM line and renormalizes the product when it is
// weight-normalized.
func (s *RecipeService) CreateLine(ctx context.Context, input *LineInput) (*repository.RecipeLine, error) {
	if !input.Quantity.IsPositive() {
		return nil, errors.Validation(map[string]string{"quantity": "must be greater than zero"})
	}

	product, err := s.recipes.GetProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	line := &repository.RecipeLine{
		ProductID:        input.ProductID,
		MaterialID:       input.MaterialID,
		QuantityNeeded:   input.Quantity,
		OriginalQuantity: input.Quantity,
		OperationID:      input.OperationID,
		IsActive:         true,
	}
	if input.IsActive != nil {
		line.IsActive = *input.IsActive
	}

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.recipes.InsertLineTx(ctx, tx, line); err != nil {
			return err
		}
		return s.renormalizeTx(ctx, tx, product)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// UpdateLine rewrites a BOM line and renormalizes the product when it is
// weight-normalized. The submitted quantity becomes the new
// original_quantity.
func (s *RecipeService) UpdateLine(ctx context.Context, lineID string, input *LineInput) (*repository.RecipeLine, error) {
	if !input.Quantity.IsPositive() {
		return nil, errors.Validation(map[string]string{"quantity": "must be greater than zero"})
	}

	line, err := s.recipes.GetLine(ctx, lineID)
	if err != nil {
		return nil, err
	}

	product, err := s.recipes.GetProduct(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}

	line.QuantityNeeded = input.Quantity
	line.OriginalQuantity = input.Quantity
	line.OperationID = input.OperationID
	if input.IsActive != nil {
		line.IsActive = *input.IsActive
	}

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.recipes.UpdateLineTx(ctx, tx, line); err != nil {
			return err
		}
		return s.renormalizeTx(ctx, tx, product)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// DeleteLine removes a BOM line and renormalizes the remaining lines of a
// weight-normalized product.
func (s *RecipeService) DeleteLine(ctx context.Context, lineID string) error {
	line, err := s.recipes.GetLine(ctx, lineID)
	if err != nil {
		return err
	}

	product, err := s.recipes.GetProduct(ctx, line.ProductID)
	if err != nil {
		return err
	}

	return s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.recipes.DeleteLineTx(ctx, tx, lineID); err != nil {
			return err
		}
		return s.renormalizeTx(ctx, tx, product)
	})
}

// renormalizeTx recomputes and saves the active lines of one product. A
// no-op for products without weight normalization; their quantity_needed
// stays the literal entered value.
func (s *RecipeService) renormalizeTx(ctx context.Context, tx *sqlx.Tx, product *repository.Product) error {
	if !product.WeightNormalized {
		return nil
	}

	lines, err := s.recipes.ListActiveByProductTx(ctx, tx, product.ID)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}

	normalized := NormalizeLines(lines)
	if err := s.recipes.SaveNormalizedTx(ctx, tx, normalized); err != nil {
		return err
	}

	s.logger.Debug().
		Str("product_id", product.ID).
		Int("lines", len(normalized)).
		Msg("recipe renormalized")
	return nil
}
