package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/repository"
)

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

func (f *FixtureFactory) next() int {
	f.sequence++
	return f.sequence
}

// RawMaterial creates a raw material product fixture
func (f *FixtureFactory) RawMaterial(name string) *repository.Product {
	n := f.next()
	if name == "" {
		name = fmt.Sprintf("Flour %d", n)
	}
	return &repository.Product{
		ID:        uuid.New().String(),
		Name:      name,
		Category:  repository.CategoryRawMaterial,
		Unit:      "g",
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// SemiFinished creates a semi-finished product fixture
func (f *FixtureFactory) SemiFinished(name string) *repository.Product {
	n := f.next()
	if name == "" {
		name = fmt.Sprintf("Dough %d", n)
	}
	return &repository.Product{
		ID:        uuid.New().String(),
		Name:      name,
		Category:  repository.CategorySemiFinished,
		Unit:      "g",
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// FinishedProduct creates a finished product fixture
func (f *FixtureFactory) FinishedProduct(name string, weightNormalized bool) *repository.Product {
	n := f.next()
	if name == "" {
		name = fmt.Sprintf("Croissant %d", n)
	}
	return &repository.Product{
		ID:               uuid.New().String(),
		Name:             name,
		Category:         repository.CategoryFinished,
		Unit:             "unit",
		WeightNormalized: weightNormalized,
		IsActive:         true,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
}

// RecipeLine creates an active BOM line linking a product to a material
func (f *FixtureFactory) RecipeLine(product, material *repository.Product, grams float64) *repository.RecipeLine {
	qty := decimal.NewFromFloat(grams)
	return &repository.RecipeLine{
		ID:               uuid.New().String(),
		ProductID:        product.ID,
		MaterialID:       material.ID,
		QuantityNeeded:   qty,
		OriginalQuantity: qty,
		IsActive:         true,
		MaterialName:     material.Name,
		MaterialUnit:     material.Unit,
		MaterialCategory: material.Category,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
}

// Run creates a production run fixture on a resource
func (f *FixtureFactory) Run(resourceID string, product *repository.Product, quantity float64, start time.Time, duration time.Duration) *repository.ProductionRun {
	return &repository.ProductionRun{
		ID:         uuid.New().String(),
		ResourceID: resourceID,
		ProductID:  product.ID,
		Quantity:   decimal.NewFromFloat(quantity),
		StartsAt:   start,
		EndsAt:     start.Add(duration),
		CreatedBy:  uuid.New().String(),
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

// CentralWarehouse creates the central warehouse location fixture
func (f *FixtureFactory) CentralWarehouse() *repository.Location {
	return &repository.Location{
		ID:                 uuid.New().String(),
		Code:               "CENTRAL",
		Name:               "Central Warehouse",
		IsCentralWarehouse: true,
		IsActive:           true,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
}

// ResourceLocation creates a staging location mapped to a production resource
func (f *FixtureFactory) ResourceLocation(resourceID string) *repository.Location {
	n := f.next()
	return &repository.Location{
		ID:         uuid.New().String(),
		Code:       fmt.Sprintf("LINE-%d", n),
		Name:       fmt.Sprintf("Production Line %d", n),
		ResourceID: &resourceID,
		IsActive:   true,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

// Balance creates a balance row fixture
func (f *FixtureFactory) Balance(productID, locationID string, quantity float64) *repository.Balance {
	return &repository.Balance{
		ID:             uuid.New().String(),
		ProductID:      productID,
		LocationID:     locationID,
		QuantityOnHand: decimal.NewFromFloat(quantity),
		UpdatedAt:      time.Now(),
	}
}

// PendingPair creates a pending movement pair fixture
func (f *FixtureFactory) PendingPair(productID, fromID, toID string, quantity float64) (*repository.Movement, *repository.Movement) {
	pairID := uuid.New().String()
	qty := decimal.NewFromFloat(quantity)

	out := &repository.Movement{
		ID:             uuid.New().String(),
		PairID:         pairID,
		ProductID:      productID,
		Quantity:       qty,
		LocationFromID: fromID,
		LocationToID:   toID,
		Type:           repository.MovementTransferOut,
		Status:         repository.MovementPending,
		RecordedBy:     uuid.New().String(),
		CreatedAt:      time.Now(),
	}
	in := &repository.Movement{
		ID:             uuid.New().String(),
		PairID:         pairID,
		ProductID:      productID,
		Quantity:       qty,
		LocationFromID: fromID,
		LocationToID:   toID,
		Type:           repository.MovementTransferIn,
		Status:         repository.MovementPending,
		RecordedBy:     out.RecordedBy,
		CreatedAt:      time.Now(),
	}
	return out, in
}
