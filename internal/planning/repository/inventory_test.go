package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/repository"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/errors"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/testutil"
)

func TestInventoryRepository_GetLocationByResource_Unmapped(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewInventoryRepository(mockDB.Wrapped)

	mockDB.ExpectQuery("FROM inventory_locations WHERE resource_id = $1").
		WithArgs("oven-9").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "resource_id", "is_central_warehouse", "is_active", "created_at", "updated_at"}))

	_, err := repo.GetLocationByResource(context.Background(), "oven-9")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrLocationUnconfigured))
	mockDB.ExpectationsWereMet(t)
}

func TestInventoryRepository_GetCentralWarehouse_Unconfigured(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewInventoryRepository(mockDB.Wrapped)

	mockDB.ExpectQuery("FROM inventory_locations WHERE is_central_warehouse AND is_active").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "resource_id", "is_central_warehouse", "is_active", "created_at", "updated_at"}))

	_, err := repo.GetCentralWarehouse(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrLocationUnconfigured))
	mockDB.ExpectationsWereMet(t)
}

func TestInventoryRepository_GetCentralWarehouse_PinnedByConfiguredCode(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewInventoryRepository(mockDB.Wrapped)

	rows := sqlmock.NewRows([]string{"id", "code", "name", "resource_id", "is_central_warehouse", "is_active", "created_at", "updated_at"}).
		AddRow("loc-1", "CENTRAL", "Central Warehouse", nil, true, true, time.Now(), time.Now())
	mockDB.ExpectQuery("FROM inventory_locations WHERE code = $1 AND is_active").
		WithArgs("CENTRAL").
		WillReturnRows(rows)

	loc, err := repo.GetCentralWarehouse(context.Background(), "CENTRAL")
	require.NoError(t, err)
	assert.Equal(t, "CENTRAL", loc.Code)
	mockDB.ExpectationsWereMet(t)
}

func TestInventoryRepository_GetBalance_MissingRowIsZero(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewInventoryRepository(mockDB.Wrapped)

	mockDB.ExpectQuery("SELECT COALESCE").
		WithArgs("flour", "loc-central").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("0"))

	qty, err := repo.GetBalance(context.Background(), "flour", "loc-central")
	require.NoError(t, err)
	assert.True(t, qty.IsZero())
	mockDB.ExpectationsWereMet(t)
}

func TestInventoryRepository_BalancesAt_AbsentProductsOmitted(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewInventoryRepository(mockDB.Wrapped)

	rows := sqlmock.NewRows([]string{"id", "product_id", "location_id", "quantity_on_hand", "updated_at"}).
		AddRow("bal-1", "flour", "loc-1", "2500", time.Now())
	mockDB.ExpectQuery("FROM inventory_balances").WillReturnRows(rows)

	balances, err := repo.BalancesAt(context.Background(), "loc-1", []string{"flour", "butter"})
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.True(t, balances["flour"].Equal(decimal.NewFromInt(2500)))
	_, ok := balances["butter"]
	assert.False(t, ok)
	mockDB.ExpectationsWereMet(t)
}

func TestInventoryRepository_BalancesAt_NoProductsNoQuery(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewInventoryRepository(mockDB.Wrapped)

	balances, err := repo.BalancesAt(context.Background(), "loc-1", nil)
	require.NoError(t, err)
	assert.Empty(t, balances)
	mockDB.ExpectationsWereMet(t)
}

func TestInventoryRepository_GetMovement_NotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewInventoryRepository(mockDB.Wrapped)

	mockDB.ExpectQuery("FROM inventory_movements WHERE id = $1").
		WithArgs("mv-missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetMovement(context.Background(), "mv-missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	mockDB.ExpectationsWereMet(t)
}

func TestInventoryRepository_ListMovements_StatusFilter(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewInventoryRepository(mockDB.Wrapped)

	mockDB.ExpectQuery("FROM inventory_movements").
		WithArgs(repository.MovementPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "pair_id", "product_id", "quantity", "location_from_id", "location_to_id", "type", "status", "reference_type", "notes", "recorded_by", "accepted_by", "created_at", "confirmed_at"}))

	movements, err := repo.ListMovements(context.Background(), repository.MovementPending)
	require.NoError(t, err)
	assert.Empty(t, movements)
	mockDB.ExpectationsWereMet(t)
}
