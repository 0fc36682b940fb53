package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/repository"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/errors"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/testutil"
)

func TestRunRepository_LatestEnd_NoRuns(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewRunRepository(mockDB.Wrapped)

	mockDB.ExpectQuery("SELECT MAX(ends_at) FROM production_runs").
		WithArgs("oven-1").
		WillReturnRows(testutil.MockRows("max").AddRow(nil))

	latest, err := repo.LatestEnd(context.Background(), "oven-1")

	require.NoError(t, err)
	assert.Nil(t, latest)
	mockDB.ExpectationsWereMet(t)
}

func TestRunRepository_LatestEnd(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewRunRepository(mockDB.Wrapped)

	end := time.Date(2025, 11, 10, 12, 0, 0, 0, time.UTC)
	mockDB.ExpectQuery("SELECT MAX(ends_at) FROM production_runs").
		WithArgs("oven-1").
		WillReturnRows(testutil.MockRows("max").AddRow(end))

	latest, err := repo.LatestEnd(context.Background(), "oven-1")

	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Equal(end))
	mockDB.ExpectationsWereMet(t)
}

func TestRunRepository_GetByID_NotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewRunRepository(mockDB.Wrapped)

	mockDB.ExpectQuery("FROM production_runs").
		WillReturnRows(testutil.MockRows(
			"id", "resource_id", "product_id", "quantity", "starts_at", "ends_at",
			"created_by", "created_at", "updated_at",
		))

	_, err := repo.GetByID(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	mockDB.ExpectationsWereMet(t)
}

func TestRunRepository_Delete_NotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewRunRepository(mockDB.Wrapped)

	mockDB.ExpectExec("DELETE FROM production_runs").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	mockDB.ExpectationsWereMet(t)
}

func TestRunRepository_ListByRange_FiltersByResource(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewRunRepository(mockDB.Wrapped)

	from := time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	now := time.Now()

	mockDB.ExpectQuery("FROM production_runs").
		WithArgs("oven-1", from, to).
		WillReturnRows(testutil.MockRows(
			"id", "resource_id", "product_id", "quantity", "starts_at", "ends_at",
			"created_by", "created_at", "updated_at",
		).AddRow("r1", "oven-1", "p1", "100", from.Add(6*time.Hour), from.Add(8*time.Hour), "u1", now, now))

	runs, err := repo.ListByRange(context.Background(), "oven-1", from, to)

	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0].ID)
	mockDB.ExpectationsWereMet(t)
}
