package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/repository"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/errors"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/testutil"
)

var trackingCols = []string{
	"id", "material_id", "requirement_date", "quantity_needed",
	"quantity_ordered", "quantity_received", "status", "order_line_id",
	"created_at", "updated_at",
}

func TestTrackingRepository_Get_AbsentMeansNotOrdered(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewTrackingRepository(mockDB.Wrapped)

	mockDB.ExpectQuery("FROM explosion_purchase_tracking").
		WillReturnRows(testutil.MockRows(trackingCols...))

	rec, err := repo.Get(context.Background(), "flour", time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Nil(t, rec, "an absent record is not an error")
	mockDB.ExpectationsWereMet(t)
}

func TestTrackingRepository_RecordOrder_ReturnsStoredRecord(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewTrackingRepository(mockDB.Wrapped)

	date := time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	// A second order against the same requirement accumulates in the
	// database; the returned row carries the accumulated quantity.
	mockDB.ExpectBegin()
	mockDB.ExpectQuery("INSERT INTO explosion_purchase_tracking").
		WillReturnRows(testutil.MockRows(trackingCols...).
			AddRow("t1", "flour", date, "30000", "45000", "0", repository.StatusOrdered, "ol-2", now, now))

	tx, err := mockDB.Wrapped.Beginx()
	require.NoError(t, err)

	stored, err := repo.RecordOrderTx(context.Background(), tx, &repository.TrackingRecord{
		MaterialID:      "flour",
		RequirementDate: date,
		QuantityNeeded:  decimal.NewFromInt(30000),
		QuantityOrdered: decimal.NewFromInt(15000),
		Status:          repository.StatusOrdered,
	})

	require.NoError(t, err)
	assert.True(t, stored.QuantityOrdered.Equal(decimal.NewFromInt(45000)))
	require.NotNil(t, stored.OrderLineID)
	assert.Equal(t, "ol-2", *stored.OrderLineID)
	mockDB.ExpectationsWereMet(t)
}

func TestTrackingRepository_RecordReceipt_WithoutOrderFails(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewTrackingRepository(mockDB.Wrapped)

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("UPDATE explosion_purchase_tracking").
		WillReturnRows(testutil.MockRows(trackingCols...))

	tx, err := mockDB.Wrapped.Beginx()
	require.NoError(t, err)

	_, err = repo.RecordReceiptTx(context.Background(), tx, "flour",
		time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC), decimal.NewFromInt(10))

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRequirementNotFound))
	mockDB.ExpectationsWereMet(t)
}
