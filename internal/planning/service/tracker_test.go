package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/repository"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/logger"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/testutil"
)

func TestDeriveStatus(t *testing.T) {
	d := func(v string) decimal.Decimal { return decimal.RequireFromString(v) }

	tests := []struct {
		name     string
		ordered  string
		received string
		want     string
	}{
		{"nothing ordered", "0", "0", repository.StatusNotOrdered},
		{"ordered, nothing received", "100", "0", repository.StatusOrdered},
		{"partial receipt", "100", "40", repository.StatusPartiallyReceived},
		{"full receipt", "100", "100", repository.StatusReceived},
		{"over receipt", "100", "120", repository.StatusReceived},
		{"received without order", "0", "50", repository.StatusNotOrdered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(d(tt.ordered), d(tt.received)))
		})
	}
}

func newTrackerTestService(t *testing.T) (*TrackerService, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	tracking := repository.NewTrackingRepository(mockDB.Wrapped)
	svc := NewTrackerService(mockDB.Wrapped, tracking, nil, logger.New("test", "test"))
	return svc, mockDB
}

func TestStatusFor_MissingRecordIsNotOrdered(t *testing.T) {
	svc, mockDB := newTrackerTestService(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("SELECT").WillReturnRows(testutil.MockRows(
		"id", "material_id", "requirement_date", "quantity_needed",
		"quantity_ordered", "quantity_received", "status", "order_line_id",
		"created_at", "updated_at",
	))

	date := time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC)
	rec, err := svc.StatusFor(context.Background(), "flour", date)

	require.NoError(t, err)
	assert.Equal(t, repository.StatusNotOrdered, rec.Status)
	assert.Equal(t, "flour", rec.MaterialID)
	assert.True(t, rec.QuantityOrdered.IsZero())
	mockDB.ExpectationsWereMet(t)
}

func TestRecordOrder_RejectsNonPositiveQuantity(t *testing.T) {
	svc, mockDB := newTrackerTestService(t)
	defer mockDB.Close()

	_, err := svc.RecordOrder(context.Background(), &OrderInput{
		MaterialID:      "flour",
		RequirementDate: time.Now(),
		QuantityOrdered: decimal.Zero,
	})

	require.Error(t, err)
}

func TestRecordOrder_DerivesAndPersistsStatus(t *testing.T) {
	svc, mockDB := newTrackerTestService(t)
	defer mockDB.Close()

	date := time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	// Upsert returns the record as stored with the placeholder status,
	// then the derived status is written back; both inside one transaction.
	mockDB.ExpectBegin()
	mockDB.ExpectQuery("INSERT INTO explosion_purchase_tracking").WillReturnRows(
		testutil.MockRows(
			"id", "material_id", "requirement_date", "quantity_needed",
			"quantity_ordered", "quantity_received", "status", "order_line_id",
			"created_at", "updated_at",
		).AddRow("t1", "flour", date, "30000", "30000", "0", repository.StatusOrdered, nil, now, now),
	)
	mockDB.ExpectCommit()

	rec, err := svc.RecordOrder(context.Background(), &OrderInput{
		MaterialID:      "flour",
		RequirementDate: date,
		QuantityOrdered: decimal.NewFromInt(30000),
		QuantityNeeded:  decimal.NewFromInt(30000),
	})

	require.NoError(t, err)
	assert.Equal(t, repository.StatusOrdered, rec.Status)
	mockDB.ExpectationsWereMet(t)
}

func TestRecordReceipt_PartialThenFull(t *testing.T) {
	svc, mockDB := newTrackerTestService(t)
	defer mockDB.Close()

	date := time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	cols := []string{
		"id", "material_id", "requirement_date", "quantity_needed",
		"quantity_ordered", "quantity_received", "status", "order_line_id",
		"created_at", "updated_at",
	}

	// Partial receipt: record comes back with 40 of 100 received, so the
	// derived status flips to partially_received and is persisted.
	mockDB.ExpectBegin()
	mockDB.ExpectQuery("UPDATE explosion_purchase_tracking").WillReturnRows(
		testutil.MockRows(cols...).
			AddRow("t1", "flour", date, "100", "100", "40", repository.StatusOrdered, nil, now, now),
	)
	mockDB.ExpectExec("UPDATE explosion_purchase_tracking SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	rec, err := svc.RecordReceipt(context.Background(), "flour", date, decimal.NewFromInt(40))
	require.NoError(t, err)
	assert.Equal(t, repository.StatusPartiallyReceived, rec.Status)

	// Remainder arrives: received reaches ordered.
	mockDB.ExpectBegin()
	mockDB.ExpectQuery("UPDATE explosion_purchase_tracking").WillReturnRows(
		testutil.MockRows(cols...).
			AddRow("t1", "flour", date, "100", "100", "100", repository.StatusPartiallyReceived, nil, now, now),
	)
	mockDB.ExpectExec("UPDATE explosion_purchase_tracking SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	rec, err = svc.RecordReceipt(context.Background(), "flour", date, decimal.NewFromInt(60))
	require.NoError(t, err)
	assert.Equal(t, repository.StatusReceived, rec.Status)
	mockDB.ExpectationsWereMet(t)
}

func TestRecordReceipt_StatusWriteFailureRollsBackQuantities(t *testing.T) {
	svc, mockDB := newTrackerTestService(t)
	defer mockDB.Close()

	date := time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	cols := []string{
		"id", "material_id", "requirement_date", "quantity_needed",
		"quantity_ordered", "quantity_received", "status", "order_line_id",
		"created_at", "updated_at",
	}

	// The quantity update succeeds but the status write fails; the whole
	// operation rolls back so the stored record never carries a quantity
	// that disagrees with its status.
	mockDB.ExpectBegin()
	mockDB.ExpectQuery("UPDATE explosion_purchase_tracking").WillReturnRows(
		testutil.MockRows(cols...).
			AddRow("t1", "flour", date, "100", "100", "40", repository.StatusOrdered, nil, now, now),
	)
	mockDB.ExpectExec("UPDATE explosion_purchase_tracking SET status").
		WillReturnError(sqlmock.ErrCancelled)
	mockDB.ExpectRollback()

	_, err := svc.RecordReceipt(context.Background(), "flour", date, decimal.NewFromInt(40))
	require.Error(t, err)
	mockDB.ExpectationsWereMet(t)
}
