package consumers

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/repository"
	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/service"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/logger"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/messaging"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/testutil"
)

func newPurchasingConsumerForTest(t *testing.T) (*PurchasingEventConsumer, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	tracking := repository.NewTrackingRepository(mockDB.Wrapped)
	tracker := service.NewTrackerService(mockDB.Wrapped, tracking, nil, logger.New("test", "test"))
	c := &PurchasingEventConsumer{
		tracker: tracker,
		logger:  logger.New("test", "test"),
	}
	return c, mockDB
}

func TestHandleOrderLineCreated_SnapshotsNeededQuantity(t *testing.T) {
	c, mockDB := newPurchasingConsumerForTest(t)
	defer mockDB.Close()

	date := time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("INSERT INTO explosion_purchase_tracking").
		WithArgs(sqlmock.AnyArg(), "flour", date, "25000", "10000", repository.StatusOrdered, "ol-1").
		WillReturnRows(testutil.MockRows(
			"id", "material_id", "requirement_date", "quantity_needed",
			"quantity_ordered", "quantity_received", "status", "order_line_id",
			"created_at", "updated_at",
		).AddRow("t1", "flour", date, "25000", "10000", "0", repository.StatusOrdered, "ol-1", now, now))
	mockDB.ExpectCommit()

	event, err := messaging.NewEvent(messaging.EventOrderLineCreated, "purchasing-service", "", messaging.OrderLineCreatedEvent{
		OrderLineID:     "ol-1",
		MaterialID:      "flour",
		RequirementDate: "2025-11-08",
		Quantity:        "10000",
		QuantityNeeded:  "25000",
	})
	require.NoError(t, err)

	require.NoError(t, c.handleOrderLineCreated(context.Background(), event))
	mockDB.ExpectationsWereMet(t)
}

func TestHandleOrderLineCreated_MissingNeededQuantityDefaultsToZero(t *testing.T) {
	c, mockDB := newPurchasingConsumerForTest(t)
	defer mockDB.Close()

	date := time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("INSERT INTO explosion_purchase_tracking").
		WithArgs(sqlmock.AnyArg(), "flour", date, "0", "10000", repository.StatusOrdered, "ol-1").
		WillReturnRows(testutil.MockRows(
			"id", "material_id", "requirement_date", "quantity_needed",
			"quantity_ordered", "quantity_received", "status", "order_line_id",
			"created_at", "updated_at",
		).AddRow("t1", "flour", date, "0", "10000", "0", repository.StatusOrdered, "ol-1", now, now))
	mockDB.ExpectCommit()

	event, err := messaging.NewEvent(messaging.EventOrderLineCreated, "purchasing-service", "", messaging.OrderLineCreatedEvent{
		OrderLineID:     "ol-1",
		MaterialID:      "flour",
		RequirementDate: "2025-11-08",
		Quantity:        "10000",
	})
	require.NoError(t, err)

	require.NoError(t, c.handleOrderLineCreated(context.Background(), event))
	mockDB.ExpectationsWereMet(t)
}

func TestHandleOrderLineCreated_DropsMalformedDate(t *testing.T) {
	c, mockDB := newPurchasingConsumerForTest(t)
	defer mockDB.Close()

	event, err := messaging.NewEvent(messaging.EventOrderLineCreated, "purchasing-service", "", messaging.OrderLineCreatedEvent{
		OrderLineID:     "ol-1",
		MaterialID:      "flour",
		RequirementDate: "November 8th",
		Quantity:        "10000",
	})
	require.NoError(t, err)

	assert.NoError(t, c.handleOrderLineCreated(context.Background(), event))
	mockDB.ExpectationsWereMet(t)
}
