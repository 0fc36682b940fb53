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
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/errors"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/logger"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/testutil"
)

func day(hour, min int) time.Time {
	return time.Date(2025, 11, 10, hour, min, 0, 0, time.UTC)
}

func existingRun(id string, start, end time.Time) repository.ProductionRun {
	return repository.ProductionRun{
		ID:         id,
		ResourceID: "oven-1",
		ProductID:  "product-1",
		Quantity:   decimal.NewFromInt(100),
		StartsAt:   start,
		EndsAt:     end,
	}
}

func TestIntervalsOverlap(t *testing.T) {
	tests := []struct {
		name   string
		aStart, aEnd, bStart, bEnd time.Time
		want   bool
	}{
		{"disjoint before", day(6, 0), day(7, 0), day(8, 0), day(9, 0), false},
		{"disjoint after", day(10, 0), day(11, 0), day(8, 0), day(9, 0), false},
		{"partial overlap", day(9, 0), day(11, 0), day(8, 0), day(10, 0), true},
		{"contained", day(8, 30), day(9, 30), day(8, 0), day(10, 0), true},
		{"identical", day(8, 0), day(10, 0), day(8, 0), day(10, 0), true},
		{"touching end to start", day(8, 0), day(10, 0), day(10, 0), day(12, 0), false},
		{"touching start to end", day(10, 0), day(12, 0), day(8, 0), day(10, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, intervalsOverlap(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
		})
	}
}

func TestResolvePlacement_FreeSlotKeptAsRequested(t *testing.T) {
	existing := []repository.ProductionRun{
		existingRun("r1", day(8, 0), day(10, 0)),
	}

	start, end, adjusted := resolvePlacement(existing, day(12, 0), day(14, 0))

	assert.False(t, adjusted)
	assert.Equal(t, day(12, 0), start)
	assert.Equal(t, day(14, 0), end)
}

func TestResolvePlacement_OverlapShiftsToLatestEnd(t *testing.T) {
	existing := []repository.ProductionRun{
		existingRun("r1", day(8, 0), day(10, 0)),
	}

	// Requested 09:00-11:00 collides with 08:00-10:00 and lands on
	// 10:00-12:00, keeping the two hour duration.
	start, end, adjusted := resolvePlacement(existing, day(9, 0), day(11, 0))

	assert.True(t, adjusted)
	assert.Equal(t, day(10, 0), start)
	assert.Equal(t, day(12, 0), end)
}

func TestResolvePlacement_ShiftsPastLatestEndOfAllRuns(t *testing.T) {
	existing := []repository.ProductionRun{
		existingRun("r1", day(8, 0), day(10, 0)),
		existingRun("r2", day(13, 0), day(15, 0)),
	}

	// Overlapping only the first run still shifts past the last one, so
	// the shifted slot cannot collide again.
	start, end, adjusted := resolvePlacement(existing, day(9, 0), day(9, 30))

	assert.True(t, adjusted)
	assert.Equal(t, day(15, 0), start)
	assert.Equal(t, day(15, 30), end)
}

func TestResolvePlacement_EmptySchedule(t *testing.T) {
	start, end, adjusted := resolvePlacement(nil, day(9, 0), day(11, 0))

	assert.False(t, adjusted)
	assert.Equal(t, day(9, 0), start)
	assert.Equal(t, day(11, 0), end)
}

func TestOverlapsAnyOther_IgnoresTheMovedRun(t *testing.T) {
	existing := []repository.ProductionRun{
		existingRun("r1", day(8, 0), day(10, 0)),
		existingRun("r2", day(10, 0), day(12, 0)),
	}

	// Moving r1 within its own slot is fine.
	assert.False(t, overlapsAnyOther(existing, "r1", day(8, 30), day(9, 30)))
	// Moving r1 onto r2 is not.
	assert.True(t, overlapsAnyOther(existing, "r1", day(11, 0), day(13, 0)))
}

func newCalendarTestService(t *testing.T) (*CalendarService, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	runs := repository.NewRunRepository(mockDB.Wrapped)
	svc := NewCalendarService(mockDB.Wrapped, runs, nil, logger.New("test", "test"))
	return svc, mockDB
}

func TestPlace_RejectsInvertedRange(t *testing.T) {
	svc, mockDB := newCalendarTestService(t)
	defer mockDB.Close()

	_, err := svc.Place(context.Background(), &PlaceRequest{
		ResourceID: "oven-1",
		ProductID:  "product-1",
		Quantity:   decimal.NewFromInt(10),
		StartsAt:   day(10, 0),
		EndsAt:     day(9, 0),
	})

	require.Error(t, err)
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "INVALID_RANGE", appErr.Code)
}

func TestPlace_RejectsNonPositiveQuantity(t *testing.T) {
	svc, mockDB := newCalendarTestService(t)
	defer mockDB.Close()

	_, err := svc.Place(context.Background(), &PlaceRequest{
		ResourceID: "oven-1",
		ProductID:  "product-1",
		Quantity:   decimal.Zero,
		StartsAt:   day(9, 0),
		EndsAt:     day(10, 0),
	})

	require.Error(t, err)
}

func TestPlace_AutoShiftsOverlappingRequest(t *testing.T) {
	svc, mockDB := newCalendarTestService(t)
	defer mockDB.Close()

	runColumns := []string{"id", "resource_id", "product_id", "quantity", "starts_at", "ends_at", "created_by", "created_at", "updated_at"}
	now := time.Now()

	mockDB.ExpectBegin()
	mockDB.ExpectExec("pg_advisory_xact_lock").
		WithArgs("oven-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectQuery("SELECT").WillReturnRows(
		testutil.MockRows(runColumns...).
			AddRow("r1", "oven-1", "product-1", "100", day(8, 0), day(10, 0), "u1", now, now),
	)
	mockDB.ExpectQuery("INSERT INTO production_runs").WillReturnRows(
		testutil.MockRows("created_at", "updated_at").AddRow(now, now),
	)
	mockDB.ExpectCommit()

	result, err := svc.Place(context.Background(), &PlaceRequest{
		ResourceID: "oven-1",
		ProductID:  "product-2",
		Quantity:   decimal.NewFromInt(50),
		StartsAt:   day(9, 0),
		EndsAt:     day(11, 0),
	})

	require.NoError(t, err)
	assert.True(t, result.Adjusted)
	assert.Equal(t, day(9, 0), result.RequestedStartAt)
	assert.Equal(t, day(10, 0), result.Run.StartsAt)
	assert.Equal(t, day(12, 0), result.Run.EndsAt)
	mockDB.ExpectationsWereMet(t)
}

func TestPlace_EmptyScheduleStillLocksResource(t *testing.T) {
	svc, mockDB := newCalendarTestService(t)
	defer mockDB.Close()

	now := time.Now()

	// With no rows on the resource there is nothing FOR UPDATE could lock,
	// so placement must take the resource-level lock before reading the
	// schedule; otherwise two concurrent placements on an empty schedule
	// would both see a free slot.
	mockDB.ExpectBegin()
	mockDB.ExpectExec("pg_advisory_xact_lock").
		WithArgs("oven-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectQuery("SELECT").WillReturnRows(testutil.MockRows(
		"id", "resource_id", "product_id", "quantity", "starts_at", "ends_at",
		"created_by", "created_at", "updated_at",
	))
	mockDB.ExpectQuery("INSERT INTO production_runs").WillReturnRows(
		testutil.MockRows("created_at", "updated_at").AddRow(now, now),
	)
	mockDB.ExpectCommit()

	result, err := svc.Place(context.Background(), &PlaceRequest{
		ResourceID: "oven-1",
		ProductID:  "product-1",
		Quantity:   decimal.NewFromInt(10),
		StartsAt:   day(9, 0),
		EndsAt:     day(11, 0),
	})

	require.NoError(t, err)
	assert.False(t, result.Adjusted)
	mockDB.ExpectationsWereMet(t)
}

func TestReschedule_RejectsOverlap(t *testing.T) {
	svc, mockDB := newCalendarTestService(t)
	defer mockDB.Close()

	runColumns := []string{"id", "resource_id", "product_id", "quantity", "starts_at", "ends_at", "created_by", "created_at", "updated_at"}
	now := time.Now()

	mockDB.ExpectBegin()
	// The run being moved.
	mockDB.ExpectQuery("SELECT").WillReturnRows(
		testutil.MockRows(runColumns...).
			AddRow("r1", "oven-1", "product-1", "100", day(8, 0), day(10, 0), "u1", now, now),
	)
	// The resource schedule, containing a second run in the way.
	mockDB.ExpectExec("pg_advisory_xact_lock").
		WithArgs("oven-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectQuery("SELECT").WillReturnRows(
		testutil.MockRows(runColumns...).
			AddRow("r1", "oven-1", "product-1", "100", day(8, 0), day(10, 0), "u1", now, now).
			AddRow("r2", "oven-1", "product-2", "50", day(10, 0), day(12, 0), "u1", now, now),
	)
	mockDB.ExpectRollback()

	newStart := day(11, 0)
	newEnd := day(13, 0)
	_, err := svc.Reschedule(context.Background(), "r1", &ReschedulePatch{
		StartsAt: &newStart,
		EndsAt:   &newEnd,
	})

	require.Error(t, err)
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "RESOURCE_CONFLICT", appErr.Code)
	mockDB.ExpectationsWereMet(t)
}
