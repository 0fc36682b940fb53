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

var movementCols = []string{
	"id", "pair_id", "product_id", "quantity", "location_from_id", "location_to_id",
	"type", "status", "reference_type", "notes", "recorded_by", "accepted_by",
	"created_at", "confirmed_at",
}

var balanceCols = []string{"id", "product_id", "location_id", "quantity_on_hand", "updated_at"}

func newLedgerTestService(t *testing.T) (*LedgerService, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	inventory := repository.NewInventoryRepository(mockDB.Wrapped)
	svc := NewLedgerService(mockDB.Wrapped, inventory, nil, "CENTRAL", logger.New("test", "test"))
	return svc, mockDB
}

func TestBuildPair_LinksBothSides(t *testing.T) {
	out, in := buildPair(&TransferInput{
		ProductID:      "flour",
		Quantity:       decimal.NewFromInt(100),
		LocationFromID: "central",
		LocationToID:   "line-1",
	}, ReferenceDelivery, "user-1")

	assert.Equal(t, out.PairID, in.PairID)
	assert.NotEqual(t, out.ID, in.ID)
	assert.Equal(t, repository.MovementTransferOut, out.Type)
	assert.Equal(t, repository.MovementTransferIn, in.Type)
	assert.Equal(t, repository.MovementPending, out.Status)
	assert.Equal(t, repository.MovementPending, in.Status)
	assert.True(t, out.Quantity.Equal(in.Quantity))
	assert.Equal(t, "user-1", out.RecordedBy)
}

func TestCreateTransfer_RejectsNonPositiveQuantity(t *testing.T) {
	svc, mockDB := newLedgerTestService(t)
	defer mockDB.Close()

	_, _, err := svc.CreateTransfer(context.Background(), &TransferInput{
		ProductID:      "flour",
		Quantity:       decimal.Zero,
		LocationFromID: "central",
		LocationToID:   "line-1",
	})

	require.Error(t, err)
}

func TestCreateTransfer_RejectsSameLocation(t *testing.T) {
	svc, mockDB := newLedgerTestService(t)
	defer mockDB.Close()

	_, _, err := svc.CreateTransfer(context.Background(), &TransferInput{
		ProductID:      "flour",
		Quantity:       decimal.NewFromInt(10),
		LocationFromID: "central",
		LocationToID:   "central",
	})

	require.Error(t, err)
}

// expectLockedBalance sets up the lazy-create-then-lock sequence for one
// balance row.
func expectLockedBalance(mockDB *testutil.MockDB, balanceID, productID, locationID, quantity string) {
	mockDB.ExpectExec("INSERT INTO inventory_balances").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectQuery("SELECT id, product_id, location_id, quantity_on_hand").
		WillReturnRows(testutil.MockRows(balanceCols...).
			AddRow(balanceID, productID, locationID, quantity, time.Now()))
}

func expectPendingPair(mockDB *testutil.MockDB, quantity string) {
	now := time.Now()
	mockDB.ExpectQuery("FROM inventory_movements").WillReturnRows(
		testutil.MockRows(movementCols...).
			// ORDER BY type puts transfer_in before transfer_out.
			AddRow("mv-in", "pair-1", "flour", quantity, "loc-a", "loc-b",
				repository.MovementTransferIn, repository.MovementPending, nil, nil, "u1", nil, now, nil).
			AddRow("mv-out", "pair-1", "flour", quantity, "loc-a", "loc-b",
				repository.MovementTransferOut, repository.MovementPending, nil, nil, "u1", nil, now, nil),
	)
}

func TestConfirm_InsufficientBalanceLeavesPairPending(t *testing.T) {
	svc, mockDB := newLedgerTestService(t)
	defer mockDB.Close()

	mockDB.ExpectBegin()
	expectPendingPair(mockDB, "50")
	// Source has 10 on hand against a 50 unit movement.
	expectLockedBalance(mockDB, "bal-from", "flour", "loc-a", "10")
	expectLockedBalance(mockDB, "bal-to", "flour", "loc-b", "0")
	mockDB.ExpectRollback()

	_, err := svc.Confirm(context.Background(), "mv-in")

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientBalance))
	mockDB.ExpectationsWereMet(t)
}

func TestConfirm_AppliesBothSides(t *testing.T) {
	svc, mockDB := newLedgerTestService(t)
	defer mockDB.Close()

	now := time.Now()

	mockDB.ExpectBegin()
	expectPendingPair(mockDB, "50")
	expectLockedBalance(mockDB, "bal-from", "flour", "loc-a", "80")
	expectLockedBalance(mockDB, "bal-to", "flour", "loc-b", "0")
	// Debit source, credit destination, flip the pair.
	mockDB.ExpectExec("UPDATE inventory_balances").WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec("UPDATE inventory_balances").WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec("UPDATE inventory_movements").WillReturnResult(sqlmock.NewResult(0, 2))
	mockDB.ExpectCommit()

	confirmedAt := now
	mockDB.ExpectQuery("FROM inventory_movements").WillReturnRows(
		testutil.MockRows(movementCols...).
			AddRow("mv-in", "pair-1", "flour", "50", "loc-a", "loc-b",
				repository.MovementTransferIn, repository.MovementConfirmed, nil, nil, "u1", "u2", now, confirmedAt),
	)

	movement, err := svc.Confirm(context.Background(), "mv-in")

	require.NoError(t, err)
	assert.Equal(t, repository.MovementConfirmed, movement.Status)
	mockDB.ExpectationsWereMet(t)
}

func TestConfirm_RejectsAlreadyConfirmedPair(t *testing.T) {
	svc, mockDB := newLedgerTestService(t)
	defer mockDB.Close()

	now := time.Now()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("FROM inventory_movements").WillReturnRows(
		testutil.MockRows(movementCols...).
			AddRow("mv-in", "pair-1", "flour", "50", "loc-a", "loc-b",
				repository.MovementTransferIn, repository.MovementConfirmed, nil, nil, "u1", "u2", now, now).
			AddRow("mv-out", "pair-1", "flour", "50", "loc-a", "loc-b",
				repository.MovementTransferOut, repository.MovementConfirmed, nil, nil, "u1", "u2", now, now),
	)
	mockDB.ExpectRollback()

	_, err := svc.Confirm(context.Background(), "mv-in")

	require.Error(t, err)
	mockDB.ExpectationsWereMet(t)
}
