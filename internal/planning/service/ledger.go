package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/events"
	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/repository"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/actor"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/database"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/errors"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/logger"
)

// Movement reference types
const (
	ReferenceDelivery = "delivery"
	ReferenceReturn   = "return"
)

// LedgerService implements the two-phase stock ledger. Creating a transfer
// or return records a pending OUT/IN pair and touches no balances;
// confirming the pair applies both sides atomically or rejects the whole
// movement.
type LedgerService struct {
	db            *database.DB
	inventory     *repository.InventoryRepository
	publisher     *events.PlanningEventPublisher
	logger        *logger.Logger
	warehouseCode string
}

// NewLedgerService creates a new ledger service
func NewLedgerService(db *database.DB, inventory *repository.InventoryRepository, publisher *events.PlanningEventPublisher, warehouseCode string, log *logger.Logger) *LedgerService {
	return &LedgerService{
		db:            db,
		inventory:     inventory,
		publisher:     publisher,
		logger:        log,
		warehouseCode: warehouseCode,
	}
}

// TransferInput describes a requested stock movement between two locations
type TransferInput struct {
	ProductID      string
	Quantity       decimal.Decimal
	LocationFromID string
	LocationToID   string
	Notes          *string
}

// CreateTransfer records a pending transfer. The source balance is not
// checked here: shortages surface at confirmation time, when the balance
// rows are locked.
func (s *LedgerService) CreateTransfer(ctx context.Context, input *TransferInput) (*repository.Movement, *repository.Movement, error) {
	return s.createPair(ctx, input, ReferenceDelivery, false)
}

// CreateReturn records a pending return movement. Returns are ordinary
// transfers flowing back toward the warehouse; they differ only in how
// they are reported.
func (s *LedgerService) CreateReturn(ctx context.Context, input *TransferInput) (*repository.Movement, *repository.Movement, error) {
	return s.createPair(ctx, input, ReferenceReturn, true)
}

func (s *LedgerService) createPair(ctx context.Context, input *TransferInput, referenceType string, isReturn bool) (*repository.Movement, *repository.Movement, error) {
	if !input.Quantity.IsPositive() {
		return nil, nil, errors.Validation(map[string]string{"quantity": "must be greater than zero"})
	}
	if input.LocationFromID == input.LocationToID {
		return nil, nil, errors.Validation(map[string]string{"location_to_id": "must differ from source location"})
	}

	if _, err := s.inventory.GetLocation(ctx, input.LocationFromID); err != nil {
		return nil, nil, err
	}
	if _, err := s.inventory.GetLocation(ctx, input.LocationToID); err != nil {
		return nil, nil, err
	}

	out, in := buildPair(input, referenceType, actor.IDOrSystem(ctx))

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return s.inventory.InsertMovementPairTx(ctx, tx, out, in)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().
		Str("pair_id", out.PairID).
		Str("product_id", input.ProductID).
		Str("quantity", input.Quantity.String()).
		Str("reference_type", referenceType).
		Msg("pending movement pair created")

	s.publisher.PublishTransferCreated(ctx, out, in, isReturn)
	return out, in, nil
}

// buildPair constructs the linked OUT/IN rows of a pending movement
func buildPair(input *TransferInput, referenceType, recordedBy string) (*repository.Movement, *repository.Movement) {
	pairID := uuid.New().String()
	ref := referenceType

	out := &repository.Movement{
		ID:             uuid.New().String(),
		PairID:         pairID,
		ProductID:      input.ProductID,
		Quantity:       input.Quantity,
		LocationFromID: input.LocationFromID,
		LocationToID:   input.LocationToID,
		Type:           repository.MovementTransferOut,
		Status:         repository.MovementPending,
		ReferenceType:  &ref,
		Notes:          input.Notes,
		RecordedBy:     recordedBy,
	}
	in := &repository.Movement{
		ID:             uuid.New().String(),
		PairID:         pairID,
		ProductID:      input.ProductID,
		Quantity:       input.Quantity,
		LocationFromID: input.LocationFromID,
		LocationToID:   input.LocationToID,
		Type:           repository.MovementTransferIn,
		Status:         repository.MovementPending,
		ReferenceType:  &ref,
		Notes:          input.Notes,
		RecordedBy:     recordedBy,
	}
	return out, in
}

// Confirm applies a pending movement pair to the balances. Driven from the
// IN movement's ID because the receiving side accepts the goods. Both
// balance rows are locked in a fixed order, the source is checked for
// sufficient stock, and both sides flip to confirmed in the same
// transaction. A rejected confirmation leaves balances untouched and the
// pair still pending.
func (s *LedgerService) Confirm(ctx context.Context, movementInID string) (*repository.Movement, error) {
	acceptedBy := actor.IDOrSystem(ctx)

	var confirmed *repository.Movement
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		pair, err := s.inventory.GetPairForUpdateTx(ctx, tx, movementInID)
		if err != nil {
			return err
		}

		var out, in *repository.Movement
		for i := range pair {
			switch pair[i].Type {
			case repository.MovementTransferOut:
				out = &pair[i]
			case repository.MovementTransferIn:
				in = &pair[i]
			}
		}
		if out == nil || in == nil {
			return errors.Internal(fmt.Sprintf("movement pair for %s is incomplete", movementInID))
		}
		if in.Status != repository.MovementPending {
			return errors.Conflict("movement is not pending")
		}

		from, to, err := s.inventory.LockBalancesTx(ctx, tx, in.ProductID, in.LocationFromID, in.LocationToID)
		if err != nil {
			return err
		}

		if from.QuantityOnHand.LessThan(in.Quantity) {
			return errors.InsufficientBalance(fmt.Sprintf(
				"product %s at location %s has %s on hand, %s required",
				in.ProductID, in.LocationFromID, from.QuantityOnHand, in.Quantity,
			))
		}

		if err := s.inventory.AdjustBalanceTx(ctx, tx, from.ID, in.Quantity.Neg()); err != nil {
			return err
		}
		if err := s.inventory.AdjustBalanceTx(ctx, tx, to.ID, in.Quantity); err != nil {
			return err
		}
		if err := s.inventory.ConfirmPairTx(ctx, tx, in.PairID, acceptedBy); err != nil {
			return err
		}

		confirmed = in
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("movement_in_id", confirmed.ID).
		Str("product_id", confirmed.ProductID).
		Str("accepted_by", acceptedBy).
		Msg("movement pair confirmed")

	s.publisher.PublishTransferConfirmed(ctx, confirmed, acceptedBy)
	return s.inventory.GetMovement(ctx, confirmed.ID)
}

// DeliveryLine is one product line of a consolidated delivery request
type DeliveryLine struct {
	ProductID string
	Quantity  decimal.Decimal
}

// DeliveryLineResult reports the outcome of one line of a consolidated
// delivery. Lines are independent: a failed line never blocks the others.
type DeliveryLineResult struct {
	ProductID     string               `json:"product_id"`
	MovementOutID string               `json:"movement_out_id,omitempty"`
	MovementInID  string               `json:"movement_in_id,omitempty"`
	Error         string               `json:"error,omitempty"`
	Movement      *repository.Movement `json:"movement,omitempty"`
}

// ConsolidatedDeliveryResult summarizes a consolidated delivery
type ConsolidatedDeliveryResult struct {
	ResourceID string               `json:"resource_id"`
	LocationID string               `json:"location_id"`
	Created    int                  `json:"created"`
	Failed     int                  `json:"failed"`
	Lines      []DeliveryLineResult `json:"lines"`
}

// CreateConsolidatedDelivery creates one pending transfer per line from the
// central warehouse to the staging location of a production resource. Each
// line is its own movement pair in its own transaction.
func (s *LedgerService) CreateConsolidatedDelivery(ctx context.Context, resourceID string, lines []DeliveryLine) (*ConsolidatedDeliveryResult, error) {
	if len(lines) == 0 {
		return nil, errors.Validation(map[string]string{"lines": "at least one line is required"})
	}

	central, err := s.inventory.GetCentralWarehouse(ctx, s.warehouseCode)
	if err != nil {
		return nil, err
	}
	target, err := s.inventory.GetLocationByResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	result := &ConsolidatedDeliveryResult{
		ResourceID: resourceID,
		LocationID: target.ID,
		Lines:      make([]DeliveryLineResult, 0, len(lines)),
	}

	for _, line := range lines {
		out, in, err := s.CreateTransfer(ctx, &TransferInput{
			ProductID:      line.ProductID,
			Quantity:       line.Quantity,
			LocationFromID: central.ID,
			LocationToID:   target.ID,
		})
		if err != nil {
			result.Failed++
			result.Lines = append(result.Lines, DeliveryLineResult{
				ProductID: line.ProductID,
				Error:     err.Error(),
			})
			s.logger.Warn().Err(err).
				Str("resource_id", resourceID).
				Str("product_id", line.ProductID).
				Msg("consolidated delivery line failed")
			continue
		}
		result.Created++
		result.Lines = append(result.Lines, DeliveryLineResult{
			ProductID:     line.ProductID,
			MovementOutID: out.ID,
			MovementInID:  in.ID,
			Movement:      in,
		})
	}

	return result, nil
}

// --- Locations and balances ---

// LocationInput describes a stock location
type LocationInput struct {
	Code               string
	Name               string
	ResourceID         *string
	IsCentralWarehouse bool
}

// CreateLocation registers a stock location
func (s *LedgerService) CreateLocation(ctx context.Context, input *LocationInput) (*repository.Location, error) {
	loc := &repository.Location{
		ID:                 uuid.New().String(),
		Code:               input.Code,
		Name:               input.Name,
		ResourceID:         input.ResourceID,
		IsCentralWarehouse: input.IsCentralWarehouse,
		IsActive:           true,
	}
	if err := s.inventory.CreateLocation(ctx, loc); err != nil {
		return nil, err
	}
	return loc, nil
}

// UpdateLocation updates a location's attributes. The active flag is the
// only way to retire a location; balances and movement history stay behind.
func (s *LedgerService) UpdateLocation(ctx context.Context, id string, input *LocationInput, active bool) (*repository.Location, error) {
	loc, err := s.inventory.GetLocation(ctx, id)
	if err != nil {
		return nil, err
	}

	loc.Code = input.Code
	loc.Name = input.Name
	loc.ResourceID = input.ResourceID
	loc.IsCentralWarehouse = input.IsCentralWarehouse
	loc.IsActive = active

	if err := s.inventory.UpdateLocation(ctx, loc); err != nil {
		return nil, err
	}
	return loc, nil
}

// ListLocations returns all active locations
func (s *LedgerService) ListLocations(ctx context.Context) ([]repository.Location, error) {
	return s.inventory.ListLocations(ctx)
}

// ListBalances returns balances, optionally filtered
func (s *LedgerService) ListBalances(ctx context.Context, locationID, productID string) ([]repository.Balance, error) {
	return s.inventory.ListBalances(ctx, locationID, productID)
}

// ListMovements returns movements, optionally filtered by status
func (s *LedgerService) ListMovements(ctx context.Context, status string) ([]repository.Movement, error) {
	return s.inventory.ListMovements(ctx, status)
}

// GetMovement fetches a movement by ID
func (s *LedgerService) GetMovement(ctx context.Context, id string) (*repository.Movement, error) {
	return s.inventory.GetMovement(ctx, id)
}
