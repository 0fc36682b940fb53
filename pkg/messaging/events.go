package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Planning events
	EventRunScheduled   = "planning.run.scheduled"
	EventRunRescheduled = "planning.run.rescheduled"
	EventRunCancelled   = "planning.run.cancelled"

	// Recipe events
	EventRecipeLineChanged = "planning.recipe.line.changed"

	// Procurement events published by this service
	EventRequirementOrdered  = "procurement.requirement.ordered"
	EventRequirementReceived = "procurement.requirement.received"

	// Purchasing-collaborator events consumed by this service
	EventOrderLineCreated    = "purchasing.order_line.created"
	EventGoodsReceiptCreated = "purchasing.goods_receipt.created"

	// Inventory events
	EventTransferCreated   = "inventory.transfer.created"
	EventTransferConfirmed = "inventory.transfer.confirmed"
	EventReturnCreated     = "inventory.return.created"
)

// Exchange names
const (
	ExchangePlanningEvents   = "planning.events"
	ExchangePurchasingEvents = "purchasing.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// GenerateEventID returns a unique identifier for a new event
func GenerateEventID() string {
	return uuid.New().String()
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Planning events

// RunScheduledEvent is published when a production run is placed on a resource
type RunScheduledEvent struct {
	RunID      string    `json:"run_id"`
	ResourceID string    `json:"resource_id"`
	ProductID  string    `json:"product_id"`
	Quantity   string    `json:"quantity"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	Adjusted   bool      `json:"adjusted"`
}

// RunRescheduledEvent is published when an existing run is moved
type RunRescheduledEvent struct {
	RunID      string    `json:"run_id"`
	ResourceID string    `json:"resource_id"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
}

// RunCancelledEvent is published when a run is deleted
type RunCancelledEvent struct {
	RunID string `json:"run_id"`
}

// Procurement events

// RequirementOrderedEvent is published when an order is recorded against a requirement
type RequirementOrderedEvent struct {
	MaterialID      string `json:"material_id"`
	RequirementDate string `json:"requirement_date"`
	QuantityOrdered string `json:"quantity_ordered"`
	Status          string `json:"status"`
	OrderLineID     string `json:"order_line_id,omitempty"`
}

// RequirementReceivedEvent is published when goods are received against a requirement
type RequirementReceivedEvent struct {
	MaterialID       string `json:"material_id"`
	RequirementDate  string `json:"requirement_date"`
	QuantityReceived string `json:"quantity_received"`
	Status           string `json:"status"`
}

// Purchasing-collaborator event payloads

// OrderLineCreatedEvent is consumed when the purchasing service creates a
// purchase order line against a material requirement.
type OrderLineCreatedEvent struct {
	OrderLineID     string `json:"order_line_id"`
	MaterialID      string `json:"material_id"`
	RequirementDate string `json:"requirement_date"`
	Quantity        string `json:"quantity"`
	// QuantityNeeded snapshots the requirement the order was raised against.
	// Older publishers omit it; the consumer treats a missing value as zero.
	QuantityNeeded string `json:"quantity_needed,omitempty"`
}

// GoodsReceiptCreatedEvent is consumed when the receiving collaborator books
// a goods receipt for a purchase order line.
type GoodsReceiptCreatedEvent struct {
	MaterialID      string `json:"material_id"`
	RequirementDate string `json:"requirement_date"`
	Quantity        string `json:"quantity"`
}

// Inventory events

// TransferCreatedEvent is published when a pending movement pair is created
type TransferCreatedEvent struct {
	MovementOutID  string `json:"movement_out_id"`
	MovementInID   string `json:"movement_in_id"`
	ProductID      string `json:"product_id"`
	Quantity       string `json:"quantity"`
	LocationFromID string `json:"location_from_id"`
	LocationToID   string `json:"location_to_id"`
	ReferenceType  string `json:"reference_type,omitempty"`
}

// TransferConfirmedEvent is published when the receiving side confirms a movement pair
type TransferConfirmedEvent struct {
	MovementInID   string `json:"movement_in_id"`
	ProductID      string `json:"product_id"`
	Quantity       string `json:"quantity"`
	LocationFromID string `json:"location_from_id"`
	LocationToID   string `json:"location_to_id"`
	AcceptedBy     string `json:"accepted_by"`
}
