package consumers

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/service"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/actor"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/logger"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/messaging"
)

// PurchasingEventConsumer consumes purchasing events and keeps the
// procurement tracking records in sync with orders and goods receipts.
type PurchasingEventConsumer struct {
	consumer *messaging.Consumer
	tracker  *service.TrackerService
	logger   *logger.Logger
}

// NewPurchasingEventConsumer creates a new purchasing event consumer
func NewPurchasingEventConsumer(
	rmq *messaging.RabbitMQ,
	tracker *service.TrackerService,
	log *logger.Logger,
) (*PurchasingEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "planning-service.purchasing-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangePurchasingEvents, "purchasing.#"); err != nil {
		return nil, err
	}

	c := &PurchasingEventConsumer{
		consumer: consumer,
		tracker:  tracker,
		logger:   log,
	}

	consumer.RegisterHandler(messaging.EventOrderLineCreated, c.handleOrderLineCreated)
	consumer.RegisterHandler(messaging.EventGoodsReceiptCreated, c.handleGoodsReceiptCreated)

	return c, nil
}

// Start starts consuming messages
func (c *PurchasingEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *PurchasingEventConsumer) handleOrderLineCreated(ctx context.Context, event *messaging.Event) error {
	var data messaging.OrderLineCreatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	date, err := time.Parse(service.DateFormat, data.RequirementDate)
	if err != nil {
		c.logger.Error().Err(err).
			Str("order_line_id", data.OrderLineID).
			Str("requirement_date", data.RequirementDate).
			Msg("order line event carries unparseable requirement date, dropping")
		return nil
	}

	quantity, err := decimal.NewFromString(data.Quantity)
	if err != nil {
		c.logger.Error().Err(err).
			Str("order_line_id", data.OrderLineID).
			Msg("order line event carries unparseable quantity, dropping")
		return nil
	}

	var needed decimal.Decimal
	if data.QuantityNeeded != "" {
		needed, err = decimal.NewFromString(data.QuantityNeeded)
		if err != nil {
			c.logger.Error().Err(err).
				Str("order_line_id", data.OrderLineID).
				Msg("order line event carries unparseable needed quantity, dropping")
			return nil
		}
	}

	c.logger.Info().
		Str("order_line_id", data.OrderLineID).
		Str("material_id", data.MaterialID).
		Str("requirement_date", data.RequirementDate).
		Msg("received order line created event")

	ctx = actor.WithActor(ctx, actor.SystemActor())

	_, err = c.tracker.RecordOrder(ctx, &service.OrderInput{
		MaterialID:      data.MaterialID,
		RequirementDate: date,
		QuantityOrdered: quantity,
		QuantityNeeded:  needed,
		OrderLineID:     &data.OrderLineID,
	})
	return err
}

func (c *PurchasingEventConsumer) handleGoodsReceiptCreated(ctx context.Context, event *messaging.Event) error {
	var data messaging.GoodsReceiptCreatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	date, err := time.Parse(service.DateFormat, data.RequirementDate)
	if err != nil {
		c.logger.Error().Err(err).
			Str("material_id", data.MaterialID).
			Str("requirement_date", data.RequirementDate).
			Msg("goods receipt event carries unparseable requirement date, dropping")
		return nil
	}

	quantity, err := decimal.NewFromString(data.Quantity)
	if err != nil {
		c.logger.Error().Err(err).
			Str("material_id", data.MaterialID).
			Msg("goods receipt event carries unparseable quantity, dropping")
		return nil
	}

	c.logger.Info().
		Str("material_id", data.MaterialID).
		Str("requirement_date", data.RequirementDate).
		Msg("received goods receipt created event")

	ctx = actor.WithActor(ctx, actor.SystemActor())

	_, err = c.tracker.RecordReceipt(ctx, data.MaterialID, date, quantity)
	return err
}
