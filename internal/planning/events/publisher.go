package events

import (
	"context"

	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/repository"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/logger"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/messaging"
)

// PlanningEventPublisher publishes planning and inventory events
type PlanningEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewPlanningEventPublisher creates a new planning event publisher
func NewPlanningEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*PlanningEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangePlanningEvents, "planning-service", log)
	if err != nil {
		return nil, err
	}

	return &PlanningEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishRunScheduled publishes a run scheduled event
func (p *PlanningEventPublisher) PublishRunScheduled(ctx context.Context, run *repository.ProductionRun, adjusted bool) {
	if p == nil {
		return
	}

	data := messaging.RunScheduledEvent{
		RunID:      run.ID,
		ResourceID: run.ResourceID,
		ProductID:  run.ProductID,
		Quantity:   run.Quantity.String(),
		StartsAt:   run.StartsAt,
		EndsAt:     run.EndsAt,
		Adjusted:   adjusted,
	}

	if err := p.publisher.Publish(ctx, messaging.EventRunScheduled, data); err != nil {
		p.logger.Error().Err(err).Str("run_id", run.ID).Msg("failed to publish run scheduled event")
	}
}

// PublishRunRescheduled publishes a run rescheduled event
func (p *PlanningEventPublisher) PublishRunRescheduled(ctx context.Context, run *repository.ProductionRun) {
	if p == nil {
		return
	}

	data := messaging.RunRescheduledEvent{
		RunID:      run.ID,
		ResourceID: run.ResourceID,
		StartsAt:   run.StartsAt,
		EndsAt:     run.EndsAt,
	}

	if err := p.publisher.Publish(ctx, messaging.EventRunRescheduled, data); err != nil {
		p.logger.Error().Err(err).Str("run_id", run.ID).Msg("failed to publish run rescheduled event")
	}
}

// PublishRunCancelled publishes a run cancelled event
func (p *PlanningEventPublisher) PublishRunCancelled(ctx context.Context, runID string) {
	if p == nil {
		return
	}

	data := messaging.RunCancelledEvent{RunID: runID}

	if err := p.publisher.Publish(ctx, messaging.EventRunCancelled, data); err != nil {
		p.logger.Error().Err(err).Str("run_id", runID).Msg("failed to publish run cancelled event")
	}
}

// PublishRequirementOrdered publishes a requirement ordered event
func (p *PlanningEventPublisher) PublishRequirementOrdered(ctx context.Context, rec *repository.TrackingRecord) {
	if p == nil {
		return
	}

	orderLineID := ""
	if rec.OrderLineID != nil {
		orderLineID = *rec.OrderLineID
	}

	data := messaging.RequirementOrderedEvent{
		MaterialID:      rec.MaterialID,
		RequirementDate: rec.RequirementDate.Format("2006-01-02"),
		QuantityOrdered: rec.QuantityOrdered.String(),
		Status:          rec.Status,
		OrderLineID:     orderLineID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventRequirementOrdered, data); err != nil {
		p.logger.Error().Err(err).Str("material_id", rec.MaterialID).Msg("failed to publish requirement ordered event")
	}
}

// PublishRequirementReceived publishes a requirement received event
func (p *PlanningEventPublisher) PublishRequirementReceived(ctx context.Context, rec *repository.TrackingRecord) {
	if p == nil {
		return
	}

	data := messaging.RequirementReceivedEvent{
		MaterialID:       rec.MaterialID,
		RequirementDate:  rec.RequirementDate.Format("2006-01-02"),
		QuantityReceived: rec.QuantityReceived.String(),
		Status:           rec.Status,
	}

	if err := p.publisher.Publish(ctx, messaging.EventRequirementReceived, data); err != nil {
		p.logger.Error().Err(err).Str("material_id", rec.MaterialID).Msg("failed to publish requirement received event")
	}
}

// PublishTransferCreated publishes a pending transfer created event
func (p *PlanningEventPublisher) PublishTransferCreated(ctx context.Context, out, in *repository.Movement, isReturn bool) {
	if p == nil {
		return
	}

	referenceType := ""
	if out.ReferenceType != nil {
		referenceType = *out.ReferenceType
	}

	data := messaging.TransferCreatedEvent{
		MovementOutID:  out.ID,
		MovementInID:   in.ID,
		ProductID:      out.ProductID,
		Quantity:       out.Quantity.String(),
		LocationFromID: out.LocationFromID,
		LocationToID:   out.LocationToID,
		ReferenceType:  referenceType,
	}

	eventType := messaging.EventTransferCreated
	if isReturn {
		eventType = messaging.EventReturnCreated
	}

	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("movement_out_id", out.ID).Msg("failed to publish transfer created event")
	}
}

// PublishTransferConfirmed publishes a transfer confirmed event
func (p *PlanningEventPublisher) PublishTransferConfirmed(ctx context.Context, in *repository.Movement, acceptedBy string) {
	if p == nil {
		return
	}

	data := messaging.TransferConfirmedEvent{
		MovementInID:   in.ID,
		ProductID:      in.ProductID,
		Quantity:       in.Quantity.String(),
		LocationFromID: in.LocationFromID,
		LocationToID:   in.LocationToID,
		AcceptedBy:     acceptedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventTransferConfirmed, data); err != nil {
		p.logger.Error().Err(err).Str("movement_in_id", in.ID).Msg("failed to publish transfer confirmed event")
	}
}
