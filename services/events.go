package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/yashrajoria/checkout-service/models"
	aws_pkg "github.com/yashrajoria/checkout-service/pkg/aws"
	"go.uber.org/zap"
)

// EventPublisher sends checkout events to SNS. A publisher without a client
// or topic drops events silently.
type EventPublisher struct {
	sns      aws_pkg.SNSPublisher
	topicArn string
	logger   *zap.Logger
}

func NewEventPublisher(sns aws_pkg.SNSPublisher, topicArn string, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{sns: sns, topicArn: topicArn, logger: logger}
}

// Publish never fails the caller; the order state is already committed.
func (p *EventPublisher) Publish(ctx context.Context, event models.CheckoutEvent) {
	if p == nil || p.sns == nil || p.topicArn == "" {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal checkout event", zap.String("event_type", event.Type), zap.Error(err))
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := p.sns.Publish(pubCtx, p.topicArn, payload); err != nil {
		p.logger.Error("Failed to publish checkout event to SNS",
			zap.String("event_type", event.Type),
			zap.String("gateway_order_id", event.GatewayOrderID),
			zap.Error(err),
		)
		return
	}

	p.logger.Info("Checkout event published",
		zap.String("event_type", event.Type),
		zap.String("gateway_order_id", event.GatewayOrderID),
	)
}

func orderEvent(eventType string, order *models.Order) models.CheckoutEvent {
	e := models.CheckoutEvent{
		Type:           eventType,
		OrderID:        order.ID.String(),
		GatewayOrderID: order.GatewayOrderID,
		PaymentID:      order.PaymentID,
		Status:         string(order.Status),
		Amount:         order.Amount,
		Currency:       order.Currency,
		Timestamp:      time.Now().UTC(),
	}
	if order.UserID != nil {
		e.UserID = order.UserID.String()
	}
	return e
}
