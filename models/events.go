package models

import "time"

const (
	EventOrderCreated     = "order_created"
	EventPaymentSucceeded = "payment_succeeded"
	EventPaymentFailed    = "payment_failed"
)

// CheckoutEvent is published to SNS whenever an order is created or verified.
type CheckoutEvent struct {
	Type           string    `json:"type"`
	OrderID        string    `json:"order_id"`
	GatewayOrderID string    `json:"gateway_order_id"`
	PaymentID      string    `json:"payment_id,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	Status         string    `json:"status"`
	Amount         int64     `json:"amount"`   // smallest currency unit
	Currency       string    `json:"currency"` // "INR", "USD"
	Timestamp      time.Time `json:"timestamp"`
}
