package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the payment state of an order.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusCreated OrderStatus = "created"
	OrderStatusPaid    OrderStatus = "paid"
	OrderStatusFailed  OrderStatus = "failed"
)

// IsTerminal reports whether the status can no longer change.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPaid || s == OrderStatusFailed
}

// LineItem is a single purchased product as shown to the customer at checkout.
type LineItem struct {
	ProductID string  `json:"productId" bson:"product_id" binding:"required"`
	Name      string  `json:"name" bson:"name" binding:"required"`
	Size      string  `json:"size,omitempty" bson:"size,omitempty"`
	Quantity  int     `json:"quantity" bson:"quantity" binding:"min=1"`
	Price     float64 `json:"price" bson:"price" binding:"gte=0"`
	Image     string  `json:"image,omitempty" bson:"image,omitempty"`
}

// Customer is the contact and shipping snapshot captured when the order is placed.
type Customer struct {
	Name       string `json:"name" bson:"name" binding:"required"`
	Email      string `json:"email" bson:"email" binding:"required,email"`
	Phone      string `json:"phone" bson:"phone" binding:"required"`
	Address    string `json:"address" bson:"address" binding:"required"`
	City       string `json:"city" bson:"city" binding:"required"`
	State      string `json:"state" bson:"state" binding:"required"`
	PostalCode string `json:"postalCode" bson:"postal_code" binding:"required"`
}

// Order is the persisted record of a checkout attempt.
type Order struct {
	ID             uuid.UUID   `json:"id" bson:"_id" gorm:"type:uuid;primaryKey"`
	GatewayOrderID string      `json:"gatewayOrderId" bson:"gateway_order_id" gorm:"uniqueIndex;not null"`
	PaymentID      string      `json:"paymentId,omitempty" bson:"payment_id,omitempty"`
	Signature      string      `json:"-" bson:"signature,omitempty"`
	Receipt        string      `json:"receipt" bson:"receipt"`
	Items          []LineItem  `json:"items" bson:"items" gorm:"serializer:json;not null"`
	Subtotal       float64     `json:"subtotal" bson:"subtotal"`
	Shipping       float64     `json:"shipping" bson:"shipping"`
	Total          float64     `json:"total" bson:"total"`
	Amount         int64       `json:"amount" bson:"amount" gorm:"not null"` // minor units
	Currency       string      `json:"currency" bson:"currency" gorm:"type:varchar(10);not null"`
	Customer       Customer    `json:"customer" bson:"customer" gorm:"embedded;embeddedPrefix:customer_"`
	Status         OrderStatus `json:"status" bson:"status" gorm:"type:varchar(20);not null;default:'pending'"`
	UserID         *uuid.UUID  `json:"userId,omitempty" bson:"user_id,omitempty" gorm:"type:uuid;index"`
	PaidAt         *time.Time  `json:"paidAt,omitempty" bson:"paid_at,omitempty"`
	FailedAt       *time.Time  `json:"failedAt,omitempty" bson:"failed_at,omitempty"`
	CreatedAt      time.Time   `json:"createdAt" bson:"created_at" gorm:"not null"`
	UpdatedAt      time.Time   `json:"updatedAt" bson:"updated_at" gorm:"not null"`
}

// PaymentUpdate describes a single verification transition applied to an order.
type PaymentUpdate struct {
	Status    OrderStatus
	PaymentID string
	Signature string
	At        time.Time
}
