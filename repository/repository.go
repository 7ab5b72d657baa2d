package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/checkout-service/models"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrOrderFinalized = errors.New("order payment already processed")
	ErrDuplicateOrder = errors.New("order already exists")
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateUser  = errors.New("user already exists")
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	// UpdatePaymentStatus applies a verification outcome to an order that has
	// not been paid or failed yet. It returns ErrOrderFinalized when the order
	// already reached a terminal status.
	UpdatePaymentStatus(ctx context.Context, gatewayOrderID string, update models.PaymentUpdate) error
	FindByUserID(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Order, int64, error)
}

// UserRepository defines the interface for user data access.
type UserRepository interface {
	FindByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// terminalStatuses lists the statuses an update must not overwrite.
var terminalStatuses = []models.OrderStatus{models.OrderStatusPaid, models.OrderStatusFailed}

func terminalStatusNames() []string {
	names := make([]string, len(terminalStatuses))
	for i, s := range terminalStatuses {
		names[i] = string(s)
	}
	return names
}

func applyPaymentUpdate(order *models.Order, update models.PaymentUpdate) {
	at := update.At.UTC()
	order.Status = update.Status
	order.PaymentID = update.PaymentID
	order.Signature = update.Signature
	order.UpdatedAt = at
	switch update.Status {
	case models.OrderStatusPaid:
		order.PaidAt = &at
	case models.OrderStatusFailed:
		order.FailedAt = &at
	}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}
