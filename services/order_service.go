package services

import (
	"context"
	"crypto/hmac"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/yashrajoria/checkout-service/common/errors"
	"github.com/yashrajoria/checkout-service/common/logger"
	"github.com/yashrajoria/checkout-service/gateway"
	"github.com/yashrajoria/checkout-service/models"
	aws_pkg "github.com/yashrajoria/checkout-service/pkg/aws"
	"github.com/yashrajoria/checkout-service/repository"
	"go.uber.org/zap"
)

// OrderService defines the checkout operations behind the order routes.
type OrderService interface {
	CreateOrder(ctx context.Context, userID *uuid.UUID, req *models.CreateOrderRequest) (*models.CreateOrderResponse, error)
	VerifyPayment(ctx context.Context, userID *uuid.UUID, req *models.VerifyPaymentRequest) (*models.VerifyPaymentResult, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Order, int64, error)
}

type orderServiceImpl struct {
	orders          repository.OrderRepository
	gateway         gateway.PaymentGateway
	keySecret       string
	defaultCurrency string
	events          *EventPublisher
	metrics         aws_pkg.MetricsRecorder
	logger          *zap.Logger
}

// NewOrderService creates a new OrderService. keySecret is the gateway secret
// used to verify payment signatures. events and metrics may be nil.
func NewOrderService(
	orders repository.OrderRepository,
	gw gateway.PaymentGateway,
	keySecret string,
	defaultCurrency string,
	events *EventPublisher,
	metrics aws_pkg.MetricsRecorder,
	logger *zap.Logger,
) OrderService {
	return &orderServiceImpl{
		orders:          orders,
		gateway:         gw,
		keySecret:       keySecret,
		defaultCurrency: defaultCurrency,
		events:          events,
		metrics:         metrics,
		logger:          logger,
	}
}

// ToMinorUnits converts a major-unit amount to the gateway's smallest unit,
// rounding to the nearest integer (499.99 -> 49999).
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func receiptLabel(now time.Time) string {
	return fmt.Sprintf("receipt_%d", now.UnixMilli())
}

func resolveAmount(req *models.CreateOrderRequest) (float64, error) {
	var amount float64
	switch {
	case req.Summary != nil:
		amount = req.Summary.Total
		if req.Amount != nil && ToMinorUnits(*req.Amount) != ToMinorUnits(amount) {
			return 0, apperrors.Validation("Amount does not match order total", nil)
		}
	case req.Amount != nil:
		amount = *req.Amount
	default:
		return 0, apperrors.Validation("Amount or order summary is required", nil)
	}

	if math.IsNaN(amount) || math.IsInf(amount, 0) || ToMinorUnits(amount) < 1 {
		return 0, apperrors.Validation("Amount must be a positive number", nil)
	}
	return amount, nil
}

func validateCreateOrder(req *models.CreateOrderRequest) error {
	if len(req.Products) > 0 && len(req.Cart) > 0 {
		return apperrors.Validation("Provide either products or cart, not both", nil)
	}
	if len(req.LineItems()) == 0 {
		return apperrors.Validation("Order must contain at least one item", nil)
	}
	if req.Customer == nil {
		return apperrors.Validation("Customer details are required", nil)
	}
	return nil
}

func (s *orderServiceImpl) CreateOrder(ctx context.Context, userID *uuid.UUID, req *models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	log := logger.For(ctx, s.logger)

	if err := validateCreateOrder(req); err != nil {
		return nil, err
	}
	amount, err := resolveAmount(req)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}

	now := time.Now().UTC()
	gwOrder, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		Amount:   ToMinorUnits(amount),
		Currency: currency,
		Receipt:  receiptLabel(now),
	})
	if err != nil {
		log.Error("Gateway order creation failed", zap.Float64("amount", amount), zap.String("currency", currency), zap.Error(err))
		return nil, apperrors.Upstream("Failed to create payment order", err)
	}
	if gwOrder.Currency != "" {
		currency = gwOrder.Currency
	}

	order := &models.Order{
		GatewayOrderID: gwOrder.ID,
		Receipt:        gwOrder.Receipt,
		Items:          req.LineItems(),
		Total:          amount,
		Amount:         gwOrder.Amount,
		Currency:       currency,
		Customer:       *req.Customer,
		Status:         models.OrderStatusCreated,
		UserID:         userID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.Summary != nil {
		order.Subtotal = req.Summary.Subtotal
		order.Shipping = req.Summary.Shipping
	}

	if err := s.orders.Create(ctx, order); err != nil {
		// The gateway order exists without a local record; nothing reconciles it.
		log.Error("Failed to persist order after gateway success",
			zap.String("gateway_order_id", gwOrder.ID),
			zap.Error(err),
		)
		return nil, apperrors.Persistence("Failed to save order", err)
	}

	log.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("gateway_order_id", order.GatewayOrderID),
		zap.Int64("amount", order.Amount),
		zap.String("currency", order.Currency),
	)
	s.recordCount(aws_pkg.MetricOrdersCreated, map[string]string{"Currency": order.Currency})
	s.events.Publish(ctx, orderEvent(models.EventOrderCreated, order))

	return &models.CreateOrderResponse{
		Success:  true,
		ID:       gwOrder.ID,
		Amount:   gwOrder.Amount,
		Currency: currency,
		Key:      s.gateway.KeyID(),
		Receipt:  gwOrder.Receipt,
	}, nil
}

func (s *orderServiceImpl) VerifyPayment(ctx context.Context, userID *uuid.UUID, req *models.VerifyPaymentRequest) (*models.VerifyPaymentResult, error) {
	log := logger.For(ctx, s.logger).With(zap.String("gateway_order_id", req.OrderID))

	order, err := s.orders.FindByGatewayOrderID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, apperrors.Persistence("Failed to load order", err)
	}
	if userID != nil && order.UserID != nil && *order.UserID != *userID {
		return nil, apperrors.ErrOrderNotFound
	}

	valid := VerifySignature(s.keySecret, req.OrderID, req.PaymentID, req.Signature)

	if order.Status.IsTerminal() {
		if alreadyVerified(order, req, valid) {
			return &models.VerifyPaymentResult{Success: true, Message: "Payment already verified"}, nil
		}
		log.Warn("Verification attempted on finalized order", zap.String("status", string(order.Status)))
		return nil, apperrors.ErrOrderFinalized
	}

	update := models.PaymentUpdate{
		Status:    models.OrderStatusFailed,
		PaymentID: req.PaymentID,
		At:        time.Now().UTC(),
	}
	if valid {
		update.Status = models.OrderStatusPaid
		update.Signature = req.Signature
	}

	if err := s.orders.UpdatePaymentStatus(ctx, req.OrderID, update); err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			return nil, apperrors.ErrOrderNotFound
		case errors.Is(err, repository.ErrOrderFinalized):
			return nil, apperrors.ErrOrderFinalized
		}
		log.Error("Failed to update payment status", zap.String("status", string(update.Status)), zap.Error(err))
		return nil, apperrors.Persistence("Failed to update order", err)
	}

	order.Status = update.Status
	order.PaymentID = update.PaymentID

	if !valid {
		log.Warn("Payment signature mismatch", zap.String("payment_id", req.PaymentID))
		s.recordCount(aws_pkg.MetricPaymentFailed, map[string]string{"Currency": order.Currency})
		s.events.Publish(ctx, orderEvent(models.EventPaymentFailed, order))
		return &models.VerifyPaymentResult{Success: false, Message: "Payment verification failed"}, nil
	}

	log.Info("Payment verified", zap.String("payment_id", req.PaymentID))
	s.recordCount(aws_pkg.MetricPaymentSucceeded, map[string]string{"Currency": order.Currency})
	s.events.Publish(ctx, orderEvent(models.EventPaymentSucceeded, order))
	return &models.VerifyPaymentResult{Success: true, Message: "Payment verified successfully"}, nil
}

// alreadyVerified reports a resubmission of the exact callback that paid the order.
func alreadyVerified(order *models.Order, req *models.VerifyPaymentRequest, valid bool) bool {
	return valid &&
		order.Status == models.OrderStatusPaid &&
		order.PaymentID == req.PaymentID &&
		hmac.Equal([]byte(order.Signature), []byte(req.Signature))
}

func (s *orderServiceImpl) ListUserOrders(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Order, int64, error) {
	orders, total, err := s.orders.FindByUserID(ctx, userID, page, limit)
	if err != nil {
		logger.For(ctx, s.logger).Error("Failed to list user orders", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, 0, apperrors.Persistence("Failed to fetch orders", err)
	}
	return orders, total, nil
}

// recordCount ships a business counter without blocking the request.
func (s *orderServiceImpl) recordCount(metric string, dims map[string]string) {
	recordCountAsync(s.metrics, s.logger, metric, dims)
}

func recordCountAsync(m aws_pkg.MetricsRecorder, l *zap.Logger, metric string, dims map[string]string) {
	if m == nil || !m.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.RecordCount(ctx, metric, dims); err != nil {
			l.Warn("Failed to record metric", zap.String("metric", metric), zap.Error(err))
		}
	}()
}
