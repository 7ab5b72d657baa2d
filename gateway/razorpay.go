package gateway

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// OrderRequest is what the gateway needs to open a payment order.
type OrderRequest struct {
	Amount   int64 // minor units
	Currency string
	Receipt  string
}

// Order is the gateway's view of a freshly created order.
type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
}

// PaymentGateway creates orders with the payment provider.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	// KeyID is the public key the storefront passes to the checkout widget.
	KeyID() string
}

// orderCreator is the part of the Razorpay SDK client this package uses.
type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type RazorpayGateway struct {
	orders orderCreator
	keyID  string
}

func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	client := razorpay.NewClient(keyID, keySecret)
	return &RazorpayGateway{orders: client.Order, keyID: keyID}
}

func (g *RazorpayGateway) KeyID() string {
	return g.keyID
}

// CreateOrder calls the Orders API. The SDK call is not cancellable, so ctx is
// only checked before the request goes out.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := g.orders.Create(map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay order create failed: %w", err)
	}
	return parseOrder(body)
}

func parseOrder(body map[string]interface{}) (*Order, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay response has no order id")
	}

	amount, err := toInt64(body["amount"])
	if err != nil {
		return nil, fmt.Errorf("razorpay response amount: %w", err)
	}

	o := &Order{ID: id, Amount: amount}
	o.Currency, _ = body["currency"].(string)
	o.Receipt, _ = body["receipt"].(string)
	o.Status, _ = body["status"].(string)
	return o, nil
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
