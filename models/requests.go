package models

// OrderSummary carries the storefront's computed totals in major currency units.
type OrderSummary struct {
	Subtotal float64 `json:"subtotal" binding:"gte=0"`
	Shipping float64 `json:"shipping" binding:"gte=0"`
	Total    float64 `json:"total" binding:"required,gt=0"`
}

// CreateOrderRequest is the payload for POST /create-order. Either Amount or
// Summary must be given, and exactly one of Products or Cart.
type CreateOrderRequest struct {
	Amount   *float64      `json:"amount,omitempty" binding:"omitempty,gt=0"`
	Summary  *OrderSummary `json:"summary,omitempty"`
	Products []LineItem    `json:"products,omitempty" binding:"omitempty,dive"`
	Cart     []LineItem    `json:"cart,omitempty" binding:"omitempty,dive"`
	Customer *Customer     `json:"customer" binding:"required"`
	Currency string        `json:"currency,omitempty" binding:"omitempty,len=3,alpha"`
}

// LineItems returns whichever of Products or Cart was supplied.
func (r *CreateOrderRequest) LineItems() []LineItem {
	if len(r.Products) > 0 {
		return r.Products
	}
	return r.Cart
}

// CreateOrderResponse mirrors what the checkout widget needs to open the gateway.
type CreateOrderResponse struct {
	Success  bool   `json:"success"`
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Key      string `json:"key"`
	Receipt  string `json:"receipt"`
}

// VerifyPaymentRequest is the payload for POST /verify-payment.
type VerifyPaymentRequest struct {
	OrderID   string `json:"orderId" binding:"required"`
	PaymentID string `json:"paymentId" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// VerifyPaymentResult is the outcome of a verification attempt.
type VerifyPaymentResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// GoogleAuthRequest is the payload for POST /auth/google.
type GoogleAuthRequest struct {
	Token string `json:"token" binding:"required"`
}

// LoginResult is returned after a successful Google sign-in.
type LoginResult struct {
	Success bool        `json:"success"`
	Token   string      `json:"token"`
	User    UserProfile `json:"user"`
}
