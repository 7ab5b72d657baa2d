package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/yashrajoria/checkout-service/common/errors"
	"github.com/yashrajoria/checkout-service/controllers"
	"github.com/yashrajoria/checkout-service/models"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Mock services ---

type mockOrderService struct {
	createFn func(ctx context.Context, userID *uuid.UUID, req *models.CreateOrderRequest) (*models.CreateOrderResponse, error)
	verifyFn func(ctx context.Context, userID *uuid.UUID, req *models.VerifyPaymentRequest) (*models.VerifyPaymentResult, error)
	listFn   func(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Order, int64, error)
}

func (m *mockOrderService) CreateOrder(ctx context.Context, userID *uuid.UUID, req *models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	return m.createFn(ctx, userID, req)
}
func (m *mockOrderService) VerifyPayment(ctx context.Context, userID *uuid.UUID, req *models.VerifyPaymentRequest) (*models.VerifyPaymentResult, error) {
	return m.verifyFn(ctx, userID, req)
}
func (m *mockOrderService) ListUserOrders(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Order, int64, error) {
	return m.listFn(ctx, userID, page, limit)
}

type mockAuthService struct {
	loginFn   func(ctx context.Context, idToken string) (*models.LoginResult, error)
	currentFn func(ctx context.Context, userID string) (*models.UserProfile, error)
}

func (m *mockAuthService) LoginWithGoogle(ctx context.Context, idToken string) (*models.LoginResult, error) {
	return m.loginFn(ctx, idToken)
}
func (m *mockAuthService) CurrentUser(ctx context.Context, userID string) (*models.UserProfile, error) {
	return m.currentFn(ctx, userID)
}

// --- Helpers ---

// setupRouter mounts the handlers behind ErrorMiddleware. A non-empty userID
// stands in for the session middleware.
func setupRouter(orders *mockOrderService, auth *mockAuthService, userID string) *gin.Engine {
	r := gin.New()
	r.Use(apperrors.ErrorMiddleware(zap.NewNop()))
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("userID", userID)
			c.Set("email", "asha@example.com")
		}
		c.Next()
	})

	oc := controllers.NewOrderController(orders)
	uc := controllers.NewUserController(orders)
	ac := controllers.NewAuthController(auth, "client-123.apps.googleusercontent.com")

	r.GET("/health", controllers.Health("checkout-service"))
	r.POST("/create-order", oc.CreateOrder)
	r.POST("/verify-payment", oc.VerifyPayment)
	r.GET("/config/google", ac.GoogleConfig)
	r.POST("/auth/google", ac.GoogleLogin)
	r.GET("/api/auth/check", ac.Check)
	r.GET("/api/user/orders", uc.Orders)
	return r
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func validOrderBody() map[string]interface{} {
	return map[string]interface{}{
		"amount": 499.99,
		"products": []map[string]interface{}{
			{"productId": "p1", "name": "Linen Shirt", "size": "M", "quantity": 1, "price": 499.99},
		},
		"customer": map[string]interface{}{
			"name": "Asha", "email": "asha@example.com", "phone": "9999999999",
			"address": "12 MG Road", "city": "Pune", "state": "MH", "postalCode": "411001",
		},
	}
}

// --- Tests ---

func TestHealth(t *testing.T) {
	r := setupRouter(&mockOrderService{}, &mockAuthService{}, "")
	w := doJSON(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, "checkout-service", body["service"])
}

func TestController_CreateOrder_Success(t *testing.T) {
	var gotUser *uuid.UUID
	svc := &mockOrderService{
		createFn: func(_ context.Context, userID *uuid.UUID, req *models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
			gotUser = userID
			assert.Len(t, req.LineItems(), 1)
			return &models.CreateOrderResponse{
				Success: true, ID: "order_ABC", Amount: 49999, Currency: "INR", Key: "rzp_test_key", Receipt: "receipt_1",
			}, nil
		},
	}
	r := setupRouter(svc, &mockAuthService{}, "")

	w := doJSON(r, http.MethodPost, "/create-order", validOrderBody())
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "order_ABC", body["id"])
	assert.Equal(t, float64(49999), body["amount"])
	assert.Equal(t, "rzp_test_key", body["key"])
	assert.Nil(t, gotUser)
}

func TestController_CreateOrder_AttachesSessionUser(t *testing.T) {
	userID := uuid.New()
	var gotUser *uuid.UUID
	svc := &mockOrderService{
		createFn: func(_ context.Context, id *uuid.UUID, _ *models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
			gotUser = id
			return &models.CreateOrderResponse{Success: true, ID: "order_ABC"}, nil
		},
	}
	r := setupRouter(svc, &mockAuthService{}, userID.String())

	w := doJSON(r, http.MethodPost, "/create-order", validOrderBody())
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, gotUser)
	assert.Equal(t, userID, *gotUser)
}

func TestController_CreateOrder_InvalidBody(t *testing.T) {
	called := false
	svc := &mockOrderService{
		createFn: func(context.Context, *uuid.UUID, *models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
			called = true
			return nil, nil
		},
	}
	r := setupRouter(svc, &mockAuthService{}, "")

	body := validOrderBody()
	delete(body, "customer")
	w := doJSON(r, http.MethodPost, "/create-order", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body = decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Customer is required", body["message"])
	assert.False(t, called)
}

func TestController_CreateOrder_RejectsUnknownFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(body map[string]interface{})
		wantMsg string
	}{
		{
			name:    "top level",
			mutate:  func(body map[string]interface{}) { body["bogusField"] = map[string]interface{}{"x": 1} },
			wantMsg: `Unknown field "bogusField"`,
		},
		{
			name: "nested in customer",
			mutate: func(body map[string]interface{}) {
				body["customer"].(map[string]interface{})["extra"] = "vip"
			},
			wantMsg: `Unknown field "extra"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockOrderService{
				createFn: func(context.Context, *uuid.UUID, *models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
					called = true
					return &models.CreateOrderResponse{Success: true}, nil
				},
			}
			r := setupRouter(svc, &mockAuthService{}, "")

			body := validOrderBody()
			tt.mutate(body)
			w := doJSON(r, http.MethodPost, "/create-order", body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decode(t, w)
			assert.Equal(t, false, resp["success"])
			assert.Equal(t, tt.wantMsg, resp["message"])
			assert.False(t, called)
		})
	}
}

func TestController_CreateOrder_ZeroQuantity(t *testing.T) {
	called := false
	svc := &mockOrderService{
		createFn: func(context.Context, *uuid.UUID, *models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
			called = true
			return nil, nil
		},
	}
	r := setupRouter(svc, &mockAuthService{}, "")

	body := validOrderBody()
	body["products"].([]map[string]interface{})[0]["quantity"] = 0
	w := doJSON(r, http.MethodPost, "/create-order", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Products[0].Quantity must be at least 1", decode(t, w)["message"])
	assert.False(t, called)
}

func TestController_CreateOrder_GatewayFailure(t *testing.T) {
	svc := &mockOrderService{
		createFn: func(context.Context, *uuid.UUID, *models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
			return nil, apperrors.Upstream("Failed to create payment order", assert.AnError)
		},
	}
	r := setupRouter(svc, &mockAuthService{}, "")

	w := doJSON(r, http.MethodPost, "/create-order", validOrderBody())
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Failed to create payment order", body["message"])
}

func TestController_VerifyPayment(t *testing.T) {
	tests := []struct {
		name     string
		result   *models.VerifyPaymentResult
		err      error
		wantCode int
		wantOK   bool
	}{
		{"match", &models.VerifyPaymentResult{Success: true, Message: "Payment verified successfully"}, nil, http.StatusOK, true},
		{"mismatch", &models.VerifyPaymentResult{Success: false, Message: "Payment verification failed"}, nil, http.StatusBadRequest, false},
		{"unknown order", nil, apperrors.ErrOrderNotFound, http.StatusNotFound, false},
		{"already processed", nil, apperrors.ErrOrderFinalized, http.StatusConflict, false},
		{"store failure", nil, apperrors.Persistence("Failed to update order", assert.AnError), http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockOrderService{
				verifyFn: func(_ context.Context, _ *uuid.UUID, req *models.VerifyPaymentRequest) (*models.VerifyPaymentResult, error) {
					assert.Equal(t, "order_ABC", req.OrderID)
					return tt.result, tt.err
				},
			}
			r := setupRouter(svc, &mockAuthService{}, "")

			w := doJSON(r, http.MethodPost, "/verify-payment", map[string]string{
				"orderId": "order_ABC", "paymentId": "pay_XYZ", "signature": "abc",
			})
			assert.Equal(t, tt.wantCode, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.wantOK, body["success"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestController_VerifyPayment_MissingFields(t *testing.T) {
	r := setupRouter(&mockOrderService{}, &mockAuthService{}, "")

	w := doJSON(r, http.MethodPost, "/verify-payment", map[string]string{"orderId": "order_ABC"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "PaymentID is required", decode(t, w)["message"])
}

func TestController_VerifyPayment_RejectsUnknownFields(t *testing.T) {
	called := false
	svc := &mockOrderService{
		verifyFn: func(context.Context, *uuid.UUID, *models.VerifyPaymentRequest) (*models.VerifyPaymentResult, error) {
			called = true
			return &models.VerifyPaymentResult{Success: true}, nil
		},
	}
	r := setupRouter(svc, &mockAuthService{}, "")

	w := doJSON(r, http.MethodPost, "/verify-payment", map[string]interface{}{
		"orderId": "order_ABC", "paymentId": "pay_XYZ", "signature": "abc",
		"bogusField": map[string]interface{}{"x": 1},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, `Unknown field "bogusField"`, decode(t, w)["message"])
	assert.False(t, called)
}

func TestController_VerifyPayment_MalformedJSON(t *testing.T) {
	r := setupRouter(&mockOrderService{}, &mockAuthService{}, "")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/verify-payment", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing payment verification details", decode(t, w)["message"])
}

func TestController_GoogleConfig(t *testing.T) {
	r := setupRouter(&mockOrderService{}, &mockAuthService{}, "")
	w := doJSON(r, http.MethodGet, "/config/google", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "client-123.apps.googleusercontent.com", decode(t, w)["clientId"])
}

func TestController_GoogleLogin(t *testing.T) {
	auth := &mockAuthService{
		loginFn: func(_ context.Context, idToken string) (*models.LoginResult, error) {
			if idToken != "good-id-token" {
				return nil, apperrors.Unauthorized("Invalid Google token", nil)
			}
			return &models.LoginResult{
				Success: true,
				Token:   "session-token",
				User:    models.UserProfile{ID: "u1", Name: "Asha", Email: "asha@example.com"},
			}, nil
		},
	}
	r := setupRouter(&mockOrderService{}, auth, "")

	w := doJSON(r, http.MethodPost, "/auth/google", map[string]string{"token": "good-id-token"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "session-token", body["token"])
	assert.Equal(t, "asha@example.com", body["user"].(map[string]interface{})["email"])

	w = doJSON(r, http.MethodPost, "/auth/google", map[string]string{"token": "forged"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])

	w = doJSON(r, http.MethodPost, "/auth/google", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestController_AuthCheck(t *testing.T) {
	userID := uuid.NewString()
	auth := &mockAuthService{
		currentFn: func(_ context.Context, id string) (*models.UserProfile, error) {
			if id != userID {
				return nil, apperrors.Unauthorized("User not found", nil)
			}
			return &models.UserProfile{ID: id, Name: "Asha", Email: "asha@example.com"}, nil
		},
	}

	w := doJSON(setupRouter(&mockOrderService{}, auth, userID), http.MethodGet, "/api/auth/check", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, userID, body["user"].(map[string]interface{})["id"])

	w = doJSON(setupRouter(&mockOrderService{}, auth, uuid.NewString()), http.MethodGet, "/api/auth/check", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(setupRouter(&mockOrderService{}, auth, ""), http.MethodGet, "/api/auth/check", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestController_UserOrders_Pagination(t *testing.T) {
	userID := uuid.New()
	var gotPage, gotLimit int
	svc := &mockOrderService{
		listFn: func(_ context.Context, id uuid.UUID, page, limit int) ([]models.Order, int64, error) {
			assert.Equal(t, userID, id)
			gotPage, gotLimit = page, limit
			return []models.Order{{GatewayOrderID: "order_2"}, {GatewayOrderID: "order_1"}}, 25, nil
		},
	}
	r := setupRouter(svc, &mockAuthService{}, userID.String())

	w := doJSON(r, http.MethodGet, "/api/user/orders?page=2&limit=500", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, gotPage)
	assert.Equal(t, 100, gotLimit)

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["orders"], 2)
	meta := body["meta"].(map[string]interface{})
	assert.Equal(t, float64(25), meta["total"])
	assert.Equal(t, float64(1), meta["total_pages"])
	assert.Equal(t, false, meta["has_more"])

	w = doJSON(r, http.MethodGet, "/api/user/orders?page=abc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, gotPage)
	assert.Equal(t, 10, gotLimit)
	meta = decode(t, w)["meta"].(map[string]interface{})
	assert.Equal(t, float64(3), meta["total_pages"])
	assert.Equal(t, true, meta["has_more"])
}

func TestController_UserOrders_EmptyList(t *testing.T) {
	svc := &mockOrderService{
		listFn: func(context.Context, uuid.UUID, int, int) ([]models.Order, int64, error) {
			return nil, 0, nil
		},
	}
	r := setupRouter(svc, &mockAuthService{}, uuid.NewString())

	w := doJSON(r, http.MethodGet, "/api/user/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"orders":[]`)
}

func TestController_UserOrders_NoSession(t *testing.T) {
	r := setupRouter(&mockOrderService{}, &mockAuthService{}, "")
	w := doJSON(r, http.MethodGet, "/api/user/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
