package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yashrajoria/checkout-service/common/errors"
	"github.com/yashrajoria/checkout-service/middleware"
	"github.com/yashrajoria/checkout-service/models"
	"github.com/yashrajoria/checkout-service/services"
)

type OrderController struct {
	orderService services.OrderService
}

func NewOrderController(orderService services.OrderService) *OrderController {
	return &OrderController{orderService: orderService}
}

// CreateOrder handles POST /create-order and /api/orders/create.
func (oc *OrderController) CreateOrder(ctx *gin.Context) {
	var req models.CreateOrderRequest
	if err := bindStrict(ctx, &req); err != nil {
		abort(ctx, apperrors.Validation(bindingMessage(err, "Invalid request data"), err))
		return
	}

	userID, err := middleware.SessionUserID(ctx)
	if err != nil {
		abort(ctx, err)
		return
	}

	resp, err := oc.orderService.CreateOrder(ctx.Request.Context(), userID, &req)
	if err != nil {
		abort(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// VerifyPayment handles POST /verify-payment and /api/orders/verify. A
// signature mismatch is reported as 400 with success:false.
func (oc *OrderController) VerifyPayment(ctx *gin.Context) {
	var req models.VerifyPaymentRequest
	if err := bindStrict(ctx, &req); err != nil {
		abort(ctx, apperrors.Validation(bindingMessage(err, "Missing payment verification details"), err))
		return
	}

	userID, err := middleware.SessionUserID(ctx)
	if err != nil {
		abort(ctx, err)
		return
	}

	result, err := oc.orderService.VerifyPayment(ctx.Request.Context(), userID, &req)
	if err != nil {
		abort(ctx, err)
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadRequest
	}
	ctx.JSON(status, result)
}

// abort hands the error to ErrorMiddleware for rendering.
func abort(ctx *gin.Context, err error) {
	_ = ctx.Error(err)
	ctx.Abort()
}
