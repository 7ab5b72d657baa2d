package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yashrajoria/checkout-service/common/errors"
	"github.com/yashrajoria/checkout-service/middleware"
	"github.com/yashrajoria/checkout-service/models"
	"github.com/yashrajoria/checkout-service/services"
)

type UserController struct {
	orderService services.OrderService
}

func NewUserController(orderService services.OrderService) *UserController {
	return &UserController{orderService: orderService}
}

// Orders lists the signed-in user's orders, newest first.
func (uc *UserController) Orders(ctx *gin.Context) {
	userID, err := middleware.SessionUserID(ctx)
	if err != nil {
		abort(ctx, err)
		return
	}
	if userID == nil {
		abort(ctx, apperrors.ErrMissingToken)
		return
	}

	page, limit := parsePaginationParams(ctx)

	orders, total, err := uc.orderService.ListUserOrders(ctx.Request.Context(), *userID, page, limit)
	if err != nil {
		abort(ctx, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"orders":  orders,
		"meta": gin.H{
			"page":        page,
			"limit":       limit,
			"total":       total,
			"total_pages": totalPages,
			"has_more":    page < totalPages,
		},
	})
}

func parsePaginationParams(ctx *gin.Context) (int, int) {
	const maxLimit = 100
	pageInt, limitInt := 1, 10
	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		pageInt = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("limit", "10")); err == nil && l > 0 {
		if l > maxLimit {
			l = maxLimit
		}
		limitInt = l
	}
	return pageInt, limitInt
}
