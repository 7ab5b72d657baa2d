package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/checkout-service/controllers"
	"github.com/yashrajoria/checkout-service/middleware"
)

// Controllers bundles the handlers mounted by RegisterRoutes.
type Controllers struct {
	Orders      *controllers.OrderController
	Auth        *controllers.AuthController
	Users       *controllers.UserController
	ServiceName string
}

// RegisterRoutes sets up the checkout, auth and user routes.
func RegisterRoutes(r *gin.Engine, cc Controllers, tokens middleware.TokenValidator) {
	health := controllers.Health(cc.ServiceName)
	r.GET("/health", health)
	r.GET("/test", health)
	r.GET("/api/health", health)

	// Checkout works for guests; a session, when present, links the order to the user.
	checkout := r.Group("")
	checkout.Use(middleware.OptionalSession(tokens))
	checkout.POST("/create-order", cc.Orders.CreateOrder)
	checkout.POST("/verify-payment", cc.Orders.VerifyPayment)
	checkout.POST("/api/orders/create", cc.Orders.CreateOrder)
	checkout.POST("/api/orders/verify", cc.Orders.VerifyPayment)

	r.GET("/config/google", cc.Auth.GoogleConfig)
	r.POST("/auth/google", cc.Auth.GoogleLogin)

	authed := r.Group("/api")
	authed.Use(middleware.SessionAuth(tokens))
	authed.GET("/user/orders", cc.Users.Orders)
	authed.GET("/auth/check", cc.Auth.Check)
}
