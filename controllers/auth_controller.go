package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yashrajoria/checkout-service/common/errors"
	"github.com/yashrajoria/checkout-service/middleware"
	"github.com/yashrajoria/checkout-service/models"
	"github.com/yashrajoria/checkout-service/services"
)

type AuthController struct {
	authService    services.AuthService
	googleClientID string
}

func NewAuthController(authService services.AuthService, googleClientID string) *AuthController {
	return &AuthController{authService: authService, googleClientID: googleClientID}
}

// GoogleLogin exchanges a Google ID token for a session token.
func (ac *AuthController) GoogleLogin(ctx *gin.Context) {
	var req models.GoogleAuthRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		abort(ctx, apperrors.Validation("Google token is required", err))
		return
	}

	result, err := ac.authService.LoginWithGoogle(ctx.Request.Context(), req.Token)
	if err != nil {
		abort(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

func (ac *AuthController) GoogleConfig(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"clientId": ac.googleClientID})
}

// Check returns the profile behind the current session.
func (ac *AuthController) Check(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		abort(ctx, apperrors.ErrMissingToken)
		return
	}

	profile, err := ac.authService.CurrentUser(ctx.Request.Context(), userID)
	if err != nil {
		abort(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "user": profile})
}
