package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health is the liveness check behind /health, /test and /api/health.
func Health(serviceName string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "OK", "service": serviceName})
	}
}
