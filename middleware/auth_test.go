package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/checkout-service/middleware"
	"github.com/yashrajoria/checkout-service/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(tokens *services.TokenService) *gin.Engine {
	r := gin.New()
	whoami := func(c *gin.Context) {
		id, err := middleware.SessionUserID(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		out := gin.H{"email": middleware.GetEmail(c)}
		if id != nil {
			out["userId"] = id.String()
		}
		c.JSON(http.StatusOK, out)
	}
	r.GET("/api/auth/check", middleware.SessionAuth(tokens), whoami)
	r.POST("/create-order", middleware.OptionalSession(tokens), whoami)
	return r
}

func do(r *gin.Engine, method, path, authHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestSessionAuth(t *testing.T) {
	tokens := services.NewTokenService("jwt-secret", time.Hour)
	r := setupRouter(tokens)
	userID := uuid.NewString()
	valid, err := tokens.Generate(userID, "asha@example.com")
	require.NoError(t, err)
	forged, err := services.NewTokenService("other-secret", time.Hour).Generate(userID, "asha@example.com")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusForbidden},
		{"bearer without token", "Bearer", http.StatusForbidden},
		{"garbage token", "Bearer not-a-jwt", http.StatusForbidden},
		{"forged token", "Bearer " + forged, http.StatusForbidden},
		{"valid token", "Bearer " + valid, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodGet, "/api/auth/check", tt.header)
			assert.Equal(t, tt.want, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tt.want == http.StatusOK {
				assert.Equal(t, userID, body["userId"])
				assert.Equal(t, "asha@example.com", body["email"])
			} else {
				assert.Equal(t, false, body["success"])
				assert.NotEmpty(t, body["message"])
			}
		})
	}
}

func TestSessionAuth_ExpiredToken(t *testing.T) {
	tokens := services.NewTokenService("jwt-secret", -time.Minute)
	r := setupRouter(tokens)
	expired, err := tokens.Generate(uuid.NewString(), "asha@example.com")
	require.NoError(t, err)

	w := do(r, http.MethodGet, "/api/auth/check", "Bearer "+expired)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOptionalSession(t *testing.T) {
	tokens := services.NewTokenService("jwt-secret", time.Hour)
	r := setupRouter(tokens)

	w := do(r, http.MethodPost, "/create-order", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "userId")

	w = do(r, http.MethodPost, "/create-order", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusForbidden, w.Code)

	userID := uuid.NewString()
	valid, _ := tokens.Generate(userID, "asha@example.com")
	w = do(r, http.MethodPost, "/create-order", "Bearer "+valid)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID)
}
