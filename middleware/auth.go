package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apperrors "github.com/yashrajoria/checkout-service/common/errors"
	"github.com/yashrajoria/checkout-service/models"
)

const (
	UserContextKey  = "userID"
	EmailContextKey = "email"
)

// TokenValidator validates session tokens.
type TokenValidator interface {
	Validate(tokenStr string) (*models.SessionClaims, error)
}

func abortWith(c *gin.Context, e *apperrors.Error) {
	c.AbortWithStatusJSON(e.Code, gin.H{"success": false, "message": e.Message})
}

// bearerToken returns the token from "Authorization: Bearer <token>". present
// is false when the header is missing entirely.
func bearerToken(c *gin.Context) (token string, present bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}
	return strings.TrimSpace(token), true
}

func authenticate(c *gin.Context, tokens TokenValidator, token string) bool {
	if token == "" {
		abortWith(c, apperrors.ErrInvalidToken)
		return false
	}
	claims, err := tokens.Validate(token)
	if err != nil {
		abortWith(c, apperrors.ErrInvalidToken)
		return false
	}
	c.Set(UserContextKey, claims.UserID)
	c.Set(EmailContextKey, claims.Email)
	return true
}

// SessionAuth rejects requests without a session (401) or with a malformed,
// expired or forged one (403).
func SessionAuth(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present := bearerToken(c)
		if !present {
			abortWith(c, apperrors.ErrMissingToken)
			return
		}
		if !authenticate(c, tokens, token) {
			return
		}
		c.Next()
	}
}

// OptionalSession lets anonymous requests through but still rejects a
// session token that is present and invalid.
func OptionalSession(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present := bearerToken(c)
		if present && !authenticate(c, tokens, token) {
			return
		}
		c.Next()
	}
}

// GetUserID extracts the user ID from the Gin context.
func GetUserID(c *gin.Context) (string, error) {
	if val, ok := c.Get(UserContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id, nil
		}
	}
	return "", errors.New("user ID not found in context")
}

// SessionUserID returns the parsed session user, or nil for anonymous requests.
func SessionUserID(c *gin.Context) (*uuid.UUID, error) {
	raw, err := GetUserID(c)
	if err != nil {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	return &id, nil
}

func GetEmail(c *gin.Context) string {
	return c.GetString(EmailContextKey)
}
