package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/yashrajoria/checkout-service/models"
)

const sessionTokenType = "session"

// SessionTokens issues and validates session tokens.
type SessionTokens interface {
	Generate(userID, email string) (string, error)
	Validate(tokenStr string) (*models.SessionClaims, error)
}

// TokenService is responsible for creating and validating session JWTs.
type TokenService struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewTokenService creates a TokenService signing with secret. Tokens expire
// ttl after issue and are never refreshed.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secretKey: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate creates an HS256 session token for the user.
func (s *TokenService) Generate(userID, email string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"typ":   sessionTokenType,
		"exp":   now.Add(s.ttl).Unix(),
		"iat":   now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// Validate parses tokenStr and checks signature, expiry and token type.
func (s *TokenService) Validate(tokenStr string) (*models.SessionClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return s.secretKey, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if typ, ok := claims["typ"].(string); !ok || typ != sessionTokenType {
		return nil, fmt.Errorf("invalid token type")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	out := &models.SessionClaims{UserID: sub}
	out.Email, _ = claims["email"].(string)
	if exp, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return out, nil
}
