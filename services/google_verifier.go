package services

import (
	"context"
	"fmt"

	"github.com/yashrajoria/checkout-service/models"
	"google.golang.org/api/idtoken"
)

// IdentityVerifier checks a third-party ID token and returns its claims.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*models.IdentityClaims, error)
}

// GoogleVerifier validates Google ID tokens against Google's public keys and
// the application's OAuth client id.
type GoogleVerifier struct {
	clientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, validate: idtoken.Validate}
}

func (v *GoogleVerifier) Verify(ctx context.Context, token string) (*models.IdentityClaims, error) {
	if v.clientID == "" {
		return nil, fmt.Errorf("google sign-in is not configured")
	}

	payload, err := v.validate(ctx, token, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("invalid google id token: %w", err)
	}
	return claimsFromPayload(payload)
}

func claimsFromPayload(payload *idtoken.Payload) (*models.IdentityClaims, error) {
	claims := &models.IdentityClaims{Subject: payload.Subject}
	claims.Email, _ = payload.Claims["email"].(string)
	claims.Name, _ = payload.Claims["name"].(string)
	claims.Picture, _ = payload.Claims["picture"].(string)

	if claims.Subject == "" {
		return nil, fmt.Errorf("google id token has no subject")
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("google id token has no email")
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return nil, fmt.Errorf("google account email is not verified")
	}
	return claims, nil
}
