package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/yashrajoria/checkout-service/common/errors"
	"github.com/yashrajoria/checkout-service/common/logger"
	"github.com/yashrajoria/checkout-service/models"
	aws_pkg "github.com/yashrajoria/checkout-service/pkg/aws"
	"github.com/yashrajoria/checkout-service/repository"
	"go.uber.org/zap"
)

// AuthService signs users in with a Google ID token and resolves sessions.
type AuthService interface {
	LoginWithGoogle(ctx context.Context, idToken string) (*models.LoginResult, error)
	CurrentUser(ctx context.Context, userID string) (*models.UserProfile, error)
}

type authServiceImpl struct {
	users    repository.UserRepository
	verifier IdentityVerifier
	tokens   SessionTokens
	metrics  aws_pkg.MetricsRecorder
	logger   *zap.Logger
}

func NewAuthService(
	users repository.UserRepository,
	verifier IdentityVerifier,
	tokens SessionTokens,
	metrics aws_pkg.MetricsRecorder,
	logger *zap.Logger,
) AuthService {
	return &authServiceImpl{
		users:    users,
		verifier: verifier,
		tokens:   tokens,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *authServiceImpl) LoginWithGoogle(ctx context.Context, idToken string) (*models.LoginResult, error) {
	log := logger.For(ctx, s.logger)

	identity, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		log.Warn("Google token rejected", zap.Error(err))
		return nil, apperrors.Unauthorized("Invalid Google token", err)
	}

	user, err := s.upsertUser(ctx, identity)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate(user.ID.String(), user.Email)
	if err != nil {
		log.Error("Failed to sign session token", zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil, apperrors.New(http.StatusInternalServerError, "Failed to create session", err)
	}

	log.Info("User signed in", zap.String("user_id", user.ID.String()))
	recordCountAsync(s.metrics, s.logger, aws_pkg.MetricUserLogins, nil)

	return &models.LoginResult{Success: true, Token: token, User: user.Profile()}, nil
}

// upsertUser creates the user on first sign-in and bumps LastLogin afterwards.
func (s *authServiceImpl) upsertUser(ctx context.Context, identity *models.IdentityClaims) (*models.User, error) {
	now := time.Now().UTC()

	user, err := s.users.FindByGoogleID(ctx, identity.Subject)
	switch {
	case err == nil:
		if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
			return nil, apperrors.Persistence("Failed to update user", err)
		}
		user.LastLogin = now
		return user, nil
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, apperrors.Persistence("Failed to load user", err)
	}

	user = &models.User{
		ID:        uuid.New(),
		GoogleID:  identity.Subject,
		Email:     strings.ToLower(identity.Email),
		Name:      identity.Name,
		Avatar:    identity.Picture,
		CreatedAt: now,
		LastLogin: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			// Either a concurrent first login won, or the email belongs to
			// another Google account.
			if existing, findErr := s.users.FindByGoogleID(ctx, identity.Subject); findErr == nil {
				return existing, nil
			}
			return nil, apperrors.Conflict("An account with this email already exists", err)
		}
		return nil, apperrors.Persistence("Failed to create user", err)
	}
	return user, nil
}

func (s *authServiceImpl) CurrentUser(ctx context.Context, userID string) (*models.UserProfile, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperrors.Unauthorized("User not found", err)
		}
		return nil, apperrors.Persistence("Failed to load user", err)
	}

	profile := user.Profile()
	return &profile, nil
}
