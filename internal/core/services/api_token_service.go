package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/savannahbooks/etims_bridge_app/internal/apperrors"
	"github.com/savannahbooks/etims_bridge_app/internal/core/domain"
	"github.com/savannahbooks/etims_bridge_app/internal/core/ports/repositories"
	portssvc "github.com/savannahbooks/etims_bridge_app/internal/core/ports/services"
	"github.com/savannahbooks/etims_bridge_app/internal/middleware"
	"golang.org/x/crypto/bcrypt"
)

// apiTokenService manages the opaque x-api-key credentials used by machine
// clients such as the QuickBooks sync collaborator.
type apiTokenService struct {
	tokenRepo repositories.APITokenRepository
	userSvc   portssvc.UserSvcFacade
}

var _ portssvc.APITokenSvc = (*apiTokenService)(nil)

// NewAPITokenService creates a new instance of apiTokenService
func NewAPITokenService(tokenRepo repositories.APITokenRepository, userSvc portssvc.UserSvcFacade) portssvc.APITokenSvc {
	return &apiTokenService{
		tokenRepo: tokenRepo,
		userSvc:   userSvc,
	}
}

// CreateToken mints a new API token for the user. The plaintext is returned
// exactly once; only its bcrypt hash is stored.
func (s *apiTokenService) CreateToken(ctx context.Context, userID, name string, expiresIn *time.Duration) (string, *domain.APIToken, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	if userID == "" {
		return "", nil, fmt.Errorf("%w: user ID is required", apperrors.ErrValidation)
	}
	if name == "" {
		return "", nil, fmt.Errorf("%w: token name is required", apperrors.ErrValidation)
	}

	token, err := generateSecureToken(32)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	tokenHash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash token: %w", err)
	}

	var expiresAt *time.Time
	if expiresIn != nil {
		expiry := time.Now().Add(*expiresIn)
		expiresAt = &expiry
	}

	apiToken := &domain.APIToken{
		UserID:    userID,
		Name:      name,
		TokenHash: string(tokenHash),
		ExpiresAt: expiresAt,
	}

	if err := s.tokenRepo.Create(ctx, apiToken); err != nil {
		logger.Error("Failed to save API token", slog.String("error", err.Error()), slog.String("user_id", userID))
		return "", nil, fmt.Errorf("failed to save token: %w", err)
	}

	logger.Info("API token created", slog.String("user_id", userID), slog.String("token_name", name))
	return token, apiToken, nil
}

// ListTokens returns all API tokens for a user. Hashes are included in the
// domain objects; the handler layer never serializes them.
func (s *apiTokenService) ListTokens(ctx context.Context, userID string) ([]domain.APIToken, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user ID is required", apperrors.ErrValidation)
	}

	tokens, err := s.tokenRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	return tokens, nil
}

// RevokeToken deletes one of the user's API tokens. A token belonging to a
// different user reads as not found.
func (s *apiTokenService) RevokeToken(ctx context.Context, userID, tokenID string) error {
	if userID == "" || tokenID == "" {
		return fmt.Errorf("%w: user ID and token ID are required", apperrors.ErrValidation)
	}

	token, err := s.tokenRepo.FindByID(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("failed to find token: %w", err)
	}
	if token.UserID != userID {
		return apperrors.ErrNotFound
	}

	if err := s.tokenRepo.Delete(ctx, tokenID); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	middleware.GetLoggerFromCtx(ctx).Info("API token revoked", slog.String("user_id", userID), slog.String("token_id", tokenID))
	return nil
}

// RevokeAllTokens deletes every API token the user owns.
func (s *apiTokenService) RevokeAllTokens(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user ID is required", apperrors.ErrValidation)
	}

	if err := s.tokenRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke all tokens: %w", err)
	}

	middleware.GetLoggerFromCtx(ctx).Info("All API tokens revoked", slog.String("user_id", userID))
	return nil
}

// ValidateToken resolves a presented plaintext token to its owning user.
// Tokens are stored as bcrypt hashes, so there is no hash to look up by;
// the active set is scanned and each candidate compared. Expired and
// soft-deleted tokens are excluded by the repository query.
func (s *apiTokenService) ValidateToken(ctx context.Context, tokenString string) (*domain.User, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	if tokenString == "" {
		return nil, fmt.Errorf("%w: token is required", apperrors.ErrUnauthorized)
	}

	candidates, err := s.tokenRepo.FindActive(ctx, time.Now())
	if err != nil {
		logger.Error("Failed to load active API tokens", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to load active tokens: %w", err)
	}

	var match *domain.APIToken
	for i := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(candidates[i].TokenHash), []byte(tokenString)) == nil {
			match = &candidates[i]
			break
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: invalid token", apperrors.ErrUnauthorized)
	}

	match.UpdateLastUsed()
	if err := s.tokenRepo.Update(ctx, match); err != nil {
		// Stale last_used_at is acceptable; the authentication still stands.
		logger.Warn("Failed to update API token last-used timestamp", slog.String("token_id", match.ID), slog.String("error", err.Error()))
	}

	user, err := s.userSvc.GetUserByID(ctx, match.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user for token: %w", err)
	}
	return user, nil
}

// generateSecureToken builds an opaque URL-safe token with the service's
// recognizable prefix.
func generateSecureToken(lengthInBytes int) (string, error) {
	b := make([]byte, lengthInBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return "etb_" + base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b), nil
}
