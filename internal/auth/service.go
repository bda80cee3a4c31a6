package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/vovakirdan/chatdir/internal/store"
)

// ErrUnknownUser is returned when a token is requested for a user that does not exist.
var ErrUnknownUser = errors.New("unknown user")

// Service issues and validates bearer tokens. Sign-up and login live in the
// identity provider; this service only needs to know who is calling.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
	}
}

// IssueToken mints a token for an existing user.
func (s *Service) IssueToken(ctx context.Context, userID string) (string, error) {
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrUnknownUser
		}
		return "", fmt.Errorf("get user: %w", err)
	}

	token, err := GenerateToken(s.jwtConfig, userID)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}
