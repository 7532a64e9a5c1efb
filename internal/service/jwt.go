package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/draftdesk/identity/internal/errors"
	"github.com/draftdesk/identity/internal/model"
)

// SessionClaims is the subset of token claims the rest of the service
// consumes after validation.
type SessionClaims struct {
	UserID       string
	TokenVersion int
}

// TokenService issues and validates the HS256 session tokens carried in
// the accessToken cookie. Every token embeds the user's token_version;
// bumping the stored version invalidates all outstanding tokens at once.
type TokenService struct {
	secretKey string
	ttl       time.Duration
	now       func() time.Time
}

func NewTokenService(secretKey string, ttl time.Duration) *TokenService {
	return &TokenService{
		secretKey: secretKey,
		ttl:       ttl,
		now:       time.Now,
	}
}

// WithClock overrides the time source, used by expiry tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// GenerateToken creates a signed session token for the user.
func (s *TokenService) GenerateToken(user *model.User) (string, error) {
	issued := s.now()
	claims := jwt.MapClaims{
		"sub":           user.ID,
		"email":         user.Email,
		"name":          user.Name,
		"phone":         user.Phone,
		"token_version": user.TokenVersion,
		"iat":           issued.Unix(),
		"exp":           issued.Add(s.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a session token. Any defect, whether
// bad signature, wrong algorithm, malformed claims or expiry, collapses
// into ErrUnauthorized so callers leak nothing about the cause.
func (s *TokenService) ValidateToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.Parse(tokenString,
		func(token *jwt.Token) (interface{}, error) {
			return []byte(s.secretKey), nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, apperrors.ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, apperrors.ErrUnauthorized
	}

	version, ok := claims["token_version"].(float64)
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}

	return &SessionClaims{
		UserID:       sub,
		TokenVersion: int(version),
	}, nil
}

// TTL exposes the configured token lifetime, used to size the cookie.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}
