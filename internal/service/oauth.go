package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/draftdesk/identity/internal/errors"
	"github.com/draftdesk/identity/internal/model"
	"github.com/draftdesk/identity/pkg/logger"
	"github.com/draftdesk/identity/pkg/validation"
)

// GoogleProfile is a verified identity assertion from the Google sign-in
// flow, already validated upstream.
type GoogleProfile struct {
	ProviderID string
	Email      string
	Name       string
}

// LoginWithGoogleProfile signs in a user asserted by Google. Resolution
// order: existing link by provider id, then a registered account with the
// asserted email (which gets linked), else a fresh account. Returns the
// user and a session token.
func (s *AuthService) LoginWithGoogleProfile(ctx context.Context, profile *GoogleProfile) (*model.User, string, error) {
	if profile == nil || profile.ProviderID == "" {
		return nil, "", apperrors.ErrInvalidInput
	}
	email := validation.NormalizeEmail(validation.StripInvisible(profile.Email))
	if !validation.IsValidEmail(email) {
		return nil, "", apperrors.ErrInvalidInput
	}

	user, err := s.users.FindByGoogleID(ctx, profile.ProviderID)
	if err != nil {
		return nil, "", err
	}

	if user == nil {
		user, err = s.users.FindByEmail(ctx, email)
		if err != nil {
			return nil, "", err
		}
		if user != nil {
			if err := s.users.LinkGoogleID(ctx, user.ID, profile.ProviderID); err != nil {
				return nil, "", err
			}
			user.GoogleID = profile.ProviderID
		}
	}

	if user == nil {
		name := strings.TrimSpace(validation.StripInvisible(profile.Name))
		if name == "" {
			name = email
		}
		user = &model.User{
			Name:     name,
			Email:    email,
			GoogleID: profile.ProviderID,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, "", err
		}
	}

	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, "", err
	}

	logger.LogAuth(user.ID, "google_login", true, zap.String("email", logger.MaskTarget(email)))
	return user, token, nil
}
