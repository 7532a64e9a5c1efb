package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftdesk/identity/config"
	"github.com/draftdesk/identity/internal/constants"
	"github.com/draftdesk/identity/internal/dto"
	apperrors "github.com/draftdesk/identity/internal/errors"
	"github.com/draftdesk/identity/internal/model"
	"github.com/draftdesk/identity/internal/repository"
)

func newTestAuthService(t *testing.T, authCfg config.AuthConfig) (*AuthService, repository.UserRepository) {
	t.Helper()

	users := repository.NewInMemoryUserRepository()
	codes := repository.NewInMemoryCodeStore()
	hasher := NewCredentialHasher()
	tokens := NewTokenService("test-secret", time.Hour)
	otp := NewOtpRegistry(codes, hasher, OtpRegistryConfig{
		CodeLength:        6,
		TTL:               5 * time.Minute,
		MaxPerHour:        5,
		MaxVerifyAttempts: 5,
		LockoutWindow:     15 * time.Minute,
		Production:        false,
	})
	reset := NewResetRegistry(codes, hasher, 6, 3*time.Minute)
	dispatcher := NewNotificationDispatcher(ConsoleEmailProvider{}, ConsoleSmsProvider{}, 5*time.Minute, 3*time.Minute)

	return NewAuthService(users, hasher, tokens, otp, reset, dispatcher, authCfg), users
}

func TestAuthService_SignupNormalizesIdentity(t *testing.T) {
	svc, users := newTestAuthService(t, config.AuthConfig{})
	ctx := context.Background()

	user, err := svc.Signup(ctx, &dto.SignupRequest{
		Name:  "  Ada Example ",
		Email: " ADA@Example.COM ",
		Phone: "+1 415 555 0100",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada Example", user.Name)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "+14155550100", user.Phone)

	stored, err := users.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.HasPassword())
}

func TestAuthService_SignupStoresPasswordWhenProvided(t *testing.T) {
	svc, users := newTestAuthService(t, config.AuthConfig{})
	ctx := context.Background()

	_, err := svc.Signup(ctx, &dto.SignupRequest{
		Name:     "Ada Example",
		Email:    "ada@example.com",
		Phone:    "+14155550100",
		Password: "Passw0rdX",
	})
	require.NoError(t, err)

	stored, err := users.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.True(t, stored.HasPassword())
	assert.NotContains(t, stored.PasswordHash, "Passw0rdX")
}

func TestAuthService_VerifyOtpRequiresRegistration(t *testing.T) {
	svc, _ := newTestAuthService(t, config.AuthConfig{})
	ctx := context.Background()

	// Issue directly; RequestOtp itself refuses unregistered targets.
	_, err := svc.otp.Issue(ctx, model.ChannelEmail, "ghost@example.com")
	require.NoError(t, err)

	_, _, err = svc.VerifyOtp(ctx, model.ChannelEmail, "ghost@example.com", constants.TestOtpCode)
	assert.ErrorIs(t, err, apperrors.ErrNotRegistered)
}

func TestAuthService_ImplicitProvisioning(t *testing.T) {
	svc, users := newTestAuthService(t, config.AuthConfig{AllowImplicitProvisioning: true})
	ctx := context.Background()

	require.NoError(t, svc.RequestOtp(ctx, model.ChannelPhone, "+14155550100"))

	user, token, err := svc.VerifyOtp(ctx, model.ChannelPhone, "+14155550100", constants.TestOtpCode)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "Test User", user.Name)
	assert.Equal(t, "+14155550100", user.Phone)
	assert.Equal(t, "phone-14155550100@otp.local", user.Email)

	stored, err := users.FindByPhone(ctx, "+14155550100")
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestAuthService_RequestOtpRequiresRegistrationWithoutProvisioning(t *testing.T) {
	svc, _ := newTestAuthService(t, config.AuthConfig{})
	ctx := context.Background()

	err := svc.RequestOtp(ctx, model.ChannelPhone, "+14155550100")
	assert.ErrorIs(t, err, apperrors.ErrNotRegistered)
}

func TestAuthService_LoginWithGoogleProfile(t *testing.T) {
	svc, _ := newTestAuthService(t, config.AuthConfig{})
	ctx := context.Background()

	// Fresh profile creates an account.
	user, token, err := svc.LoginWithGoogleProfile(ctx, &GoogleProfile{
		ProviderID: "google-123",
		Email:      "Ada@Example.com",
		Name:       "Ada Example",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "google-123", user.GoogleID)

	// Same profile signs in to the same account.
	again, _, err := svc.LoginWithGoogleProfile(ctx, &GoogleProfile{
		ProviderID: "google-123",
		Email:      "ada@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
}

func TestAuthService_GoogleProfileLinksExistingAccount(t *testing.T) {
	svc, users := newTestAuthService(t, config.AuthConfig{})
	ctx := context.Background()

	created, err := svc.Signup(ctx, &dto.SignupRequest{
		Name:  "Ada Example",
		Email: "ada@example.com",
		Phone: "+14155550100",
	})
	require.NoError(t, err)

	user, _, err := svc.LoginWithGoogleProfile(ctx, &GoogleProfile{
		ProviderID: "google-456",
		Email:      "ada@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	linked, err := users.FindByGoogleID(ctx, "google-456")
	require.NoError(t, err)
	require.NotNil(t, linked)
	assert.Equal(t, created.ID, linked.ID)
}

func TestResolveTarget(t *testing.T) {
	channel, target, err := ResolveTarget(" ADA@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, model.ChannelEmail, channel)
	assert.Equal(t, "ada@example.com", target)

	channel, target, err = ResolveTarget("+1 415 555 0100")
	require.NoError(t, err)
	assert.Equal(t, model.ChannelPhone, channel)
	assert.Equal(t, "+14155550100", target)

	_, _, err = ResolveTarget("neither")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
