package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/draftdesk/identity/config"
	"github.com/draftdesk/identity/internal/dto"
	apperrors "github.com/draftdesk/identity/internal/errors"
	"github.com/draftdesk/identity/internal/model"
	"github.com/draftdesk/identity/internal/repository"
	"github.com/draftdesk/identity/pkg/logger"
	"github.com/draftdesk/identity/pkg/validation"
)

// AuthService orchestrates signup, OTP login and password reset on top
// of the user directory, the code registries and the dispatcher. It owns
// no storage of its own; every method normalizes its inputs before any
// stateful call.
type AuthService struct {
	users      repository.UserRepository
	hasher     *CredentialHasher
	tokens     *TokenService
	otp        *OtpRegistry
	reset      *ResetRegistry
	dispatcher *NotificationDispatcher
	authCfg    config.AuthConfig
}

func NewAuthService(
	users repository.UserRepository,
	hasher *CredentialHasher,
	tokens *TokenService,
	otp *OtpRegistry,
	reset *ResetRegistry,
	dispatcher *NotificationDispatcher,
	authCfg config.AuthConfig,
) *AuthService {
	return &AuthService{
		users:      users,
		hasher:     hasher,
		tokens:     tokens,
		otp:        otp,
		reset:      reset,
		dispatcher: dispatcher,
		authCfg:    authCfg,
	}
}

// ResolveTarget classifies a free-form identifier as an email or phone
// target and returns its normalized form.
func ResolveTarget(input string) (model.Channel, string, error) {
	cleaned := validation.StripInvisible(strings.TrimSpace(input))
	if validation.IsValidEmail(cleaned) {
		return model.ChannelEmail, validation.NormalizeEmail(cleaned), nil
	}
	phone := validation.NormalizePhone(cleaned)
	if validation.IsValidE164(phone) {
		return model.ChannelPhone, phone, nil
	}
	return "", "", apperrors.ErrInvalidInput
}

// Signup registers a new user and sends a verification code over the
// requested channel. The account exists immediately; verification only
// gates session issuance.
func (s *AuthService) Signup(ctx context.Context, req *dto.SignupRequest) (*model.User, error) {
	email := validation.NormalizeEmail(validation.StripInvisible(req.Email))
	phone := validation.NormalizePhone(validation.StripInvisible(req.Phone))
	name := strings.TrimSpace(validation.StripInvisible(req.Name))

	if !validation.IsValidName(name) || !validation.IsValidEmail(email) || !validation.IsValidE164(phone) {
		return nil, apperrors.ErrInvalidInput
	}

	user := &model.User{
		Name:  name,
		Email: email,
		Phone: phone,
	}

	if req.Password != "" {
		if !validation.IsValidPassword(req.Password) {
			return nil, apperrors.ErrWeakPassword
		}
		salt, err := s.hasher.NewSalt()
		if err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(req.Password, salt)
		if err != nil {
			return nil, err
		}
		user.PasswordSalt = salt
		user.PasswordHash = hash
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	channel := model.Channel(req.OtpChannel)
	if channel == "" {
		channel = model.ChannelEmail
	}
	target := email
	if channel == model.ChannelPhone {
		target = phone
	}

	if err := s.issueAndDispatch(ctx, channel, target); err != nil {
		return nil, err
	}

	logger.LogAuth(user.ID, "signup", true,
		zap.String("channel", string(channel)),
		zap.String("target", logger.MaskTarget(target)),
	)
	return user, nil
}

// LoginChallenge sends a login code to a registered email or phone.
func (s *AuthService) LoginChallenge(ctx context.Context, emailOrPhone string) error {
	channel, target, err := ResolveTarget(emailOrPhone)
	if err != nil {
		return err
	}

	user, err := s.findByTarget(ctx, channel, target)
	if err != nil {
		return err
	}
	if user == nil && !s.authCfg.AllowImplicitProvisioning {
		return apperrors.ErrNotRegistered
	}

	return s.issueAndDispatch(ctx, channel, target)
}

// RequestOtp re-sends a login code, with the same registration rules as
// LoginChallenge.
func (s *AuthService) RequestOtp(ctx context.Context, channel model.Channel, target string) error {
	if !channel.Valid() {
		return apperrors.ErrInvalidInput
	}
	normalized, err := normalizeForChannel(channel, target)
	if err != nil {
		return err
	}

	user, err := s.findByTarget(ctx, channel, normalized)
	if err != nil {
		return err
	}
	if user == nil && !s.authCfg.AllowImplicitProvisioning {
		return apperrors.ErrNotRegistered
	}

	return s.issueAndDispatch(ctx, channel, normalized)
}

// VerifyOtp checks a submitted code and, on success, resolves the user
// and issues a session token. With implicit provisioning enabled a
// first-time target gets a minimal account; that mode never runs in
// production.
func (s *AuthService) VerifyOtp(ctx context.Context, channel model.Channel, target, code string) (*model.User, string, error) {
	if !channel.Valid() {
		return nil, "", apperrors.ErrInvalidInput
	}
	normalized, err := normalizeForChannel(channel, target)
	if err != nil {
		return nil, "", err
	}

	if err := s.otp.Verify(ctx, channel, normalized, code); err != nil {
		logger.LogAuth(logger.MaskTarget(normalized), "verify_otp", false, zap.Error(err))
		return nil, "", err
	}

	user, err := s.findByTarget(ctx, channel, normalized)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		if !s.authCfg.AllowImplicitProvisioning {
			return nil, "", apperrors.ErrNotRegistered
		}
		user, err = s.provisionImplicit(ctx, channel, normalized)
		if err != nil {
			return nil, "", err
		}
	}

	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, "", err
	}

	logger.LogAuth(user.ID, "verify_otp", true, zap.String("channel", string(channel)))
	return user, token, nil
}

// ForgotPassword sends a reset code to a registered email or phone.
func (s *AuthService) ForgotPassword(ctx context.Context, channel model.Channel, target string) error {
	if !channel.Valid() {
		return apperrors.ErrInvalidInput
	}
	normalized, err := normalizeForChannel(channel, target)
	if err != nil {
		return err
	}
	target = normalized

	user, err := s.findByTarget(ctx, channel, target)
	if err != nil {
		return err
	}
	if user == nil {
		return apperrors.ErrNotRegistered
	}

	code, err := s.reset.Issue(ctx, channel, target)
	if err != nil {
		return err
	}
	return s.dispatcher.SendCode(ctx, channel, target, code, PurposeReset)
}

// ResetPassword consumes a reset code, stores the new password and
// issues a fresh session token. The stored token version bumps with the
// password, so every other session dies here.
func (s *AuthService) ResetPassword(ctx context.Context, channel model.Channel, target, code, newPassword string) (*model.User, string, error) {
	if !channel.Valid() {
		return nil, "", apperrors.ErrInvalidInput
	}
	normalized, err := normalizeForChannel(channel, target)
	if err != nil {
		return nil, "", err
	}
	target = normalized
	if !validation.IsValidPassword(newPassword) {
		return nil, "", apperrors.ErrWeakPassword
	}

	user, err := s.findByTarget(ctx, channel, target)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", apperrors.ErrNotRegistered
	}

	if err := s.reset.VerifyAndConsume(ctx, channel, target, code); err != nil {
		return nil, "", err
	}

	salt, err := s.hasher.NewSalt()
	if err != nil {
		return nil, "", err
	}
	hash, err := s.hasher.Hash(newPassword, salt)
	if err != nil {
		return nil, "", err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, salt); err != nil {
		return nil, "", err
	}

	user, err = s.users.FindByID(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", apperrors.ErrInternal
	}

	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, "", err
	}

	logger.LogAuth(user.ID, "reset_password", true)
	return user, token, nil
}

func (s *AuthService) issueAndDispatch(ctx context.Context, channel model.Channel, target string) error {
	code, err := s.otp.Issue(ctx, channel, target)
	if err != nil {
		return err
	}
	return s.dispatcher.SendCode(ctx, channel, target, code, PurposeVerification)
}

func (s *AuthService) findByTarget(ctx context.Context, channel model.Channel, target string) (*model.User, error) {
	if channel == model.ChannelEmail {
		return s.users.FindByEmail(ctx, target)
	}
	return s.users.FindByPhone(ctx, target)
}

// provisionImplicit creates a minimal account for an unseen target. Phone
// signups get a synthetic unique email so the email column stays non-null.
func (s *AuthService) provisionImplicit(ctx context.Context, channel model.Channel, target string) (*model.User, error) {
	user := &model.User{Name: "Test User"}
	if channel == model.ChannelEmail {
		user.Email = target
	} else {
		user.Phone = target
		user.Email = "phone-" + strings.TrimPrefix(target, "+") + "@otp.local"
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func normalizeForChannel(channel model.Channel, target string) (string, error) {
	cleaned := validation.StripInvisible(strings.TrimSpace(target))
	if channel == model.ChannelEmail {
		email := validation.NormalizeEmail(cleaned)
		if !validation.IsValidEmail(email) {
			return "", apperrors.ErrInvalidInput
		}
		return email, nil
	}
	phone := validation.NormalizePhone(cleaned)
	if !validation.IsValidE164(phone) {
		return "", apperrors.ErrInvalidInput
	}
	return phone, nil
}
