package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/draftdesk/identity/internal/constants"
	apperrors "github.com/draftdesk/identity/internal/errors"
	"github.com/draftdesk/identity/internal/model"
	"github.com/draftdesk/identity/internal/repository"
	"github.com/draftdesk/identity/pkg/logger"
)

// OtpRegistryConfig tunes issuance and verification limits.
type OtpRegistryConfig struct {
	CodeLength        int
	TTL               time.Duration
	MaxPerHour        int
	MaxVerifyAttempts int
	LockoutWindow     time.Duration
	Production        bool
}

// OtpRegistry issues and verifies one-time login codes. Codes are stored
// scrypt-hashed; the plaintext exists only between issuance and dispatch.
// Outside production every code is the fixed test value so local flows
// never depend on a delivery provider.
type OtpRegistry struct {
	store  repository.CodeStore
	hasher *CredentialHasher
	config OtpRegistryConfig
	now    func() time.Time
}

func NewOtpRegistry(store repository.CodeStore, hasher *CredentialHasher, config OtpRegistryConfig) *OtpRegistry {
	return &OtpRegistry{
		store:  store,
		hasher: hasher,
		config: config,
		now:    time.Now,
	}
}

// WithClock overrides the time source, used by expiry and lockout tests.
func (r *OtpRegistry) WithClock(now func() time.Time) *OtpRegistry {
	r.now = now
	return r
}

// Issue generates, stores and returns a fresh code for the target. A new
// code overwrites any pending one, so only the latest code verifies.
// Returns ErrRateLimited once the target's hour bucket is full.
func (r *OtpRegistry) Issue(ctx context.Context, channel model.Channel, target string) (string, error) {
	now := r.now()
	targetKey := model.TargetKey(channel, target)

	if err := r.store.SweepExpired(ctx, constants.KeyPrefixOtp, now); err != nil {
		return "", fmt.Errorf("failed to sweep expired codes: %w", err)
	}

	// The bucket increment and the cap check must not interleave with
	// another issuer's, so the store increments and returns the new count
	// in one atomic operation.
	hourStart := now.Truncate(time.Hour)
	count, err := r.store.IncrementIssuance(ctx, targetKey, hourStart)
	if err != nil {
		return "", fmt.Errorf("failed to count issuance: %w", err)
	}
	if count > r.config.MaxPerHour {
		logger.GetLogger().Warn("OTP issuance rate limited",
			zap.String("target", logger.MaskTarget(target)),
			zap.String("channel", string(channel)),
			zap.Int("count", count),
		)
		return "", apperrors.ErrRateLimited
	}

	code, err := r.generateCode()
	if err != nil {
		return "", err
	}

	salt, err := r.hasher.NewSalt()
	if err != nil {
		return "", err
	}
	hash, err := r.hasher.Hash(code, salt)
	if err != nil {
		return "", err
	}

	pending := &model.PendingCode{
		TargetKey: targetKey,
		Hash:      hash,
		Salt:      salt,
		Target:    target,
		Channel:   channel,
		CreatedAt: now,
		ExpiresAt: now.Add(r.config.TTL),
	}
	if err := r.store.SaveCode(ctx, constants.KeyPrefixOtp, pending); err != nil {
		return "", fmt.Errorf("failed to store pending code: %w", err)
	}

	return code, nil
}

// Verify checks a submitted code. Lockout is evaluated before the code
// itself, so a blocked target learns nothing about validity. A missing,
// expired or mismatched code each count one failed attempt and report the
// same ErrInvalidOrExpiredCode. A match consumes the pending code and
// clears the attempt counter.
func (r *OtpRegistry) Verify(ctx context.Context, channel model.Channel, target, code string) error {
	now := r.now()
	targetKey := model.TargetKey(channel, target)

	blockedUntil, err := r.store.BlockedUntil(ctx, targetKey)
	if err != nil {
		return fmt.Errorf("failed to read lockout: %w", err)
	}
	if !blockedUntil.IsZero() {
		if blockedUntil.After(now) {
			return apperrors.ErrLockedOut
		}
		// Window passed, start over.
		if err := r.store.ClearAttempts(ctx, targetKey); err != nil {
			return fmt.Errorf("failed to clear attempt state: %w", err)
		}
	}

	pending, err := r.store.FindCode(ctx, constants.KeyPrefixOtp, targetKey)
	if err != nil {
		return fmt.Errorf("failed to load pending code: %w", err)
	}
	if pending == nil || pending.Expired(now) {
		return r.recordFailedAttempt(ctx, targetKey, now)
	}

	match, err := r.hasher.Verify(code, pending.Salt, pending.Hash)
	if err != nil {
		return err
	}
	if !match {
		return r.recordFailedAttempt(ctx, targetKey, now)
	}

	if err := r.store.DeleteCode(ctx, constants.KeyPrefixOtp, targetKey); err != nil {
		return fmt.Errorf("failed to consume pending code: %w", err)
	}
	if err := r.store.ClearAttempts(ctx, targetKey); err != nil {
		return fmt.Errorf("failed to clear attempt state: %w", err)
	}
	return nil
}

// recordFailedAttempt increments atomically so racing wrong guesses each
// land a distinct count and the lockout triggers on the exact crossing
// attempt.
func (r *OtpRegistry) recordFailedAttempt(ctx context.Context, targetKey string, now time.Time) error {
	count, err := r.store.IncrementAttempt(ctx, targetKey)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	if count >= r.config.MaxVerifyAttempts {
		if err := r.store.BlockTarget(ctx, targetKey, now.Add(r.config.LockoutWindow)); err != nil {
			return fmt.Errorf("failed to set lockout: %w", err)
		}
	}
	return apperrors.ErrInvalidOrExpiredCode
}

func (r *OtpRegistry) generateCode() (string, error) {
	if !r.config.Production {
		return constants.TestOtpCode, nil
	}
	return randomNumericCode(r.config.CodeLength)
}

// randomNumericCode draws a uniformly random zero-padded digit string.
func randomNumericCode(length int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
