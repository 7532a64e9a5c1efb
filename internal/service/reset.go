package service

import (
	"context"
	"fmt"
	"time"

	"github.com/draftdesk/identity/internal/constants"
	apperrors "github.com/draftdesk/identity/internal/errors"
	"github.com/draftdesk/identity/internal/model"
	"github.com/draftdesk/identity/internal/repository"
)

// ResetRegistry issues and consumes short-lived password-reset codes.
// Reset codes are always random, in every environment, because a
// guessable reset code is an account takeover rather than a login
// convenience. No hourly cap or lockout applies; the short TTL bounds
// the guessing window.
type ResetRegistry struct {
	store      repository.CodeStore
	hasher     *CredentialHasher
	codeLength int
	ttl        time.Duration
	now        func() time.Time
}

func NewResetRegistry(store repository.CodeStore, hasher *CredentialHasher, codeLength int, ttl time.Duration) *ResetRegistry {
	return &ResetRegistry{
		store:      store,
		hasher:     hasher,
		codeLength: codeLength,
		ttl:        ttl,
		now:        time.Now,
	}
}

func (r *ResetRegistry) WithClock(now func() time.Time) *ResetRegistry {
	r.now = now
	return r
}

// Issue generates and stores a reset code for the target, overwriting any
// pending one, and returns the plaintext for dispatch.
func (r *ResetRegistry) Issue(ctx context.Context, channel model.Channel, target string) (string, error) {
	now := r.now()

	if err := r.store.SweepExpired(ctx, constants.KeyPrefixReset, now); err != nil {
		return "", fmt.Errorf("failed to sweep expired codes: %w", err)
	}

	code, err := randomNumericCode(r.codeLength)
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
		TargetKey: model.TargetKey(channel, target),
		Hash:      hash,
		Salt:      salt,
		Target:    target,
		Channel:   channel,
		CreatedAt: now,
		ExpiresAt: now.Add(r.ttl),
	}
	if err := r.store.SaveCode(ctx, constants.KeyPrefixReset, pending); err != nil {
		return "", fmt.Errorf("failed to store reset code: %w", err)
	}
	return code, nil
}

// VerifyAndConsume checks a submitted reset code and deletes it only on a
// match, so a failed attempt does not burn the pending code.
func (r *ResetRegistry) VerifyAndConsume(ctx context.Context, channel model.Channel, target, code string) error {
	now := r.now()
	targetKey := model.TargetKey(channel, target)

	pending, err := r.store.FindCode(ctx, constants.KeyPrefixReset, targetKey)
	if err != nil {
		return fmt.Errorf("failed to load reset code: %w", err)
	}
	if pending == nil || pending.Expired(now) {
		return apperrors.ErrInvalidOrExpiredCode
	}

	match, err := r.hasher.Verify(code, pending.Salt, pending.Hash)
	if err != nil {
		return err
	}
	if !match {
		return apperrors.ErrInvalidOrExpiredCode
	}

	if err := r.store.DeleteCode(ctx, constants.KeyPrefixReset, targetKey); err != nil {
		return fmt.Errorf("failed to consume reset code: %w", err)
	}
	return nil
}
