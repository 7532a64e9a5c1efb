package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftdesk/identity/internal/constants"
	apperrors "github.com/draftdesk/identity/internal/errors"
	"github.com/draftdesk/identity/internal/model"
	"github.com/draftdesk/identity/internal/repository"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestOtpRegistry(clock *testClock) *OtpRegistry {
	return NewOtpRegistry(
		repository.NewInMemoryCodeStore(),
		NewCredentialHasher(),
		OtpRegistryConfig{
			CodeLength:        6,
			TTL:               5 * time.Minute,
			MaxPerHour:        5,
			MaxVerifyAttempts: 5,
			LockoutWindow:     15 * time.Minute,
			Production:        false,
		},
	).WithClock(clock.Now)
}

func TestOtpRegistry_IssueAndVerify(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	reg := newTestOtpRegistry(clock)
	ctx := context.Background()

	code, err := reg.Issue(ctx, model.ChannelEmail, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, constants.TestOtpCode, code)

	require.NoError(t, reg.Verify(ctx, model.ChannelEmail, "ada@example.com", code))

	// The code is consumed; a second verification fails.
	err = reg.Verify(ctx, model.ChannelEmail, "ada@example.com", code)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredCode)
}

func TestOtpRegistry_ExpiredCodeRejected(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	reg := newTestOtpRegistry(clock)
	ctx := context.Background()

	code, err := reg.Issue(ctx, model.ChannelEmail, "ada@example.com")
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	err = reg.Verify(ctx, model.ChannelEmail, "ada@example.com", code)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredCode)
}

func TestOtpRegistry_HourlyCap(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	reg := newTestOtpRegistry(clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := reg.Issue(ctx, model.ChannelPhone, "+14155550100")
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	_, err := reg.Issue(ctx, model.ChannelPhone, "+14155550100")
	assert.ErrorIs(t, err, apperrors.ErrRateLimited)

	// A different target is unaffected.
	_, err = reg.Issue(ctx, model.ChannelPhone, "+14155550101")
	require.NoError(t, err)

	// The cap lifts once the hour rolls over.
	clock.Advance(time.Hour)
	_, err = reg.Issue(ctx, model.ChannelPhone, "+14155550100")
	require.NoError(t, err)
}

func TestOtpRegistry_HourlyCapHoldsUnderConcurrentIssue(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	reg := newTestOtpRegistry(clock)
	ctx := context.Background()

	const callers = 10
	results := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Issue(ctx, model.ChannelPhone, "+14155550100")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	issued := 0
	for err := range results {
		if err == nil {
			issued++
		} else {
			assert.ErrorIs(t, err, apperrors.ErrRateLimited)
		}
	}
	assert.Equal(t, 5, issued)
}

func TestOtpRegistry_ConcurrentFailuresAllCountTowardLockout(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	reg := newTestOtpRegistry(clock)
	ctx := context.Background()

	code, err := reg.Issue(ctx, model.ChannelEmail, "ada@example.com")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := reg.Verify(ctx, model.ChannelEmail, "ada@example.com", "999999")
			assert.Error(t, err)
		}()
	}
	wg.Wait()

	// Five racing wrong guesses must each land a distinct attempt, so the
	// target is now locked out even for the correct code.
	err = reg.Verify(ctx, model.ChannelEmail, "ada@example.com", code)
	assert.ErrorIs(t, err, apperrors.ErrLockedOut)
}

func TestOtpRegistry_LockoutAfterRepeatedFailures(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	reg := newTestOtpRegistry(clock)
	ctx := context.Background()

	code, err := reg.Issue(ctx, model.ChannelEmail, "ada@example.com")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		err = reg.Verify(ctx, model.ChannelEmail, "ada@example.com", "999999")
		assert.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredCode, "attempt %d", i+1)
	}

	// Even the correct code is refused while blocked.
	err = reg.Verify(ctx, model.ChannelEmail, "ada@example.com", code)
	assert.ErrorIs(t, err, apperrors.ErrLockedOut)

	// The window passes and the counter starts over. The original code
	// has expired by now, so a fresh one is issued.
	clock.Advance(15*time.Minute + time.Second)
	code, err = reg.Issue(ctx, model.ChannelEmail, "ada@example.com")
	require.NoError(t, err)
	require.NoError(t, reg.Verify(ctx, model.ChannelEmail, "ada@example.com", code))
}

func TestOtpRegistry_LockoutDoesNotLeakCodeState(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	reg := newTestOtpRegistry(clock)
	ctx := context.Background()

	// No pending code at all; failures still accumulate.
	for i := 0; i < 5; i++ {
		err := reg.Verify(ctx, model.ChannelEmail, "ada@example.com", "999999")
		assert.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredCode)
	}

	err := reg.Verify(ctx, model.ChannelEmail, "ada@example.com", "999999")
	assert.ErrorIs(t, err, apperrors.ErrLockedOut)
}

func TestOtpRegistry_ReissueInvalidatesPreviousCode(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	store := repository.NewInMemoryCodeStore()
	reg := NewOtpRegistry(store, NewCredentialHasher(), OtpRegistryConfig{
		CodeLength:        6,
		TTL:               5 * time.Minute,
		MaxPerHour:        5,
		MaxVerifyAttempts: 5,
		LockoutWindow:     15 * time.Minute,
		Production:        true,
	}).WithClock(clock.Now)
	ctx := context.Background()

	first, err := reg.Issue(ctx, model.ChannelEmail, "ada@example.com")
	require.NoError(t, err)
	second, err := reg.Issue(ctx, model.ChannelEmail, "ada@example.com")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	err = reg.Verify(ctx, model.ChannelEmail, "ada@example.com", first)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredCode)
	require.NoError(t, reg.Verify(ctx, model.ChannelEmail, "ada@example.com", second))
}

func TestOtpRegistry_ProductionCodesAreRandomDigits(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	reg := NewOtpRegistry(repository.NewInMemoryCodeStore(), NewCredentialHasher(), OtpRegistryConfig{
		CodeLength:        6,
		TTL:               5 * time.Minute,
		MaxPerHour:        5,
		MaxVerifyAttempts: 5,
		LockoutWindow:     15 * time.Minute,
		Production:        true,
	}).WithClock(clock.Now)

	code, err := reg.Issue(context.Background(), model.ChannelEmail, "ada@example.com")
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9', "unexpected rune %q", r)
	}
}
