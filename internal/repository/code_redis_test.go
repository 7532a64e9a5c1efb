package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftdesk/identity/internal/constants"
	"github.com/draftdesk/identity/internal/model"
)

func newRedisStore(t *testing.T) (*RedisCodeStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisCodeStore(rdb, 15*time.Minute), mr
}

func TestRedisCodeStore_SaveFindDelete(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	pending := &model.PendingCode{
		TargetKey: "email:ada@example.com",
		Hash:      "deadbeef",
		Salt:      "cafe",
		Target:    "ada@example.com",
		Channel:   model.ChannelEmail,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}
	require.NoError(t, store.SaveCode(ctx, constants.KeyPrefixOtp, pending))

	found, err := store.FindCode(ctx, constants.KeyPrefixOtp, pending.TargetKey)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, pending.Hash, found.Hash)
	assert.Equal(t, pending.Channel, found.Channel)

	// Distinct prefixes hold distinct codes.
	missing, err := store.FindCode(ctx, constants.KeyPrefixReset, pending.TargetKey)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.DeleteCode(ctx, constants.KeyPrefixOtp, pending.TargetKey))
	found, err = store.FindCode(ctx, constants.KeyPrefixOtp, pending.TargetKey)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRedisCodeStore_CodeExpiresWithTTL(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	pending := &model.PendingCode{
		TargetKey: "email:ada@example.com",
		ExpiresAt: time.Now().Add(2 * time.Minute),
	}
	require.NoError(t, store.SaveCode(ctx, constants.KeyPrefixOtp, pending))

	mr.FastForward(3 * time.Minute)

	found, err := store.FindCode(ctx, constants.KeyPrefixOtp, pending.TargetKey)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRedisCodeStore_IssuanceCounter(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()
	hour := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		count, err := store.IncrementIssuance(ctx, "email:ada@example.com", hour)
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}

	// The next hour is a fresh bucket.
	count, err := store.IncrementIssuance(ctx, "email:ada@example.com", hour.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRedisCodeStore_AttemptLifecycle(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	deadline, err := store.BlockedUntil(ctx, "email:ada@example.com")
	require.NoError(t, err)
	assert.True(t, deadline.IsZero())

	for i := 1; i <= 5; i++ {
		count, err := store.IncrementAttempt(ctx, "email:ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}

	blocked := time.Now().Add(15 * time.Minute).UTC().Truncate(time.Second)
	require.NoError(t, store.BlockTarget(ctx, "email:ada@example.com", blocked))

	deadline, err = store.BlockedUntil(ctx, "email:ada@example.com")
	require.NoError(t, err)
	assert.True(t, deadline.Equal(blocked))

	require.NoError(t, store.ClearAttempts(ctx, "email:ada@example.com"))
	deadline, err = store.BlockedUntil(ctx, "email:ada@example.com")
	require.NoError(t, err)
	assert.True(t, deadline.IsZero())

	// The lockout key carries its own TTL.
	require.NoError(t, store.BlockTarget(ctx, "email:ada@example.com", time.Now().Add(time.Minute)))
	mr.FastForward(2 * time.Minute)
	deadline, err = store.BlockedUntil(ctx, "email:ada@example.com")
	require.NoError(t, err)
	assert.True(t, deadline.IsZero())
}
