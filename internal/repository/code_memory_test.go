package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftdesk/identity/internal/constants"
	"github.com/draftdesk/identity/internal/model"
)

func TestInMemoryCodeStore_SweepExpired(t *testing.T) {
	store := NewInMemoryCodeStore()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	live := &model.PendingCode{TargetKey: "email:live@example.com", ExpiresAt: now.Add(time.Minute)}
	dead := &model.PendingCode{TargetKey: "email:dead@example.com", ExpiresAt: now.Add(-time.Minute)}
	require.NoError(t, store.SaveCode(ctx, constants.KeyPrefixOtp, live))
	require.NoError(t, store.SaveCode(ctx, constants.KeyPrefixOtp, dead))

	// An expired entry under a different prefix stays put.
	otherPrefix := &model.PendingCode{TargetKey: "email:dead@example.com", ExpiresAt: now.Add(-time.Minute)}
	require.NoError(t, store.SaveCode(ctx, constants.KeyPrefixReset, otherPrefix))

	require.NoError(t, store.SweepExpired(ctx, constants.KeyPrefixOtp, now))

	found, err := store.FindCode(ctx, constants.KeyPrefixOtp, live.TargetKey)
	require.NoError(t, err)
	assert.NotNil(t, found)

	found, err = store.FindCode(ctx, constants.KeyPrefixOtp, dead.TargetKey)
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = store.FindCode(ctx, constants.KeyPrefixReset, otherPrefix.TargetKey)
	require.NoError(t, err)
	assert.NotNil(t, found)
}

func TestInMemoryCodeStore_BucketRollsOver(t *testing.T) {
	store := NewInMemoryCodeStore()
	ctx := context.Background()
	hour := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	count, err := store.IncrementIssuance(ctx, "email:ada@example.com", hour)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.IncrementIssuance(ctx, "email:ada@example.com", hour)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Incrementing into the new hour resets the bucket.
	next := hour.Add(time.Hour)
	count, err = store.IncrementIssuance(ctx, "email:ada@example.com", next)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInMemoryCodeStore_IncrementsAreDistinctUnderConcurrency(t *testing.T) {
	store := NewInMemoryCodeStore()
	ctx := context.Background()
	hour := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	const workers = 20
	counts := make(chan int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			count, err := store.IncrementIssuance(ctx, "email:ada@example.com", hour)
			assert.NoError(t, err)
			counts <- count
		}()
	}
	wg.Wait()
	close(counts)

	seen := make(map[int]bool)
	for count := range counts {
		assert.False(t, seen[count], "count %d returned twice", count)
		seen[count] = true
	}
	assert.Len(t, seen, workers)
}

func TestInMemoryCodeStore_AttemptLifecycle(t *testing.T) {
	store := NewInMemoryCodeStore()
	ctx := context.Background()
	until := time.Date(2025, 6, 1, 10, 15, 0, 0, time.UTC)

	count, err := store.IncrementAttempt(ctx, "email:ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.IncrementAttempt(ctx, "email:ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, store.BlockTarget(ctx, "email:ada@example.com", until))
	deadline, err := store.BlockedUntil(ctx, "email:ada@example.com")
	require.NoError(t, err)
	assert.True(t, deadline.Equal(until))

	require.NoError(t, store.ClearAttempts(ctx, "email:ada@example.com"))
	deadline, err = store.BlockedUntil(ctx, "email:ada@example.com")
	require.NoError(t, err)
	assert.True(t, deadline.IsZero())
	count, err = store.IncrementAttempt(ctx, "email:ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
