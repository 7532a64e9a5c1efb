package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/draftdesk/identity/internal/constants"
	"github.com/draftdesk/identity/internal/model"
)

// RedisCodeStore keeps verification state in Redis so multiple instances
// share one view of pending codes and counters. Codes and counters carry
// their own TTLs; SweepExpired is a no-op because Redis expires keys.
type RedisCodeStore struct {
	rdb        *redis.Client
	attemptTTL time.Duration
}

func NewRedisCodeStore(rdb *redis.Client, attemptTTL time.Duration) *RedisCodeStore {
	return &RedisCodeStore{rdb: rdb, attemptTTL: attemptTTL}
}

func (s *RedisCodeStore) SaveCode(ctx context.Context, prefix string, code *model.PendingCode) error {
	payload, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("failed to marshal pending code: %w", err)
	}
	ttl := time.Until(code.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.rdb.Set(ctx, prefix+code.TargetKey, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store pending code: %w", err)
	}
	return nil
}

func (s *RedisCodeStore) FindCode(ctx context.Context, prefix, targetKey string) (*model.PendingCode, error) {
	payload, err := s.rdb.Get(ctx, prefix+targetKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load pending code: %w", err)
	}
	var code model.PendingCode
	if err := json.Unmarshal([]byte(payload), &code); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending code: %w", err)
	}
	return &code, nil
}

func (s *RedisCodeStore) DeleteCode(ctx context.Context, prefix, targetKey string) error {
	if err := s.rdb.Del(ctx, prefix+targetKey).Err(); err != nil {
		return fmt.Errorf("failed to delete pending code: %w", err)
	}
	return nil
}

func (s *RedisCodeStore) SweepExpired(context.Context, string, time.Time) error {
	return nil
}

func rateKey(targetKey string, hourStart time.Time) string {
	return fmt.Sprintf("%s%s:%d", constants.KeyPrefixRate, targetKey, hourStart.Unix())
}

// IncrementIssuance relies on INCR being atomic, so each concurrent issuer
// observes a distinct count and at most one can land on any given value.
func (s *RedisCodeStore) IncrementIssuance(ctx context.Context, targetKey string, hourStart time.Time) (int, error) {
	key := rateKey(targetKey, hourStart)
	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment issuance counter: %w", err)
	}
	if count == 1 {
		// Bucket keys name their hour, so an hour past the bucket start
		// is always enough for every read against this bucket.
		if err := s.rdb.Expire(ctx, key, time.Hour).Err(); err != nil {
			return 0, fmt.Errorf("failed to expire issuance counter: %w", err)
		}
	}
	return int(count), nil
}

func (s *RedisCodeStore) IncrementAttempt(ctx context.Context, targetKey string) (int, error) {
	key := constants.KeyPrefixAttempt + targetKey
	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment attempt counter: %w", err)
	}
	if count == 1 {
		if err := s.rdb.Expire(ctx, key, s.attemptTTL).Err(); err != nil {
			return 0, fmt.Errorf("failed to expire attempt counter: %w", err)
		}
	}
	return int(count), nil
}

func (s *RedisCodeStore) BlockTarget(ctx context.Context, targetKey string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.rdb.Set(ctx, constants.KeyPrefixBlock+targetKey, until.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to store lockout: %w", err)
	}
	return nil
}

func (s *RedisCodeStore) BlockedUntil(ctx context.Context, targetKey string) (time.Time, error) {
	deadline, err := s.rdb.Get(ctx, constants.KeyPrefixBlock+targetKey).Int64()
	if err != nil {
		if err == redis.Nil {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to read lockout: %w", err)
	}
	return time.Unix(deadline, 0), nil
}

func (s *RedisCodeStore) ClearAttempts(ctx context.Context, targetKey string) error {
	keys := []string{constants.KeyPrefixAttempt + targetKey, constants.KeyPrefixBlock + targetKey}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear attempt counter: %w", err)
	}
	return nil
}
