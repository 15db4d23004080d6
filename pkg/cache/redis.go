package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mira-amm/pointsx/pkg/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultGracePeriod is how long a replaced snapshot object stays readable.
const DefaultGracePeriod = 5 * time.Minute

// RedisStore keeps each snapshot as an immutable versioned key and swaps a
// pointer key to publish it. Readers never observe a missing snapshot between writes.
type RedisStore struct {
	client    redis.Cmdable
	namespace string
	grace     time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewRedisStore(client redis.Cmdable, namespace string, grace time.Duration, logger *zap.Logger) *RedisStore {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &RedisStore{
		client:    client,
		namespace: namespace,
		grace:     grace,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *RedisStore) Name() string { return "redis" }

func (s *RedisStore) pointerKey() string { return s.namespace + ":current" }

func (s *RedisStore) versionKey(t time.Time) string {
	return fmt.Sprintf("%s:v:%d", s.namespace, t.UnixNano())
}

func (s *RedisStore) Read(ctx context.Context) (models.Snapshot, error) {
	key, err := s.client.Get(ctx, s.pointerKey()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.pointerKey(), err)
	}

	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return Decode(raw)
}

// Write uploads a new version, swaps the pointer with GETSET, then lets the
// previous version expire after the grace period.
func (s *RedisStore) Write(ctx context.Context, snapshot models.Snapshot) error {
	payload, err := Encode(snapshot)
	if err != nil {
		return err
	}

	key := s.versionKey(s.now())
	if err := s.client.Set(ctx, key, payload, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	prev, err := s.client.GetSet(ctx, s.pointerKey(), key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		// The new version was never published.
		_ = s.client.Expire(ctx, key, s.grace).Err()
		return fmt.Errorf("swap %s: %w", s.pointerKey(), err)
	}

	if prev != "" && prev != key {
		if err := s.client.Expire(ctx, prev, s.grace).Err(); err != nil {
			s.logger.Warn("Failed to expire replaced snapshot",
				zap.String("key", prev),
				zap.Error(err))
		}
	}
	return nil
}
