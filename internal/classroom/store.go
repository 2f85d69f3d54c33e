package classroom

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Store is the TTL-capable key-value cache the engine keeps session state in.
// Get reports absence via ok=false rather than an error, so the engine can
// distinguish "not open" from infrastructure failures.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, keys ...string) error
}

// RedisStore implements Store on go-redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps a Redis client as a session store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// One key triple per lesson. The three keys are created and deleted together;
// "record present" implies "secret present" for an open session.
func recordKey(lessonID int64) string {
	return fmt.Sprintf("lesson:%d:classroom:record", lessonID)
}

func secretKey(lessonID int64) string {
	return fmt.Sprintf("lesson:%d:classroom:attendance_secret", lessonID)
}

func expirationKey(lessonID int64) string {
	return fmt.Sprintf("lesson:%d:classroom:attendance_expiration", lessonID)
}
