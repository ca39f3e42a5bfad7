package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey holds the status record when the Redis backend is used.
const DefaultRedisKey = "hotspotx:wallet_status"

// RedisStore keeps the record as a JSON string under a single key.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore returns a RedisStore using key, or DefaultRedisKey when empty.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (Record, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return decodeRecord(raw)
}

func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}
