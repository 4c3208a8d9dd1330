package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yourusername/tickgate/core"
)

const redisKeyPrefix = "tickgate:"

// RedisStore holds bucket states in Redis so multiple instances share one
// set of limits. States expire after the configured TTL; an expired state
// simply reads back as nil, which the bucket treats as fresh and full.
type RedisStore struct {
	client *redis.Client
	ctx    context.Context
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	Addr     string        // Redis address, e.g. "localhost:6379"
	Password string        // empty for no auth
	DB       int           // Redis database number
	TTL      time.Duration // bucket state lifetime (default 1 hour)
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(config RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ttl := config.TTL
	if ttl == 0 {
		ttl = 1 * time.Hour
	}

	return &RedisStore{
		client: client,
		ctx:    context.Background(),
		ttl:    ttl,
	}
}

// Get returns the stored state for key, or nil when the key is absent,
// expired, or unreadable.
func (s *RedisStore) Get(key string) *core.BucketState {
	val, err := s.client.Get(s.ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return nil
	}

	var state core.BucketState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil
	}
	return &state
}

// Set stores the state for key with the configured TTL.
func (s *RedisStore) Set(key string, state *core.BucketState) {
	data, err := json.Marshal(state)
	if err != nil {
		return
	}
	s.client.Set(s.ctx, redisKeyPrefix+key, data, s.ttl)
}

// Delete removes the state for key.
func (s *RedisStore) Delete(key string) {
	s.client.Del(s.ctx, redisKeyPrefix+key)
}

// Clear removes every tickgate key from Redis.
func (s *RedisStore) Clear() {
	iter := s.client.Scan(s.ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(s.ctx) {
		s.client.Del(s.ctx, iter.Val())
	}
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping() error {
	return s.client.Ping(s.ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
