package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store shared by every instance behind one redis.
// Entries are namespaced by a generation counter; Invalidate bumps it so
// older entries become unreachable and expire on their own.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore. Keys are written under prefix.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisClient connects to the redis server at url.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) generationKey() string {
	return s.prefix + ":generation"
}

func (s *RedisStore) entryKey(gen uint64, key string) string {
	return s.prefix + ":" + strconv.FormatUint(gen, 10) + ":" + key
}

// Generation returns the current generation; zero until the first Invalidate.
func (s *RedisStore) Generation(ctx context.Context) (uint64, error) {
	gen, err := s.client.Get(ctx, s.generationKey()).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cache generation: %w", err)
	}
	return gen, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	gen, err := s.Generation(ctx)
	if err != nil {
		return nil, false, err
	}
	value, err := s.client.Get(ctx, s.entryKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return value, true, nil
}

// Set writes under gen. After an Invalidate that namespace is never read
// again, so a stale value only lingers until its TTL.
func (s *RedisStore) Set(ctx context.Context, gen uint64, key string, value []byte) error {
	if err := s.client.Set(ctx, s.entryKey(gen, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

func (s *RedisStore) Invalidate(ctx context.Context) error {
	if err := s.client.Incr(ctx, s.generationKey()).Err(); err != nil {
		return fmt.Errorf("failed to bump cache generation: %w", err)
	}
	return nil
}
