package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/shared"
)

// DefaultKeyPrefix namespaces cart records in Redis
const DefaultKeyPrefix = "cart:"

// RedisCartStore implements cart.RecordStore on Redis.
// Each session is one key holding the JSON record; every Put resets the TTL.
type RedisCartStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisCartStore connects to Redis and verifies the connection
func NewRedisCartStore(cfg RedisConfig, keyPrefix string) (*RedisCartStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCartStoreWithClient(client, keyPrefix), nil
}

// NewRedisCartStoreWithClient creates a store over an existing client
func NewRedisCartStoreWithClient(client *redis.Client, keyPrefix string) *RedisCartStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisCartStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (s *RedisCartStore) key(sessionID cart.SessionID) string {
	return s.keyPrefix + sessionID.String()
}

// Get returns the live record, or nil when the key is absent or expired
func (s *RedisCartStore) Get(ctx context.Context, sessionID cart.SessionID) (*cart.SyncRecord, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get cart record", err)
	}

	var record cart.SyncRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode cart record %s: %w", sessionID, err)
	}
	record.Lines = cart.Normalize(record.Lines)
	return &record, nil
}

// Put replaces the record with SET ... EX ttl
func (s *RedisCartStore) Put(ctx context.Context, record *cart.SyncRecord, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode cart record: %w", err)
	}
	if err := s.client.Set(ctx, s.key(record.SessionID), data, ttl).Err(); err != nil {
		return unavailable("put cart record", err)
	}
	return nil
}

// Delete removes the record; deleting an absent key is not an error
func (s *RedisCartStore) Delete(ctx context.Context, sessionID cart.SessionID) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return unavailable("delete cart record", err)
	}
	return nil
}

// Ping checks the connection
func (s *RedisCartStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping redis", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisCartStore) Close() error {
	return s.client.Close()
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, shared.ErrStoreUnavailable, err)
}

var _ cart.RecordStore = (*RedisCartStore)(nil)
