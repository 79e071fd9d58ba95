package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/philipparndt/goobj/internal/config"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each collection in one Redis hash
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisStoreWithClient creates a store with an existing Redis client
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string) *RedisStore {
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (s *RedisStore) hashKey(collection string) string {
	return s.keyPrefix + collection
}

func (s *RedisStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	if err := validate(collection, key); err != nil {
		return nil, err
	}

	value, err := s.client.HGet(ctx, s.hashKey(collection), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, key, err)
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, collection, key string, value []byte) error {
	if err := validate(collection, key); err != nil {
		return err
	}

	if err := s.client.HSet(ctx, s.hashKey(collection), key, value).Err(); err != nil {
		return fmt.Errorf("failed to set %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, collection, key string) error {
	if err := validate(collection, key); err != nil {
		return err
	}

	if err := s.client.HDel(ctx, s.hashKey(collection), key).Err(); err != nil {
		return fmt.Errorf("failed to remove %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, collection string) ([]Item, error) {
	if err := validateName("collection", collection); err != nil {
		return nil, err
	}

	values, err := s.client.HGetAll(ctx, s.hashKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}

	items := make([]Item, 0, len(values))
	for key, value := range values {
		items = append(items, Item{Key: key, Value: []byte(value)})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Key < items[j].Key
	})
	return items, nil
}

// Close closes the underlying client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
