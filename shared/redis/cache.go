package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eaglebank/product-transactions/shared/cache"
	goredis "github.com/redis/go-redis/v9"
)

// CacheBackend stores view cache entries in Redis so every replica shares them.
type CacheBackend struct {
	client *goredis.Client
}

func NewCacheBackend(client *goredis.Client) *CacheBackend {
	return &CacheBackend{client: client}
}

func (b *CacheBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, cache.ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return data, nil
}

// Set stores value under key. A ttl of 0 keeps the key until it is flushed.
func (b *CacheBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := b.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (b *CacheBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix using SCAN, so it never
// blocks the server the way KEYS would.
func (b *CacheBackend) DeletePrefix(ctx context.Context, prefix string) error {
	iter := b.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == 100 {
			if err := b.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete %s*: %w", prefix, err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan %s*: %w", prefix, err)
	}
	if len(keys) > 0 {
		if err := b.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to delete %s*: %w", prefix, err)
		}
	}
	return nil
}
