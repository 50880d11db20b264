package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// LocalBackend is an in-process Backend for single-replica deployments.
type LocalBackend struct {
	items *gocache.Cache
}

func NewLocalBackend(cleanupInterval time.Duration) *LocalBackend {
	return &LocalBackend{items: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (b *LocalBackend) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := b.items.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, ErrMiss
	}
	return data, nil
}

func (b *LocalBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	b.items.Set(key, value, ttl)
	return nil
}

func (b *LocalBackend) Delete(_ context.Context, key string) error {
	b.items.Delete(key)
	return nil
}

func (b *LocalBackend) DeletePrefix(_ context.Context, prefix string) error {
	for key := range b.items.Items() {
		if strings.HasPrefix(key, prefix) {
			b.items.Delete(key)
		}
	}
	return nil
}
