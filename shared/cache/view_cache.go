package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// ErrMiss is returned by a Backend when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Backend stores raw bytes under string keys.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// ViewCache is a generic JSON-backed cache for read model projections.
// A nil *ViewCache, or one without a backend, behaves as an always-empty cache.
type ViewCache[T any] struct {
	backend Backend
	prefix  string
	ttl     time.Duration
	log     zerolog.Logger
}

// NewViewCache binds a ViewCache for view type T to backend. Keys are
// namespaced under prefix.
func NewViewCache[T any](backend Backend, prefix string, ttl time.Duration, log zerolog.Logger) *ViewCache[T] {
	return &ViewCache[T]{backend: backend, prefix: prefix, ttl: ttl, log: log}
}

func (c *ViewCache[T]) enabled() bool {
	return c != nil && c.backend != nil
}

// Get retrieves and unmarshals a value. Returns (nil, false) on any miss or
// deserialisation error.
func (c *ViewCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	if !c.enabled() {
		return nil, false
	}
	data, err := c.backend.Get(ctx, c.prefix+key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.log.Warn().Err(err).Str("key", c.prefix+key).Msg("view cache read failed")
		}
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// Set marshals value and stores it under key. Failures are logged, not returned.
func (c *ViewCache[T]) Set(ctx context.Context, key string, value *T) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warn().Err(err).Str("key", c.prefix+key).Msg("view cache marshal failed")
		return
	}
	if err := c.backend.Set(ctx, c.prefix+key, data, c.ttl); err != nil {
		c.log.Warn().Err(err).Str("key", c.prefix+key).Msg("view cache write failed")
	}
}

// Delete drops a single key. Failures are logged, not returned.
func (c *ViewCache[T]) Delete(ctx context.Context, key string) {
	if !c.enabled() {
		return
	}
	if err := c.backend.Delete(ctx, c.prefix+key); err != nil {
		c.log.Warn().Err(err).Str("key", c.prefix+key).Msg("view cache delete failed")
	}
}

// Flush drops every key under this cache's prefix.
func (c *ViewCache[T]) Flush(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.backend.DeletePrefix(ctx, c.prefix)
}
