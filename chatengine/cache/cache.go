// Package cache is the JSON layer every conversation store builds on: values
// are marshalled into a domain.Backend under application-defined keys with an
// optional TTL.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/karacho11/first-chatbot-back/chatengine/domain"
	"github.com/karacho11/first-chatbot-back/pkg/metrics"
)

// Cache serialises values to JSON and stores them in a Backend.
type Cache struct {
	backend domain.Backend
	metrics *metrics.Metrics
}

// New creates a Cache over backend. m may be nil.
func New(backend domain.Backend, m *metrics.Metrics) *Cache {
	return &Cache{backend: backend, metrics: m}
}

// Set stores value under key. A ttl of zero keeps the entry until deleted.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		c.metrics.CacheOp("set", "error")
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := c.backend.Set(ctx, key, data, ttl); err != nil {
		c.metrics.CacheOp("set", "error")
		return err
	}
	c.metrics.CacheOp("set", "ok")
	return nil
}

// Get decodes the value stored under key into dest and reports whether it was
// found. A corrupt payload is logged and reported as not found; only backend
// failures are returned as errors.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, found, err := c.backend.Get(ctx, key)
	if err != nil {
		c.metrics.CacheOp("get", "error")
		return false, err
	}
	if !found {
		c.metrics.CacheOp("get", "miss")
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.metrics.CacheOp("get", "corrupt")
		logrus.WithError(err).WithField("key", key).Warn("[CACHE] Discarding undecodable entry")
		return false, nil
	}
	c.metrics.CacheOp("get", "hit")
	return true, nil
}

// Delete removes key. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.backend.Delete(ctx, key); err != nil {
		c.metrics.CacheOp("delete", "error")
		return err
	}
	c.metrics.CacheOp("delete", "ok")
	return nil
}

// Exists reports whether a live entry is stored under key.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	return c.backend.Exists(ctx, key)
}

// Keys lists live keys matching a glob pattern.
func (c *Cache) Keys(ctx context.Context, pattern string) ([]string, error) {
	return c.backend.Keys(ctx, pattern)
}

// Ping checks the backend.
func (c *Cache) Ping(ctx context.Context) error {
	return c.backend.Ping(ctx)
}
