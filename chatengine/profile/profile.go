// Package profile caches a small per-user record.
package profile

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/karacho11/first-chatbot-back/chatengine/cache"
	"github.com/karacho11/first-chatbot-back/chatengine/domain"
)

const DefaultTTL = 24 * time.Hour

// Cache stores one UserProfile per user name. Every write fully replaces the
// previous record.
type Cache struct {
	cache *cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewCache creates a profile cache with the given TTL (DefaultTTL when zero).
func NewCache(c *cache.Cache, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{cache: c, ttl: ttl, now: time.Now}
}

// WithClock overrides the clock used for CachedAt.
func (p *Cache) WithClock(now func() time.Time) *Cache {
	p.now = now
	return p
}

// CacheUserName writes {name, cachedAt: now}, overwriting any prior record.
func (p *Cache) CacheUserName(ctx context.Context, userName string) (domain.UserProfile, error) {
	profile := domain.UserProfile{
		Name:     userName,
		CachedAt: p.now().UTC(),
	}
	if err := p.cache.Set(ctx, domain.ProfileKey(userName), profile, p.ttl); err != nil {
		return domain.UserProfile{}, err
	}
	return profile, nil
}

// GetCachedUserName returns the profile, or nil when absent or expired.
// A failed read is logged and reported as absent.
func (p *Cache) GetCachedUserName(ctx context.Context, userName string) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	found, err := p.cache.Get(ctx, domain.ProfileKey(userName), &profile)
	if err != nil {
		logrus.WithError(err).WithField("user", userName).Warn("[PROFILE] Failed to read profile, treating as absent")
		return nil, nil
	}
	if !found {
		return nil, nil
	}
	return &profile, nil
}
