// Package snapshot archives point-in-time prompt/response pairs. Snapshots
// live next to the rolling history but are never read back into a prompt.
package snapshot

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/karacho11/first-chatbot-back/chatengine/cache"
	"github.com/karacho11/first-chatbot-back/chatengine/domain"
)

const DefaultTTL = 7 * 24 * time.Hour

// Store writes one snapshot per (user, timestamp).
type Store struct {
	cache *cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewStore creates a snapshot store with the given TTL (DefaultTTL when zero).
func NewStore(c *cache.Cache, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{cache: c, ttl: ttl, now: time.Now}
}

// Save stores the snapshot, replacing one with the same timestamp.
func (s *Store) Save(ctx context.Context, userName, timestamp, prompt, response string) (domain.ConversationSnapshot, error) {
	snap := domain.ConversationSnapshot{
		Timestamp: timestamp,
		Prompt:    prompt,
		Response:  response,
		CreatedAt: s.now().UTC(),
	}
	if err := s.cache.Set(ctx, domain.SnapshotKey(userName, timestamp), snap, s.ttl); err != nil {
		return domain.ConversationSnapshot{}, err
	}
	return snap, nil
}

// Get returns one snapshot or nil when absent. A failed read is logged and
// reported as absent.
func (s *Store) Get(ctx context.Context, userName, timestamp string) (*domain.ConversationSnapshot, error) {
	var snap domain.ConversationSnapshot
	found, err := s.cache.Get(ctx, domain.SnapshotKey(userName, timestamp), &snap)
	if err != nil {
		logrus.WithError(err).WithField("user", userName).Warn("[SNAPSHOT] Failed to read snapshot, treating as absent")
		return nil, nil
	}
	if !found {
		return nil, nil
	}
	return &snap, nil
}

// List returns every live snapshot of the user ordered by timestamp. Read
// failures are logged; the listing degrades to what could be read.
func (s *Store) List(ctx context.Context, userName string) ([]domain.ConversationSnapshot, error) {
	keys, err := s.cache.Keys(ctx, domain.SnapshotPattern(userName))
	if err != nil {
		logrus.WithError(err).WithField("user", userName).Warn("[SNAPSHOT] Failed to list snapshots, treating as empty")
		return []domain.ConversationSnapshot{}, nil
	}

	snaps := make([]domain.ConversationSnapshot, 0, len(keys))
	for _, key := range keys {
		var snap domain.ConversationSnapshot
		found, err := s.cache.Get(ctx, key, &snap)
		if err != nil {
			logrus.WithError(err).WithField("key", key).Warn("[SNAPSHOT] Failed to read snapshot, skipping")
			continue
		}
		if !found {
			// expired between SCAN and GET, or undecodable
			logrus.WithField("key", key).Debug("[SNAPSHOT] Skipping missing snapshot")
			continue
		}
		snaps = append(snaps, snap)
	}

	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].Timestamp < snaps[j].Timestamp
	})
	return snaps, nil
}
