package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tidwall/match"

	"github.com/karacho11/first-chatbot-back/chatengine/domain"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryBackend is an in-memory implementation of domain.Backend.
// Used when Valkey is disabled and in tests.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

var _ domain.Backend = (*MemoryBackend)(nil)

// MemoryOption customises a MemoryBackend.
type MemoryOption func(*MemoryBackend)

// WithClock replaces time.Now, letting tests step over TTLs.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryBackend) {
		s.now = now
	}
}

// NewMemoryBackend creates a new in-memory backend. Expired entries are
// swept every cleanupInterval; zero disables the sweeper.
func NewMemoryBackend(cleanupInterval time.Duration, opts ...MemoryOption) *MemoryBackend {
	s := &MemoryBackend{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if cleanupInterval > 0 {
		go s.cleanupLoop(cleanupInterval)
	}
	return s
}

func (s *MemoryBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	return nil
}

func (s *MemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok || entry.expired(s.now()) {
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

func (s *MemoryBackend) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *MemoryBackend) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	return ok && !entry.expired(s.now()), nil
}

func (s *MemoryBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var keys []string
	for key, entry := range s.entries {
		if entry.expired(now) {
			continue
		}
		// Redis glob semantics: '*' also spans '/'.
		if match.Match(key, pattern) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryBackend) Ping(ctx context.Context) error {
	return nil
}

// Cleanup removes all expired entries.
func (s *MemoryBackend) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, key)
		}
	}
}

// Close stops the background sweeper.
func (s *MemoryBackend) Close() {
	s.once.Do(func() {
		close(s.stopCh)
	})
}

func (s *MemoryBackend) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Cleanup()
		case <-s.stopCh:
			return
		}
	}
}
