// Package history keeps the rolling, bounded conversation log of each user.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/karacho11/first-chatbot-back/chatengine/cache"
	"github.com/karacho11/first-chatbot-back/chatengine/domain"
	"github.com/karacho11/first-chatbot-back/pkg/metrics"
	"github.com/karacho11/first-chatbot-back/pkg/userqueue"
)

const (
	DefaultMaxTurns = 50
	DefaultTTL      = 30 * 24 * time.Hour

	// TimestampLayout is ISO-8601 in UTC with millisecond precision.
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Store reads and rewrites a user's history as one JSON array.
//
// Every write is a read-modify-write of the whole array. With a write queue
// configured, all writes of one user run on the same worker, so concurrent
// appends cannot overwrite each other. Without one, two concurrent appends for
// the same user may both read the same history and the later write wins.
type Store struct {
	cache    *cache.Cache
	queue    *userqueue.Pool
	maxTurns int
	ttl      time.Duration
	now      func() time.Time
	metrics  *metrics.Metrics
}

// Option customises a Store.
type Option func(*Store)

func WithMaxTurns(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxTurns = n
		}
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithWriteQueue routes every write through pool, keyed by user name.
func WithWriteQueue(pool *userqueue.Pool) Option {
	return func(s *Store) { s.queue = pool }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// NewStore creates a history store over c.
func NewStore(c *cache.Cache, opts ...Option) *Store {
	s := &Store{
		cache:    c,
		maxTurns: DefaultMaxTurns,
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetHistory returns the user's turns oldest first. Missing, expired or
// unreadable history is an empty slice, never an error.
func (s *Store) GetHistory(ctx context.Context, userName string) []domain.ConversationTurn {
	turns, err := s.load(ctx, userName)
	if err != nil {
		logrus.WithError(err).WithField("user", userName).Warn("[HISTORY] Failed to load history, continuing without it")
		return []domain.ConversationTurn{}
	}
	return turns
}

// load separates a failed read from an absent or corrupt entry, which both
// yield an empty slice.
func (s *Store) load(ctx context.Context, userName string) ([]domain.ConversationTurn, error) {
	var turns []domain.ConversationTurn
	found, err := s.cache.Get(ctx, domain.HistoryKey(userName), &turns)
	if err != nil {
		return nil, err
	}
	if !found || turns == nil {
		return []domain.ConversationTurn{}, nil
	}
	return turns, nil
}

// Append adds one turn stamped with the current time and trims the history
// to the newest maxTurns entries.
func (s *Store) Append(ctx context.Context, userName string, role domain.Role, content string) error {
	return s.serialize(ctx, userName, func(ctx context.Context) error {
		return s.append(ctx, userName, role, content)
	})
}

// AppendExchange appends the user prompt and then the assistant reply as two
// consecutive appends that no other write for the same user can interleave.
func (s *Store) AppendExchange(ctx context.Context, userName, prompt, reply string) error {
	return s.serialize(ctx, userName, func(ctx context.Context) error {
		if err := s.append(ctx, userName, domain.RoleUser, prompt); err != nil {
			return err
		}
		return s.append(ctx, userName, domain.RoleAssistant, reply)
	})
}

// Clear deletes the user's history.
func (s *Store) Clear(ctx context.Context, userName string) error {
	return s.serialize(ctx, userName, func(ctx context.Context) error {
		return s.cache.Delete(ctx, domain.HistoryKey(userName))
	})
}

func (s *Store) serialize(ctx context.Context, userName string, fn func(ctx context.Context) error) error {
	if s.queue == nil {
		return fn(ctx)
	}
	return s.queue.Do(ctx, userName, fn)
}

// append refuses to write when the current history could not be read, so a
// transient read failure never replaces the stored turns with a single one.
func (s *Store) append(ctx context.Context, userName string, role domain.Role, content string) error {
	turns, err := s.load(ctx, userName)
	if err != nil {
		s.metrics.HistoryWrite("history", err)
		return fmt.Errorf("failed to read history before append: %w", err)
	}
	turns = append(turns, domain.ConversationTurn{
		Role:      role,
		Content:   content,
		Timestamp: s.now().UTC().Format(TimestampLayout),
	})
	if len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}

	err = s.cache.Set(ctx, domain.HistoryKey(userName), turns, s.ttl)
	s.metrics.HistoryWrite("history", err)
	return err
}
