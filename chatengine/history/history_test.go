package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karacho11/first-chatbot-back/chatengine/cache"
	"github.com/karacho11/first-chatbot-back/chatengine/domain"
	"github.com/karacho11/first-chatbot-back/chatengine/repository"
	"github.com/karacho11/first-chatbot-back/pkg/userqueue"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type failingBackend struct {
	*repository.MemoryBackend
}

func (failingBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New("connection reset")
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *repository.MemoryBackend, *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)}
	backend := repository.NewMemoryBackend(0, repository.WithClock(clk.Now))
	t.Cleanup(backend.Close)
	opts = append([]Option{WithClock(clk.Now)}, opts...)
	return NewStore(cache.New(backend, nil), opts...), backend, clk
}

func TestStore_EmptyHistory(t *testing.T) {
	store, _, _ := newTestStore(t)

	turns := store.GetHistory(context.Background(), "ann")
	require.NotNil(t, turns)
	assert.Empty(t, turns)
}

func TestStore_AppendStampsTurn(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "ann", domain.RoleUser, "Hi"))

	turns := store.GetHistory(ctx, "ann")
	require.Len(t, turns, 1)
	assert.Equal(t, domain.ConversationTurn{
		Role:      domain.RoleUser,
		Content:   "Hi",
		Timestamp: "2024-03-10T08:00:00.000Z",
	}, turns[0])
}

func TestStore_GetHistoryIsIdempotent(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendExchange(ctx, "ann", "Hi", "Hello"))

	first := store.GetHistory(ctx, "ann")
	second := store.GetHistory(ctx, "ann")
	assert.Equal(t, first, second)
}

func TestStore_BoundKeepsNewestTurns(t *testing.T) {
	store, _, clk := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		require.NoError(t, store.Append(ctx, "ann", domain.RoleUser, fmt.Sprintf("msg-%d", i)))
		clk.Advance(time.Second)
	}

	turns := store.GetHistory(ctx, "ann")
	require.Len(t, turns, DefaultMaxTurns)
	for i, turn := range turns {
		assert.Equal(t, fmt.Sprintf("msg-%d", i+10), turn.Content)
	}
	assert.Less(t, turns[0].Timestamp, turns[len(turns)-1].Timestamp)
}

func TestStore_BoundAtExactly51(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 51; i++ {
		require.NoError(t, store.Append(ctx, "ann", domain.RoleUser, fmt.Sprintf("m%d", i)))
	}

	turns := store.GetHistory(ctx, "ann")
	require.Len(t, turns, 50)
	assert.Equal(t, "m1", turns[0].Content)
	assert.Equal(t, "m50", turns[49].Content)
}

func TestStore_CustomMaxTurns(t *testing.T) {
	store, _, _ := newTestStore(t, WithMaxTurns(3))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, "ann", domain.RoleUser, fmt.Sprintf("m%d", i)))
	}
	turns := store.GetHistory(ctx, "ann")
	require.Len(t, turns, 3)
	assert.Equal(t, "m2", turns[0].Content)
}

func TestStore_ClearEmptiesHistory(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendExchange(ctx, "ann", "Hi", "Hello"))
	require.NoError(t, store.Clear(ctx, "ann"))
	require.NoError(t, store.Clear(ctx, "ann"))

	assert.Empty(t, store.GetHistory(ctx, "ann"))
}

func TestStore_HistoriesArePerUser(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "ann", domain.RoleUser, "from ann"))
	require.NoError(t, store.Append(ctx, "bob", domain.RoleUser, "from bob"))
	require.NoError(t, store.Clear(ctx, "bob"))

	require.Len(t, store.GetHistory(ctx, "ann"), 1)
	assert.Empty(t, store.GetHistory(ctx, "bob"))
}

func TestStore_EveryWriteRefreshesTTL(t *testing.T) {
	store, _, clk := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "ann", domain.RoleUser, "first"))
	clk.Advance(29 * 24 * time.Hour)
	require.NoError(t, store.Append(ctx, "ann", domain.RoleAssistant, "second"))
	clk.Advance(29 * 24 * time.Hour)

	assert.Len(t, store.GetHistory(ctx, "ann"), 2)

	clk.Advance(2 * 24 * time.Hour)
	assert.Empty(t, store.GetHistory(ctx, "ann"))
}

func TestStore_CorruptHistoryReadsEmpty(t *testing.T) {
	store, backend, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, domain.HistoryKey("ann"), []byte(`{"role":`), 0))
	assert.Empty(t, store.GetHistory(ctx, "ann"))

	require.NoError(t, store.Append(ctx, "ann", domain.RoleUser, "fresh start"))
	assert.Len(t, store.GetHistory(ctx, "ann"), 1)
}

func TestStore_BackendReadFailureDegradesToEmpty(t *testing.T) {
	backend := repository.NewMemoryBackend(0)
	t.Cleanup(backend.Close)
	store := NewStore(cache.New(failingBackend{backend}, nil))

	assert.Empty(t, store.GetHistory(context.Background(), "ann"))
}

func TestStore_AppendAfterReadFailureKeepsStoredTurns(t *testing.T) {
	backend := repository.NewMemoryBackend(0)
	t.Cleanup(backend.Close)
	ctx := context.Background()

	seeded := NewStore(cache.New(backend, nil))
	require.NoError(t, seeded.AppendExchange(ctx, "ann", "Hi", "Hello"))
	before, _, err := backend.Get(ctx, domain.HistoryKey("ann"))
	require.NoError(t, err)

	store := NewStore(cache.New(failingBackend{backend}, nil))
	err = store.Append(ctx, "ann", domain.RoleUser, "lost?")
	assert.ErrorContains(t, err, "connection reset")

	after, _, err := backend.Get(ctx, domain.HistoryKey("ann"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, seeded.GetHistory(ctx, "ann"), 2)
}

func TestStore_WriteQueuePreventsLostUpdates(t *testing.T) {
	pool := userqueue.NewPool(4, 64)
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)

	store, _, _ := newTestStore(t, WithWriteQueue(pool), WithMaxTurns(200))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Append(ctx, "ann", domain.RoleUser, fmt.Sprintf("m%d", i)))
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.GetHistory(ctx, "ann"), 40)
}

func TestStore_AppendExchangeKeepsPairAdjacent(t *testing.T) {
	pool := userqueue.NewPool(2, 64)
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)

	store, _, _ := newTestStore(t, WithWriteQueue(pool), WithMaxTurns(200))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.AppendExchange(ctx, "ann", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i)))
		}(i)
	}
	wg.Wait()

	turns := store.GetHistory(ctx, "ann")
	require.Len(t, turns, 20)
	for i := 0; i < len(turns); i += 2 {
		assert.Equal(t, domain.RoleUser, turns[i].Role)
		assert.Equal(t, domain.RoleAssistant, turns[i+1].Role)
		assert.Equal(t, "a"+turns[i].Content[1:], turns[i+1].Content)
	}
}
