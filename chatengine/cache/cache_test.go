package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karacho11/first-chatbot-back/chatengine/repository"
	"github.com/karacho11/first-chatbot-back/pkg/metrics"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type brokenBackend struct {
	*repository.MemoryBackend
}

func (brokenBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func newTestCache(t *testing.T) (*Cache, *repository.MemoryBackend, *time.Time) {
	t.Helper()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	backend := repository.NewMemoryBackend(0, repository.WithClock(func() time.Time { return now }))
	t.Cleanup(backend.Close)
	return New(backend, nil), backend, &now
}

func TestCache_SetGetRoundTrip(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "user:ann:profile", payload{Name: "ann", Count: 2}, time.Hour))

	var got payload
	found, err := c.Get(ctx, "user:ann:profile", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Name: "ann", Count: 2}, got)
}

func TestCache_GetMissing(t *testing.T) {
	c, _, _ := newTestCache(t)

	var got payload
	found, err := c.Get(context.Background(), "nope", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_ExpiredIsAbsent(t *testing.T) {
	c, _, now := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{Name: "x"}, time.Second))
	*now = now.Add(time.Second)

	var got payload
	found, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)

	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCache_CorruptPayloadIsAbsent(t *testing.T) {
	c, backend, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "k", []byte("{not json"), 0))

	var got payload
	found, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_DeleteIsIdempotent(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", 1, 0))
	require.NoError(t, c.Delete(ctx, "k"))
	require.NoError(t, c.Delete(ctx, "k"))

	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCache_BackendErrorPropagatesOnGet(t *testing.T) {
	backend := repository.NewMemoryBackend(0)
	t.Cleanup(backend.Close)
	c := New(brokenBackend{backend}, nil)

	var got payload
	found, err := c.Get(context.Background(), "k", &got)
	assert.Error(t, err)
	assert.False(t, found)
}

func TestCache_UnmarshalableValue(t *testing.T) {
	c, _, _ := newTestCache(t)
	err := c.Set(context.Background(), "k", make(chan int), 0)
	assert.Error(t, err)
}

func TestCache_RecordsMetrics(t *testing.T) {
	backend := repository.NewMemoryBackend(0)
	t.Cleanup(backend.Close)
	m := metrics.NewMetrics(prometheus.NewRegistry())
	c := New(backend, m)
	ctx := context.Background()

	var got payload
	_, _ = c.Get(ctx, "k", &got)
	require.NoError(t, c.Set(ctx, "k", payload{}, 0))
	_, _ = c.Get(ctx, "k", &got)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheOperationsTotal.WithLabelValues("get", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheOperationsTotal.WithLabelValues("get", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheOperationsTotal.WithLabelValues("set", "ok")))
}
