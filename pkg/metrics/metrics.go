// Package metrics provides Prometheus metrics for the chat service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of the chat service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Cache metrics
	CacheOperationsTotal *prometheus.CounterVec

	// Upstream (completion / embedding) metrics
	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec

	// Conversation metrics
	ChatRequestsTotal  *prometheus.CounterVec
	HistoryWritesTotal *prometheus.CounterVec
	RetrievedDocuments prometheus.Histogram
	ServerStartTime    time.Time
}

// NewMetrics creates and registers all metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		ServerStartTime: time.Now(),
	}

	m.CacheOperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_cache_operations_total",
			Help: "Total number of cache operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	m.UpstreamRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_upstream_requests_total",
			Help: "Total number of completion and embedding calls",
		},
		[]string{"kind", "status"},
	)

	m.UpstreamRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatbot_upstream_request_duration_seconds",
			Help:    "Duration of completion and embedding calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	m.ChatRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_chat_requests_total",
			Help: "Total number of assembled chat requests",
		},
		[]string{"status"},
	)

	m.HistoryWritesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_history_writes_total",
			Help: "Total number of history and snapshot writes",
		},
		[]string{"target", "status"},
	)

	m.RetrievedDocuments = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatbot_rag_selected_documents",
			Help:    "Number of documents selected per RAG request",
			Buckets: []float64{1, 2, 3, 5, 10, 20},
		},
	)

	return m
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// CacheOp records one cache operation outcome (hit, miss, corrupt, error, ok).
func (m *Metrics) CacheOp(operation, result string) {
	if m == nil {
		return
	}
	m.CacheOperationsTotal.WithLabelValues(operation, result).Inc()
}

// Upstream records a completion or embedding call.
func (m *Metrics) Upstream(kind string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.UpstreamRequestsTotal.WithLabelValues(kind, status(err)).Inc()
	m.UpstreamRequestDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

// Chat records the outcome of a CreateChat call.
func (m *Metrics) Chat(err error) {
	if m == nil {
		return
	}
	m.ChatRequestsTotal.WithLabelValues(status(err)).Inc()
}

// HistoryWrite records a history or snapshot write.
func (m *Metrics) HistoryWrite(target string, err error) {
	if m == nil {
		return
	}
	m.HistoryWritesTotal.WithLabelValues(target, status(err)).Inc()
}

// Retrieved records how many documents a RAG selection returned.
func (m *Metrics) Retrieved(n int) {
	if m == nil {
		return
	}
	m.RetrievedDocuments.Observe(float64(n))
}
