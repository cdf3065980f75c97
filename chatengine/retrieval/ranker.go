// Package retrieval selects the documents most similar to a query by cosine
// similarity of their embeddings.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/karacho11/first-chatbot-back/chatengine/domain"
	"github.com/karacho11/first-chatbot-back/pkg/metrics"
)

// ScoredDocument is the score of one input document. It only lives for the
// duration of a selection.
type ScoredDocument struct {
	DocumentIndex int
	Score         float64
}

// CosineSimilarity returns dot(a,b)/(|a|*|b|). It is 0 when either vector has
// zero norm or the dimensions differ, so it never yields NaN.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(score) {
		return 0
	}
	return score
}

// Rank scores every document embedding against query and sorts by descending
// score. Equal scores keep input order.
func Rank(query []float64, documents [][]float64) []ScoredDocument {
	scored := make([]ScoredDocument, len(documents))
	for i, doc := range documents {
		scored[i] = ScoredDocument{DocumentIndex: i, Score: CosineSimilarity(query, doc)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// Ranker embeds a query together with its candidate documents and keeps the
// best k. It performs no clamping of k.
type Ranker struct {
	embedder domain.EmbeddingProvider
	metrics  *metrics.Metrics
}

// NewRanker creates a Ranker. m may be nil.
func NewRanker(embedder domain.EmbeddingProvider, m *metrics.Metrics) *Ranker {
	return &Ranker{embedder: embedder, metrics: m}
}

// SelectTopK returns min(k, len(documents)) documents, most similar first.
// The query and all documents are embedded in one call; if that call fails no
// ranking is produced.
func (r *Ranker) SelectTopK(ctx context.Context, query string, documents []string, k int, model string) ([]string, error) {
	if len(documents) == 0 || k <= 0 {
		return []string{}, nil
	}

	batch := make([]string, 0, len(documents)+1)
	batch = append(batch, query)
	batch = append(batch, documents...)

	started := time.Now()
	vectors, err := r.embedder.Embed(ctx, batch, model)
	r.metrics.Upstream("embedding", started, err)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(batch) {
		return nil, fmt.Errorf("embedding returned %d vectors for %d inputs", len(vectors), len(batch))
	}

	scored := Rank(vectors[0], vectors[1:])
	if k > len(scored) {
		k = len(scored)
	}

	selected := make([]string, 0, k)
	for _, s := range scored[:k] {
		selected = append(selected, documents[s.DocumentIndex])
	}
	r.metrics.Retrieved(len(selected))
	return selected, nil
}
