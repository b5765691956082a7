package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"vaultrag/internal/domain"
)

// Index is an in-memory vector index using brute-force cosine similarity.
// It keeps records in insertion order, which doubles as the tie-break for
// equal scores. State is lost on process exit; use the sqlite index for
// anything that must survive a restart.
type Index struct {
	mu      sync.RWMutex
	records []domain.Record
}

func NewIndex() *Index { return &Index{} }

// Upsert appends records, first dropping every stored record whose source
// appears in the batch so re-ingested files fully replace their old chunks.
func (s *Index) Upsert(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	sources := make(map[string]struct{}, len(records))
	for _, r := range records {
		sources[r.Chunk.Source] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	for _, r := range s.records {
		if _, replaced := sources[r.Chunk.Source]; !replaced {
			kept = append(kept, r)
		}
	}
	s.records = append(kept, records...)
	return nil
}

// Search returns the k most similar records ordered by descending score,
// earlier insertion winning ties.
func (s *Index) Search(ctx context.Context, vector []float64, k int) ([]domain.RetrievalResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidArgument, k)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]domain.RetrievalResult, 0, len(s.records))
	for _, r := range s.records {
		results = append(results, domain.RetrievalResult{
			Chunk: r.Chunk,
			Score: Cosine(vector, r.Vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func (s *Index) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *Index) Close() error { return nil }

// Cosine computes the cosine similarity between two vectors. Mismatched
// dimensions or zero vectors score 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
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
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
