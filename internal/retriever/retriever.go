package retriever

import (
	"context"
	"fmt"

	"vaultrag/internal/domain"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 5

// Retriever answers similarity queries: it embeds the question once and
// delegates to the vector index. Results are never cached; question text
// may vary between superficially similar calls.
type Retriever struct {
	embedder domain.Embedder
	index    domain.VectorIndex
	topK     int
}

func New(embedder domain.Embedder, index domain.VectorIndex, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, index: index, topK: topK}
}

// Retrieve returns the chunks most similar to the question, ordered by
// descending similarity.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]domain.RetrievalResult, error) {
	vector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	results, err := r.index.Search(ctx, vector, r.topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return results, nil
}
