package domain

import "context"

// Document is a single note loaded from the vault.
type Document struct {
	Text     string
	Source   string
	Metadata map[string]string
}

// Chunk is a bounded segment of a document, the unit of embedding and retrieval.
// Index gives the chunk's position within its source document.
type Chunk struct {
	Text     string
	Source   string
	Index    int
	Metadata map[string]string
}

// Record pairs a chunk with its embedding vector for storage in a vector index.
type Record struct {
	ID     string
	Vector []float64
	Chunk  Chunk
}

// RetrievalResult is a matching chunk with its similarity score.
type RetrievalResult struct {
	Chunk Chunk
	Score float64
}

// Loader produces documents from a vault. Fetch returns the documents whose
// path starts with pathPrefix; an empty prefix means the whole vault.
// An unreachable backend degrades to an empty slice, not an error.
type Loader interface {
	Fetch(ctx context.Context, pathPrefix string) ([]Document, error)
}

// Chunker splits documents into chunks suitable for embedding.
type Chunker interface {
	Split(documents []Document) ([]Chunk, error)
}

// Embedder converts free text into a numeric vector representation.
// Dimension reports the vector size once known (0 before the first call
// for remote embedders that discover it lazily).
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Generator produces a natural-language answer for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VectorIndex durably stores records and answers nearest-neighbor queries.
//
// Upsert replaces all previously stored records whose chunk source matches
// a source present in the batch, so re-ingesting a changed file never
// leaves stale chunks behind. Search returns up to k results ordered by
// descending similarity; equal scores are broken by insertion order.
type VectorIndex interface {
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float64, k int) ([]RetrievalResult, error)
	Count(ctx context.Context) (int, error)
	Close() error
}
