package service

import (
	"context"
	"fmt"
	"log"

	"vaultrag/internal/domain"
	"vaultrag/internal/prompt"
	"vaultrag/internal/retriever"
)

// Service wires the full pipeline: loader -> chunker -> embedder -> index
// for ingestion, and embedder -> index -> assembler -> generator for
// queries. All collaborators are interfaces; the service owns no state
// beyond its configuration.
type Service struct {
	loader    domain.Loader
	chunker   domain.Chunker
	embedder  domain.Embedder
	index     domain.VectorIndex
	generator domain.Generator
	retriever *retriever.Retriever
	template  string

	// skipFailedChunks switches per-chunk embedding failures from
	// batch-abort (the default) to skip-and-log.
	skipFailedChunks bool
}

// Config collects the service's collaborators and tuning knobs.
type Config struct {
	Loader           domain.Loader
	Chunker          domain.Chunker
	Embedder         domain.Embedder
	Index            domain.VectorIndex
	Generator        domain.Generator
	TopK             int
	PromptTemplate   string
	SkipFailedChunks bool
}

func New(cfg Config) *Service {
	return &Service{
		loader:           cfg.Loader,
		chunker:          cfg.Chunker,
		embedder:         cfg.Embedder,
		index:            cfg.Index,
		generator:        cfg.Generator,
		retriever:        retriever.New(cfg.Embedder, cfg.Index, cfg.TopK),
		template:         cfg.PromptTemplate,
		skipFailedChunks: cfg.SkipFailedChunks,
	}
}

// IngestReport summarizes an ingestion run.
type IngestReport struct {
	Documents int
	Chunks    int
	Skipped   int
}

// NoOp reports whether the run had nothing to do.
func (r IngestReport) NoOp() bool { return r.Documents == 0 }

// Ingest loads every note under pathPrefix, chunks it, embeds each chunk
// and stores the result. Zero loaded documents is a reported no-op, not an
// error, and the embedding provider is never contacted. Each document's
// chunks are embedded one by one (the run is abortable between chunks via
// ctx) and stored in a single durable batch, so a re-ingested file either
// fully replaces its previous version or is left untouched.
func (s *Service) Ingest(ctx context.Context, pathPrefix string) (IngestReport, error) {
	var report IngestReport

	documents, err := s.loader.Fetch(ctx, pathPrefix)
	if err != nil {
		return report, fmt.Errorf("fetch documents: %w", err)
	}
	report.Documents = len(documents)
	if len(documents) == 0 {
		return report, nil
	}

	chunks, err := s.chunker.Split(documents)
	if err != nil {
		return report, fmt.Errorf("split documents: %w", err)
	}
	if len(chunks) == 0 {
		return report, nil
	}

	for _, batch := range groupBySource(chunks) {
		records := make([]domain.Record, 0, len(batch))
		for _, chunk := range batch {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			vector, err := s.embedder.Embed(ctx, chunk.Text)
			if err != nil {
				if s.skipFailedChunks {
					log.Printf("ingest: skipping chunk %s#%d: %v", chunk.Source, chunk.Index, err)
					report.Skipped++
					continue
				}
				return report, fmt.Errorf("embed chunk %s#%d: %w", chunk.Source, chunk.Index, err)
			}
			records = append(records, domain.Record{
				ID:     fmt.Sprintf("%s:%d", chunk.Source, chunk.Index),
				Vector: vector,
				Chunk:  chunk,
			})
		}
		if len(records) == 0 {
			continue
		}
		if err := s.index.Upsert(ctx, records); err != nil {
			return report, fmt.Errorf("store records: %w", err)
		}
		report.Chunks += len(records)
	}
	return report, nil
}

// Answer is the result of a query: the generated text plus the retrieved
// chunks it was grounded on.
type Answer struct {
	Text    string
	Results []domain.RetrievalResult
}

// Query retrieves the chunks most similar to the question, assembles them
// into a prompt and asks the generation backend for an answer.
func (s *Service) Query(ctx context.Context, question string) (Answer, error) {
	results, err := s.retriever.Retrieve(ctx, question)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieve: %w", err)
	}
	assembled := prompt.Assemble(results, question, s.template)
	text, err := s.generator.Generate(ctx, assembled)
	if err != nil {
		return Answer{}, fmt.Errorf("generate: %w", err)
	}
	return Answer{Text: text, Results: results}, nil
}

// Count reports the number of records currently stored in the index.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.index.Count(ctx)
}

// groupBySource splits a flat chunk slice into per-document batches,
// preserving both document order and chunk order within a document.
func groupBySource(chunks []domain.Chunk) [][]domain.Chunk {
	bySource := make(map[string]int)
	var batches [][]domain.Chunk
	for _, chunk := range chunks {
		i, ok := bySource[chunk.Source]
		if !ok {
			i = len(batches)
			bySource[chunk.Source] = i
			batches = append(batches, nil)
		}
		batches[i] = append(batches[i], chunk)
	}
	return batches
}
