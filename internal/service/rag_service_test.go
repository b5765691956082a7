package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultrag/internal/chunker"
	"vaultrag/internal/domain"
	"vaultrag/internal/prompt"
	"vaultrag/internal/vectorstore/memory"
)

type stubLoader struct {
	docs []domain.Document
}

func (l stubLoader) Fetch(ctx context.Context, pathPrefix string) ([]domain.Document, error) {
	var out []domain.Document
	for _, d := range l.docs {
		if strings.HasPrefix(d.Source, pathPrefix) {
			out = append(out, d)
		}
	}
	return out, nil
}

// stubEmbedder hashes characters into a tiny deterministic vector.
type stubEmbedder struct {
	calls  int
	failOn string
}

func (e *stubEmbedder) Name() string   { return "stub" }
func (e *stubEmbedder) Dimension() int { return 3 }

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	e.calls++
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, domain.ErrProviderFailure
	}
	v := make([]float64, 3)
	for i, r := range text {
		v[i%3] += float64(r)
	}
	return v, nil
}

type stubGenerator struct {
	prompts []string
	err     error
}

func (g *stubGenerator) Generate(ctx context.Context, p string) (string, error) {
	g.prompts = append(g.prompts, p)
	if g.err != nil {
		return "", g.err
	}
	return "generated answer", nil
}

func newTestService(t *testing.T, docs []domain.Document, emb *stubEmbedder, gen *stubGenerator, skip bool) *Service {
	t.Helper()
	ch, err := chunker.NewRecursiveChunker(40, 10, nil)
	require.NoError(t, err)
	return New(Config{
		Loader:           stubLoader{docs: docs},
		Chunker:          ch,
		Embedder:         emb,
		Index:            memory.NewIndex(),
		Generator:        gen,
		TopK:             5,
		SkipFailedChunks: skip,
	})
}

func TestIngest_EmptyVaultIsNoOp(t *testing.T) {
	emb := &stubEmbedder{}
	svc := newTestService(t, nil, emb, &stubGenerator{}, false)

	report, err := svc.Ingest(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, report.NoOp())
	assert.Zero(t, report.Chunks)
	assert.Zero(t, emb.calls, "embedding provider must not be contacted")
}

func TestIngest_ReportsDocumentsAndChunks(t *testing.T) {
	docs := []domain.Document{
		{Text: "alpha beta gamma delta epsilon zeta eta theta", Source: "a.md"},
		{Text: "short note", Source: "b.md"},
	}
	svc := newTestService(t, docs, &stubEmbedder{}, &stubGenerator{}, false)

	report, err := svc.Ingest(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Documents)
	assert.Greater(t, report.Chunks, 1)

	n, err := svc.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.Chunks, n)
}

func TestIngest_PathPrefixScopesRun(t *testing.T) {
	docs := []domain.Document{
		{Text: "daily entry", Source: "Daily/2026-08-30.md"},
		{Text: "project page", Source: "Projects/infra.md"},
	}
	svc := newTestService(t, docs, &stubEmbedder{}, &stubGenerator{}, false)

	report, err := svc.Ingest(context.Background(), "Daily/")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Documents)
}

func TestIngest_EmbedFailureAbortsBatchByDefault(t *testing.T) {
	docs := []domain.Document{{Text: "good text then poison pill", Source: "a.md"}}
	emb := &stubEmbedder{failOn: "poison"}
	svc := newTestService(t, docs, emb, &stubGenerator{}, false)

	_, err := svc.Ingest(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
}

func TestIngest_SkipModeLogsAndContinues(t *testing.T) {
	docs := []domain.Document{
		{Text: "healthy note", Source: "a.md"},
		{Text: "poison pill note", Source: "b.md"},
	}
	svc := newTestService(t, docs, &stubEmbedder{failOn: "poison"}, &stubGenerator{}, true)

	report, err := svc.Ingest(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Chunks)
}

func TestIngest_CancelledBetweenChunks(t *testing.T) {
	docs := []domain.Document{{Text: "some note", Source: "a.md"}}
	svc := newTestService(t, docs, &stubEmbedder{}, &stubGenerator{}, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Ingest(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIngest_ReingestReplacesSource(t *testing.T) {
	docs := []domain.Document{{Text: "version one of the note text here", Source: "a.md"}}
	svc := newTestService(t, docs, &stubEmbedder{}, &stubGenerator{}, false)

	_, err := svc.Ingest(context.Background(), "")
	require.NoError(t, err)
	first, err := svc.Count(context.Background())
	require.NoError(t, err)

	// Second run over the same source must not duplicate records.
	_, err = svc.Ingest(context.Background(), "")
	require.NoError(t, err)
	second, err := svc.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestQuery_AssemblesPromptAndReturnsAnswer(t *testing.T) {
	docs := []domain.Document{{Text: "the backup job runs nightly at 02:00", Source: "infra.md"}}
	gen := &stubGenerator{}
	svc := newTestService(t, docs, &stubEmbedder{}, gen, false)

	_, err := svc.Ingest(context.Background(), "")
	require.NoError(t, err)

	answer, err := svc.Query(context.Background(), "when do backups run?")
	require.NoError(t, err)
	assert.Equal(t, "generated answer", answer.Text)
	assert.NotEmpty(t, answer.Results)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "when do backups run?")
	assert.Contains(t, gen.prompts[0], "backup job")
}

func TestQuery_EmptyIndexUsesNoContextMarker(t *testing.T) {
	gen := &stubGenerator{}
	svc := newTestService(t, nil, &stubEmbedder{}, gen, false)

	_, err := svc.Query(context.Background(), "anything?")
	require.NoError(t, err)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], prompt.NoContextMarker)
}

func TestQuery_GenerationFailureSurfaces(t *testing.T) {
	gen := &stubGenerator{err: errors.New("backend gone")}
	svc := newTestService(t, nil, &stubEmbedder{}, gen, false)

	_, err := svc.Query(context.Background(), "q")
	assert.Error(t, err)
}
