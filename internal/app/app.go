// Package app assembles the pipeline from configuration. Both binaries use
// the same wiring.
package app

import (
	"fmt"
	"os"
	"time"

	"vaultrag/internal/chunker"
	"vaultrag/internal/config"
	"vaultrag/internal/domain"
	embollama "vaultrag/internal/embedding/ollama"
	embopenai "vaultrag/internal/embedding/openai"
	llmollama "vaultrag/internal/llm/ollama"
	"vaultrag/internal/loader/obsidian"
	"vaultrag/internal/service"
	"vaultrag/internal/vectorstore/memory"
	"vaultrag/internal/vectorstore/sqlite"
)

// Build constructs the service and its vector index from config. The caller
// must Close the returned index when done.
func Build(cfg *config.AppConfig) (*service.Service, domain.VectorIndex, error) {
	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "ollama", "":
		emb = embollama.NewClient(embollama.Config{
			BaseURL: cfg.Embedder.BaseURL,
			Model:   cfg.Embedder.Model,
			Timeout: time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
		})
	case "openai":
		oc := cfg.Embedder.OpenAI
		if oc == nil {
			oc = &config.OpenAIEmbedderConfig{}
		}
		client, err := embopenai.NewClient(embopenai.Config{
			BaseURL:   oc.BaseURL,
			APIKeyEnv: oc.APIKeyEnv,
			Model:     oc.Model,
			Timeout:   time.Duration(oc.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("openai embedder init: %w", err)
		}
		emb = client
	default:
		return nil, nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}

	ch, err := chunker.NewRecursiveChunker(cfg.Chunker.Size, cfg.Chunker.Overlap, chunker.DefaultSeparators)
	if err != nil {
		return nil, nil, fmt.Errorf("chunker init: %w", err)
	}

	var index domain.VectorIndex
	switch cfg.Store.Type {
	case "sqlite", "":
		index, err = sqlite.Open(cfg.Store.Path, cfg.Store.Collection)
		if err != nil {
			return nil, nil, fmt.Errorf("open vector index: %w", err)
		}
	case "memory":
		index = memory.NewIndex()
	default:
		return nil, nil, fmt.Errorf("unknown vector store: %s", cfg.Store.Type)
	}

	ldr := obsidian.NewLoader(obsidian.Config{
		APIURL:    cfg.Vault.APIURL,
		APIKey:    os.Getenv(cfg.Vault.APIKeyEnv),
		VaultName: cfg.Vault.Name,
	})

	gen := llmollama.NewClient(llmollama.Config{
		BaseURL:     cfg.Generator.BaseURL,
		Model:       cfg.Generator.Model,
		Temperature: cfg.Generator.Temperature,
		Timeout:     time.Duration(cfg.Generator.TimeoutSecs) * time.Second,
	})

	svc := service.New(service.Config{
		Loader:           ldr,
		Chunker:          ch,
		Embedder:         emb,
		Index:            index,
		Generator:        gen,
		TopK:             cfg.TopK,
		SkipFailedChunks: cfg.Ingest.SkipFailedChunks,
	})
	return svc, index, nil
}
