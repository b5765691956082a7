package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultrag/internal/domain"
)

func TestEmbed(t *testing.T) {
	var gotModel, gotInput string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embed", r.URL.Path)
		var body struct {
			Model string `json:"model"`
			Input string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotModel, gotInput = body.Model, body.Input
		json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float64{{0.1, 0.2, 0.3}},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Model: "nomic-embed-text"})
	assert.Equal(t, "ollama", c.Name())
	assert.Zero(t, c.Dimension(), "dimension unknown before first call")

	v, err := c.Embed(context.Background(), "hello vault")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, v)
	assert.Equal(t, "nomic-embed-text", gotModel)
	assert.Equal(t, "hello vault", gotInput)
	assert.Equal(t, 3, c.Dimension())
}

func TestEmbed_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
}

func TestEmbed_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float64{}})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
}

func TestNewClient_TrimsV1Suffix(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://localhost:11434/v1/"})
	assert.Equal(t, "http://localhost:11434", c.baseURL)
}
