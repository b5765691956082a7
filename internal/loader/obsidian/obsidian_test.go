package obsidian

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVaultServer(t *testing.T, notes map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/vault":
			var files []map[string]string
			for path := range notes {
				files = append(files, map[string]string{"path": path})
			}
			json.NewEncoder(w).Encode(files)
		case "/vault/read":
			path := r.URL.Query().Get("file")
			content, ok := notes[path]
			if !ok {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"content": content})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestFetch_FiltersByPrefixAndExtension(t *testing.T) {
	srv := newVaultServer(t, map[string]string{
		"Daily/2026-08-30.md": "today's notes",
		"Daily/2026-08-29.md": "yesterday's notes",
		"Projects/infra.md":   "cluster setup",
		"Daily/export.pdf":    "binary",
	})
	defer srv.Close()

	l := NewLoader(Config{APIURL: srv.URL, APIKey: "secret", VaultName: "work"})

	docs, err := l.Fetch(context.Background(), "Daily/")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	for _, d := range docs {
		assert.True(t, len(d.Text) > 0)
		assert.Contains(t, d.Source, "Daily/")
		assert.Equal(t, d.Source, d.Metadata["source"])
		assert.Equal(t, "work", d.Metadata["vault"])
	}
}

func TestFetch_EmptyPrefixLoadsWholeVault(t *testing.T) {
	srv := newVaultServer(t, map[string]string{
		"a.md":           "alpha",
		"nested/b.md":    "beta",
		"ignored.canvas": "not markdown",
	})
	defer srv.Close()

	l := NewLoader(Config{APIURL: srv.URL, APIKey: "secret"})
	docs, err := l.Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestFetch_UnreachableBackendDegradesToEmpty(t *testing.T) {
	l := NewLoader(Config{APIURL: "http://127.0.0.1:1"})
	docs, err := l.Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestFetch_BadFileIsSkipped(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/vault":
			json.NewEncoder(w).Encode([]map[string]string{
				{"path": "good.md"},
				{"path": "broken.md"},
			})
		case "/vault/read":
			calls++
			if r.URL.Query().Get("file") == "broken.md" {
				http.Error(w, "corrupt", http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"content": "fine"})
		}
	}))
	defer srv.Close()

	l := NewLoader(Config{APIURL: srv.URL})
	docs, err := l.Fetch(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "good.md", docs[0].Source)
	assert.Equal(t, 2, calls, "both files attempted")
}
