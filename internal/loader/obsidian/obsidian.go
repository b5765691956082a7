package obsidian

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vaultrag/internal/domain"
)

// Loader fetches markdown notes from an Obsidian vault through its local
// REST API. The backend is treated as optional infrastructure: if it cannot
// be reached at all, Fetch logs the cause and returns an empty slice so an
// ingestion run degrades to a no-op instead of failing.
type Loader struct {
	apiURL    string
	apiKey    string
	vaultName string
	client    *http.Client
}

// Config configures the vault REST client.
type Config struct {
	APIURL    string
	APIKey    string
	VaultName string
	Timeout   time.Duration
}

func NewLoader(cfg Config) *Loader {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Loader{
		apiURL:    strings.TrimSuffix(cfg.APIURL, "/"),
		apiKey:    cfg.APIKey,
		vaultName: cfg.VaultName,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Fetch lists the vault and loads every .md file under pathPrefix. An empty
// prefix loads the whole vault. Files that fail to read are logged and
// skipped so one bad note does not abort the run.
func (l *Loader) Fetch(ctx context.Context, pathPrefix string) ([]domain.Document, error) {
	paths, err := l.listFiles(ctx)
	if err != nil {
		log.Printf("obsidian: %v", err)
		return nil, nil
	}

	var documents []domain.Document
	for _, path := range paths {
		if !strings.HasPrefix(path, pathPrefix) || !strings.HasSuffix(path, ".md") {
			continue
		}
		content, err := l.readFile(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return documents, ctx.Err()
			}
			log.Printf("obsidian: skipping %s: %v", path, err)
			continue
		}
		documents = append(documents, domain.Document{
			Text:   content,
			Source: path,
			Metadata: map[string]string{
				"source": path,
				"vault":  l.vaultName,
				"type":   "documentation",
			},
		})
	}
	return documents, nil
}

func (l *Loader) listFiles(ctx context.Context) ([]string, error) {
	var files []struct {
		Path string `json:"path"`
	}
	if err := l.getJSON(ctx, l.apiURL+"/vault", &files); err != nil {
		return nil, fmt.Errorf("%w: list vault: %v", domain.ErrLoaderUnavailable, err)
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths, nil
}

func (l *Loader) readFile(ctx context.Context, path string) (string, error) {
	var out struct {
		Content string `json:"content"`
	}
	u := l.apiURL + "/vault/read?file=" + url.QueryEscape(path)
	if err := l.getJSON(ctx, u, &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

func (l *Loader) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if l.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.apiKey)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
