package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// VaultConfig holds connection details for the Obsidian REST backend.
// The API key itself stays in the environment; only its variable name is
// configured here.
type VaultConfig struct {
	APIURL    string `yaml:"api_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Name      string `yaml:"name"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	Type        string                `yaml:"type"`
	Model       string                `yaml:"model"`
	BaseURL     string                `yaml:"base_url"`
	TimeoutSecs int                   `yaml:"timeout_secs"`
	OpenAI      *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// GeneratorConfig configures the generation backend.
type GeneratorConfig struct {
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// StoreConfig selects and configures the vector index.
type StoreConfig struct {
	Type       string `yaml:"type"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// IngestConfig tunes ingestion failure handling.
type IngestConfig struct {
	SkipFailedChunks bool `yaml:"skip_failed_chunks"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Vault     VaultConfig     `yaml:"vault"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Generator GeneratorConfig `yaml:"generator"`
	Store     StoreConfig     `yaml:"store"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	TopK      int             `yaml:"top_k"`
	Ingest    IngestConfig    `yaml:"ingest"`
}

// Load reads a config from a specified path. If the file does not exist,
// returns defaults. Environment variables override file values either way.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/vaultrag/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "vaultrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Vault: VaultConfig{
			APIURL:    "http://127.0.0.1:27123",
			APIKeyEnv: "OBSIDIAN_API_KEY",
		},
		Embedder: EmbedderConfig{
			Type:    "ollama",
			Model:   "nomic-embed-text",
			BaseURL: "http://localhost:11434",
		},
		Generator: GeneratorConfig{
			Model:       "llama3.1:8b",
			BaseURL:     "http://localhost:11434",
			Temperature: 0.1,
		},
		Store: StoreConfig{
			Type:       "sqlite",
			Path:       "data/vaultrag.db",
			Collection: "project-memory",
		},
		Chunker: ChunkerConfig{Size: 1000, Overlap: 200},
		TopK:    5,
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Vault.APIURL == "" {
		cfg.Vault.APIURL = def.Vault.APIURL
	}
	if cfg.Vault.APIKeyEnv == "" {
		cfg.Vault.APIKeyEnv = def.Vault.APIKeyEnv
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = def.Embedder.Type
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = def.Embedder.Model
	}
	if cfg.Embedder.BaseURL == "" {
		cfg.Embedder.BaseURL = def.Embedder.BaseURL
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = def.Generator.Model
	}
	if cfg.Generator.BaseURL == "" {
		cfg.Generator.BaseURL = def.Generator.BaseURL
	}
	if cfg.Generator.Temperature == 0 {
		cfg.Generator.Temperature = def.Generator.Temperature
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = def.Store.Type
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = def.Store.Path
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = def.Store.Collection
	}
	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = def.Chunker.Size
	}
	if cfg.Chunker.Overlap == 0 {
		cfg.Chunker.Overlap = def.Chunker.Overlap
	}
	if cfg.TopK == 0 {
		cfg.TopK = def.TopK
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI == nil {
		cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
	}
}

// applyEnvOverrides lets the original dotenv variable names override the
// file, so an existing .env keeps working unchanged.
func applyEnvOverrides(cfg *AppConfig) {
	setString(&cfg.Vault.APIURL, "OBSIDIAN_API_URL")
	setString(&cfg.Vault.Name, "OBSIDIAN_VAULT_NAME")
	setString(&cfg.Embedder.Model, "EMBEDDING_MODEL")
	setString(&cfg.Embedder.BaseURL, "OLLAMA_BASE_URL")
	setString(&cfg.Generator.Model, "LLM_MODEL")
	setString(&cfg.Generator.BaseURL, "OLLAMA_BASE_URL")
	setString(&cfg.Store.Path, "VAULTRAG_STORE_PATH")
	setString(&cfg.Store.Collection, "COLLECTION_NAME")
	if v := os.Getenv("RETRIEVAL_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			cfg.TopK = k
		}
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
