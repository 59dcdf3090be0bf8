package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// QdrantConfig contains connection details for the Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url" validate:"required,url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection" validate:"required"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
}

// EmbedderConfig configures the OpenAI-compatible embeddings endpoint.
type EmbedderConfig struct {
	BaseURL           string `yaml:"base_url"`
	APIKeyEnv         string `yaml:"api_key_env"`
	Model             string `yaml:"model"`
	TimeoutSecs       int    `yaml:"timeout_secs" validate:"gte=0"`
	BatchSize         int    `yaml:"batch_size" validate:"gte=0"`
	FallbackDimension int    `yaml:"fallback_dimension" validate:"gte=0"`
}

// ChunkerConfig configures how page text is split into chunks. Overlap and
// MinChunkLen are pointers so an explicit zero in the yaml is distinguishable
// from an absent key and is not overwritten by the defaults.
type ChunkerConfig struct {
	Size        int  `yaml:"size" validate:"gt=0"`
	Overlap     *int `yaml:"overlap" validate:"omitempty,gte=0"`
	MinChunkLen *int `yaml:"min_chunk_len" validate:"omitempty,gte=0"`
}

// IndexConfig configures the batch ingestion run.
type IndexConfig struct {
	DocumentsDir    string `yaml:"documents_dir" validate:"required"`
	RefreshMetadata bool   `yaml:"refresh_metadata"`
	OCRLanguages    string `yaml:"ocr_languages"`
}

// ChatConfig configures the agentic retrieval loop.
type ChatConfig struct {
	APIKeyEnv      string `yaml:"api_key_env"`
	Model          string `yaml:"model"`
	MaxTokens      int    `yaml:"max_tokens" validate:"gte=0"`
	MaxIterations  int    `yaml:"max_iterations" validate:"gte=0"`
	SearchLimit    int    `yaml:"search_limit" validate:"gte=0"`
	MaxSearchLimit int    `yaml:"max_search_limit" validate:"gte=0"`
	// Context expansion is on unless disabled; adjacent chunks are fetched
	// around every hit.
	DisableContextExpansion bool `yaml:"disable_context_expansion"`
}

// LoggingConfig configures the arbor logger.
type LoggingConfig struct {
	Level  string   `yaml:"level"`
	Output []string `yaml:"output"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Qdrant   QdrantConfig   `yaml:"qdrant"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Chunker  ChunkerConfig  `yaml:"chunker"`
	Index    IndexConfig    `yaml:"index"`
	Chat     ChatConfig     `yaml:"chat"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/ratsdok/config.yaml.
// If neither exists, it writes defaults to ~/.config/ratsdok/config.yaml and returns them.
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

// APIKey resolves the secret named by env, empty when unset.
func APIKey(env string) string {
	if env == "" {
		return ""
	}
	return os.Getenv(env)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ratsdok", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Qdrant: QdrantConfig{
			URL:        "http://localhost:6333",
			APIKeyEnv:  "QDRANT_API_KEY",
			Collection: "nordstemmen",
		},
		Index: IndexConfig{DocumentsDir: "documents"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Qdrant.TimeoutSecs == 0 {
		cfg.Qdrant.TimeoutSecs = 30
	}
	if cfg.Qdrant.APIKeyEnv == "" {
		cfg.Qdrant.APIKeyEnv = "QDRANT_API_KEY"
	}
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = "nordstemmen"
	}
	if cfg.Embedder.BaseURL == "" {
		cfg.Embedder.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "text-embedding-3-small"
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = 30
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = 32
	}
	if cfg.Embedder.FallbackDimension == 0 {
		cfg.Embedder.FallbackDimension = 1024
	}
	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = 1000
	}
	if cfg.Chunker.Overlap == nil {
		cfg.Chunker.Overlap = intPtr(200)
	}
	if cfg.Chunker.MinChunkLen == nil {
		cfg.Chunker.MinChunkLen = intPtr(50)
	}
	if cfg.Index.DocumentsDir == "" {
		cfg.Index.DocumentsDir = "documents"
	}
	if cfg.Index.OCRLanguages == "" {
		cfg.Index.OCRLanguages = "deu+eng"
	}
	if cfg.Chat.APIKeyEnv == "" {
		cfg.Chat.APIKeyEnv = "ANTHROPIC_API_KEY"
	}
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = "claude-sonnet-4-5-20250929"
	}
	if cfg.Chat.MaxTokens == 0 {
		cfg.Chat.MaxTokens = 2000
	}
	if cfg.Chat.MaxIterations == 0 {
		cfg.Chat.MaxIterations = 5
	}
	if cfg.Chat.SearchLimit == 0 {
		cfg.Chat.SearchLimit = 5
	}
	if cfg.Chat.MaxSearchLimit == 0 {
		cfg.Chat.MaxSearchLimit = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if len(cfg.Logging.Output) == 0 {
		cfg.Logging.Output = []string{"stdout"}
	}
}

func intPtr(v int) *int { return &v }
