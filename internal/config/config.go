// Package config provides configuration loading and structs for the kotae server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/models"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Query      QueryConfig      `yaml:"query"`
	Generation GenerationConfig `yaml:"generation"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
}

// StorageConfig selects the durable backend for documents and vectors.
// Driver is one of "sqlite", "bolt" or "memory" (no persistence).
type StorageConfig struct {
	Driver       string `yaml:"driver"`
	DatabasePath string `yaml:"database_path"`
}

// EmbeddingConfig selects and tunes the embedding model.
type EmbeddingConfig struct {
	Provider          string        `yaml:"provider"` // hashing, onnx, openai, gemini
	Model             string        `yaml:"model"`
	ModelPath         string        `yaml:"model_path"`
	Dimensions        int           `yaml:"dimensions"`
	MaxTokens         int           `yaml:"max_tokens"`
	Timeout           time.Duration `yaml:"timeout"`
	APIKey            string        `yaml:"api_key"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Cache             CacheConfig   `yaml:"cache"`
}

// CacheConfig configures the embedding cache. Type is "lru", "redis" or "none".
type CacheConfig struct {
	Type     string        `yaml:"type"`
	Size     int           `yaml:"size"`
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
}

// ChunkingConfig holds passage splitting settings, in characters.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	Parallelism  int `yaml:"parallelism"`
}

// Validate reports ErrInvalidConfiguration for inconsistent chunk settings.
func (c *ChunkingConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", models.ErrInvalidConfiguration, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size), got %d", models.ErrInvalidConfiguration, c.ChunkOverlap)
	}
	return nil
}

// QueryConfig holds retrieval settings. MinScore is the minimum cosine
// similarity a passage needs to be used for an answer; zero means the default,
// so use -1 to accept every passage.
type QueryConfig struct {
	TopK            int     `yaml:"top_k"`
	MinScore        float64 `yaml:"min_score"`
	DefaultStrategy string  `yaml:"default_strategy"`
}

// GenerationConfig configures the generative answer strategy. Provider is
// "none", "openai" or "gemini".
type GenerationConfig struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"api_key"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxContextTokens  int           `yaml:"max_context_tokens"`
	MaxOutputTokens   int           `yaml:"max_output_tokens"`
	Temperature       float64       `yaml:"temperature"`
	Encoding          string        `yaml:"encoding"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
}

// WatchConfig holds inbox directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Default returns a configuration with every default applied, for running without a file.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads and parses the config file at path, expands paths, applies defaults
// and environment overrides. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Chunking.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
