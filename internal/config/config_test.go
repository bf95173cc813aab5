package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  driver: bolt
  database_path: "./data/kotae.bolt"
query:
  top_k: 5
  min_score: 0.25
generation:
  provider: openai
  timeout: 15s
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.Driver != "bolt" {
		t.Errorf("driver: got %s", cfg.Storage.Driver)
	}
	wantDB := filepath.Join(dir, "data", "kotae.bolt")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	if cfg.Query.TopK != 5 || cfg.Query.MinScore != 0.25 {
		t.Errorf("query config: %+v", cfg.Query)
	}
	if cfg.Generation.Timeout != 15*time.Second {
		t.Errorf("generation timeout: got %s", cfg.Generation.Timeout)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_invalidChunking(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
chunking:
  chunk_size: 100
  chunk_overlap: 100
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errors.Is(err, models.ErrInvalidConfiguration) {
		t.Errorf("Load() = %v, want ErrInvalidConfiguration", err)
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_envAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("generation:\n  provider: openai\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Generation.APIKey != "sk-test" {
		t.Errorf("api key: got %q", cfg.Generation.APIKey)
	}
	if cfg.Embedding.APIKey != "" {
		t.Errorf("hashing embedder should not pick up a key, got %q", cfg.Embedding.APIKey)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Embedding.Provider != "hashing" || cfg.Embedding.Dimensions != 384 {
		t.Errorf("embedding defaults: %+v", cfg.Embedding)
	}
	if cfg.Chunking.ChunkSize != 500 || cfg.Chunking.ChunkOverlap != 100 {
		t.Errorf("chunking defaults: %+v", cfg.Chunking)
	}
	if err := cfg.Chunking.Validate(); err != nil {
		t.Errorf("default chunking should be valid: %v", err)
	}
	if cfg.Query.TopK != 4 || cfg.Query.MinScore != 0.1 {
		t.Errorf("query defaults: %+v", cfg.Query)
	}
	if cfg.Generation.Provider != "none" {
		t.Errorf("generation provider: got %s", cfg.Generation.Provider)
	}
	if len(cfg.Watch.Extensions) == 0 || cfg.Watch.Extensions[0] != ".txt" {
		t.Errorf("watch extensions: got %v", cfg.Watch.Extensions)
	}
}

func TestApplyDefaults_WatchRecursiveWhenDirectoriesSet(t *testing.T) {
	cfg := &Config{Watch: WatchConfig{Directories: []string{"/tmp/inbox"}}}
	ApplyDefaults(cfg)
	if cfg.Watch.Recursive == nil || !*cfg.Watch.Recursive {
		t.Error("recursive should default to true when directories are set")
	}
}

func TestChunkingConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ChunkingConfig
		wantErr bool
	}{
		{"valid", ChunkingConfig{ChunkSize: 100, ChunkOverlap: 20}, false},
		{"no overlap", ChunkingConfig{ChunkSize: 100}, false},
		{"overlap equals size", ChunkingConfig{ChunkSize: 100, ChunkOverlap: 100}, true},
		{"overlap larger", ChunkingConfig{ChunkSize: 50, ChunkOverlap: 80}, true},
		{"negative overlap", ChunkingConfig{ChunkSize: 50, ChunkOverlap: -1}, true},
		{"zero size", ChunkingConfig{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, models.ErrInvalidConfiguration) {
				t.Errorf("error should wrap ErrInvalidConfiguration: %v", err)
			}
		})
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		w := &WatchConfig{}
		if got := w.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		w := &WatchConfig{Recursive: &f}
		if got := w.RecursiveOrDefault(); got {
			t.Errorf("RecursiveOrDefault() = %v, want false", got)
		}
	})
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("KOTAE_TEST_DOTENV=loaded\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("KOTAE_TEST_DOTENV") })
	LoadDotEnv(path, filepath.Join(dir, "missing.env"))
	if got := os.Getenv("KOTAE_TEST_DOTENV"); got != "loaded" {
		t.Errorf("KOTAE_TEST_DOTENV = %q", got)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := Default()
	cfg.Server.Port = 9090
	cfg.Storage.DatabasePath = "/tmp/kotae.db"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Server.RequestTimeout != 60*time.Second {
		t.Errorf("request timeout round trip: got %s", loaded.Server.RequestTimeout)
	}
}
