package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 32 << 20
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = ".kotae/kotae.db"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "hashing"
	}
	if cfg.Embedding.Dimensions == 0 {
		switch cfg.Embedding.Provider {
		case "openai":
			cfg.Embedding.Dimensions = 1536
		case "gemini":
			cfg.Embedding.Dimensions = 768
		default:
			cfg.Embedding.Dimensions = 384
		}
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Embedding.RequestsPerMinute == 0 {
		cfg.Embedding.RequestsPerMinute = 600
	}
	if cfg.Embedding.Cache.Type == "" {
		cfg.Embedding.Cache.Type = "lru"
	}
	if cfg.Embedding.Cache.Size == 0 {
		cfg.Embedding.Cache.Size = 10000
	}
	if cfg.Embedding.Cache.TTL == 0 {
		cfg.Embedding.Cache.TTL = 24 * time.Hour
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 500
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 100
	}
	if cfg.Chunking.Parallelism == 0 {
		cfg.Chunking.Parallelism = 4
	}
	if cfg.Query.TopK == 0 {
		cfg.Query.TopK = 4
	}
	if cfg.Query.MinScore == 0 {
		cfg.Query.MinScore = 0.1
	}
	if cfg.Query.DefaultStrategy == "" {
		cfg.Query.DefaultStrategy = "template"
	}
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = "none"
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 60 * time.Second
	}
	if cfg.Generation.MaxContextTokens == 0 {
		cfg.Generation.MaxContextTokens = 3000
	}
	if cfg.Generation.MaxOutputTokens == 0 {
		cfg.Generation.MaxOutputTokens = 512
	}
	if cfg.Generation.Temperature == 0 {
		cfg.Generation.Temperature = 0.2
	}
	if cfg.Generation.Encoding == "" {
		cfg.Generation.Encoding = "cl100k_base"
	}
	if cfg.Generation.RequestsPerMinute == 0 {
		cfg.Generation.RequestsPerMinute = 60
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".odt", ".rtf", ".xlsx", ".csv"}
	}
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
