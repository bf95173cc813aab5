package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; existing variables are not overridden.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

// ApplyEnv fills secrets from the environment when the config leaves them empty.
func ApplyEnv(cfg *Config) {
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = apiKeyFor(cfg.Embedding.Provider)
	}
	if cfg.Generation.APIKey == "" {
		cfg.Generation.APIKey = apiKeyFor(cfg.Generation.Provider)
	}
	if cfg.Embedding.Cache.RedisURL == "" {
		cfg.Embedding.Cache.RedisURL = os.Getenv("REDIS_URL")
	}
}

func apiKeyFor(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini":
		if k := os.Getenv("GEMINI_API_KEY"); k != "" {
			return k
		}
		return os.Getenv("GOOGLE_API_KEY")
	}
	return ""
}
