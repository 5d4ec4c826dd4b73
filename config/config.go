// Package config loads runtime configuration from a YAML file plus a .env
// file for credentials. A missing config file is not an error: the zero
// configuration falls back to sensible defaults everywhere.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Memory    MemoryConfig    `yaml:"memory"`
	Graph     GraphConfig     `yaml:"graph"`
	Index     IndexConfig     `yaml:"index"`
}

// ModelConfig selects the model provider and model ids.
type ModelConfig struct {
	// Provider is "openai", "anthropic" or "mock".
	Provider   string `yaml:"provider"`
	ChatModel  string `yaml:"chat_model"`
	EmbedModel string `yaml:"embed_model"`
}

// RetrievalConfig bounds similarity retrieval.
type RetrievalConfig struct {
	TopK     int     `yaml:"top_k"`
	MinScore float64 `yaml:"min_score"`
}

// MemoryConfig bounds conversation memory.
type MemoryConfig struct {
	TokenBudget    int    `yaml:"token_budget"`
	RetentionFloor int    `yaml:"retention_floor"`
	SessionDir     string `yaml:"session_dir"`
}

// GraphConfig bounds the per-turn decision loop.
type GraphConfig struct {
	MaxHops        int     `yaml:"max_hops"`
	MaxAttempts    int     `yaml:"max_attempts"`
	TimeoutSeconds float64 `yaml:"timeout_seconds"`
}

// IndexConfig locates the document index.
type IndexConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Model:     ModelConfig{Provider: "mock"},
		Retrieval: RetrievalConfig{TopK: 4, MinScore: 0.2},
		Memory:    MemoryConfig{TokenBudget: 2048, RetentionFloor: 4},
		Graph:     GraphConfig{MaxHops: 5, MaxAttempts: 2, TimeoutSeconds: 15},
		Index:     IndexConfig{Collection: "movie_chunks"},
	}
}

// Load reads the config file at path, layering it over the defaults. A
// missing file yields the defaults; a present but invalid file is an
// error. Environment variables from a local .env file are loaded as a side
// effect so API keys never need to live in the config file.
func Load(path string) (Config, error) {
	// Best effort: a missing .env simply means the environment is already
	// set up.
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
