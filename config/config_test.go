package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
model:
  provider: openai
  chat_model: gpt-4o-mini
retrieval:
  top_k: 8
memory:
  token_budget: 4096
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Model.ChatModel)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.Equal(t, 4096, cfg.Memory.TokenBudget)

	// Untouched sections keep their defaults.
	assert.Equal(t, 5, cfg.Graph.MaxHops)
	assert.Equal(t, 0.2, cfg.Retrieval.MinScore)
}

func TestLoad_InvalidFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [not a mapping"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
