package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 4, cfg.Orchestrator.MaxConcurrent)
	assert.True(t, cfg.KeepAlive.Enabled)
}

func TestLoadConfig_ReadsYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlBody := []byte(`
app:
  listen_addr: "127.0.0.1:9999"
llm:
  provider: gemini
  gemini:
    model: gemini-2.0-flash
orchestrator:
  max_concurrent: 2
`)
	require.NoError(t, os.WriteFile(path, yamlBody, 0o600))
	t.Setenv("GEMINI_API_KEY", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", cfg.App.ListenAddr)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Gemini.Model)
	assert.Equal(t, "from-env", cfg.LLM.Gemini.APIKey)
	assert.Equal(t, 2, cfg.Orchestrator.MaxConcurrent)
}

func TestLoadConfig_RejectsUnknownProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: llama\n"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
