package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.Server.LogLevel)
	assert.Equal(t, DefaultEngineDefault, cfg.Engines.Default)
	assert.Equal(t, DefaultCallMaxAttempts, cfg.Call.MaxAttempts)
	assert.Equal(t, DefaultClassifyDeepDiveMax, cfg.Classify.DeepDiveMax)
	assert.NotEmpty(t, cfg.Engines.Registry)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TABWARDEN_ENGINES_DEFAULT", "local-llama")
	t.Setenv("TABWARDEN_JANITOR_SCHEDULE", "@every 1h")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "local-llama", cfg.Engines.Default)
	assert.Equal(t, "@every 1h", cfg.Janitor.Schedule)
}

func TestLoadRegistryFills(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
engines:
  registry:
    - name: local-llama
      base_url: http://localhost:11434/v1
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	t.Setenv("HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".tabwarden"), 0755))
	require.NoError(t, os.Rename(path, filepath.Join(dir, ".tabwarden", "config.yaml")))

	cfg, err := Load(nil)
	require.NoError(t, err)

	require.Len(t, cfg.Engines.Registry, 1)
	assert.Equal(t, "openai", cfg.Engines.Registry[0].Provider)
	assert.Equal(t, "local-llama", cfg.Engines.Registry[0].Model)
}

func TestDurationOrDefault(t *testing.T) {
	d, err := DurationOrDefault("", "5s")
	assert.NoError(t, err)
	assert.Equal(t, "5s", d.String())

	d, err = DurationOrDefault("250ms", "5s")
	assert.NoError(t, err)
	assert.Equal(t, "250ms", d.String())

	_, err = DurationOrDefault("nonsense", "5s")
	assert.Error(t, err)

	_, err = DurationOrDefault("", "")
	assert.Error(t, err)
}
