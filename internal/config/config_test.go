// internal/config/config_test.go
package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setTestDirs(t *testing.T) {
	t.Helper()
	tempDir := t.TempDir()
	t.Setenv("DATA_DIR", filepath.Join(tempDir, "data"))
	t.Setenv("LOG_DIR", filepath.Join(tempDir, "logs"))
}

func TestLoad_Defaults(t *testing.T) {
	setTestDirs(t)
	t.Setenv("OPENROUTER_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.DebugMode)
	assert.Equal(t, "openrouter", cfg.LLMProvider)
	assert.Equal(t, "test-key", cfg.LLMConfig["api_key"])
	assert.Equal(t, "qwen/qwen3-235b-a22b-thinking-2507", cfg.LLMConfig["default_model"])
	assert.Equal(t, "Podcast Generator", cfg.LLMConfig["app_name"])

	assert.Equal(t, DefaultMaxRetries, cfg.Generation.MaxRetries)
	assert.InDelta(t, DefaultTemperature, float64(cfg.Generation.Temperature), 1e-6)
	assert.Equal(t, DefaultMaxOutputTokens, cfg.Generation.MaxOutputTokens)
	assert.Equal(t, DefaultMinDurationMinutes, cfg.Generation.MinDurationMinutes)
	assert.Equal(t, DefaultMaxDurationMinutes, cfg.Generation.MaxDurationMinutes)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setTestDirs(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DEBUG_MODE", "false")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("TEMPERATURE", "0.7")
	t.Setenv("MAX_OUTPUT_TOKENS", "4000")
	t.Setenv("MAX_DURATION_MINUTES", "10")
	t.Setenv("SCRIPTGEN_MODEL", "some/other-model")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.DebugMode)
	assert.Equal(t, 5, cfg.Generation.MaxRetries)
	assert.InDelta(t, 0.7, float64(cfg.Generation.Temperature), 1e-6)
	assert.Equal(t, 4000, cfg.Generation.MaxOutputTokens)
	assert.Equal(t, 10.0, cfg.Generation.MaxDurationMinutes)
	assert.Equal(t, "some/other-model", cfg.LLMConfig["default_model"])
}

func TestLoad_GoogleProviderUsesOwnKeys(t *testing.T) {
	setTestDirs(t)
	t.Setenv("LLM_PROVIDER", "google")
	t.Setenv("GOOGLE_API_KEY", "google-key")
	t.Setenv("OPENROUTER_API_KEY", "should-be-ignored")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "google", cfg.LLMProvider)
	assert.Equal(t, "google-key", cfg.LLMConfig["api_key"])
	assert.Equal(t, "gemini-2.5-flash", cfg.LLMConfig["default_model"])
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	setTestDirs(t)
	t.Setenv("MAX_RETRIES", "not-a-number")
	t.Setenv("TEMPERATURE", "hot")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxRetries, cfg.Generation.MaxRetries)
	assert.InDelta(t, DefaultTemperature, float64(cfg.Generation.Temperature), 1e-6)
}

func TestLoad_MissingAPIKeyIsNotFatal(t *testing.T) {
	setTestDirs(t)
	t.Setenv("OPENROUTER_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.LLMConfig["api_key"])
}
