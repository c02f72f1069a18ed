package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "https://gemini.google.com", cfg.Gemini.BaseURL)
	assert.Equal(t, "boq_assistant-bard-web-server_20240222.09_p2", cfg.Gemini.BotServer)
	assert.Equal(t, 10*time.Second, cfg.Gemini.Latency)
	assert.Equal(t, 40*time.Second, cfg.Gemini.WaitTime)
	assert.Equal(t, "abort", cfg.Gemini.CandidatePolicy)
	assert.Equal(t, 1, cfg.Gemini.MaxAttempts)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.OpenRouter.BaseURL)
	assert.False(t, cfg.OpenRouter.Enabled())
	assert.Equal(t, 4, cfg.Images.Concurrency)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("GEMINI_LANGUAGE", "ko")
	t.Setenv("GEMINI_COOKIES", `{"__Secure-1PSID":"x"}`)
	t.Setenv("GEMINI_WAIT_TIME", "5s")
	t.Setenv("GEMINI_CANDIDATE_POLICY", "skip")
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "ko", cfg.Gemini.Language)
	assert.Equal(t, `{"__Secure-1PSID":"x"}`, cfg.Gemini.Cookies)
	assert.Equal(t, 5*time.Second, cfg.Gemini.WaitTime)
	assert.Equal(t, "skip", cfg.Gemini.CandidatePolicy)
	assert.True(t, cfg.OpenRouter.Enabled())
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
gemini:
  max_attempts: 3
  latency: 2s
images:
  dir: /tmp/out
  concurrency: 2
telemetry:
  enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Gemini.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Gemini.Latency)
	assert.Equal(t, "/tmp/out", cfg.Images.Dir)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "gemini-mole", cfg.Telemetry.ServiceName)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("GEMINI_MAX_ATTEMPTS", "0")
	t.Setenv("GEMINI_CANDIDATE_POLICY", "lenient")

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_attempts")
	assert.Contains(t, err.Error(), "candidate_policy")
}
