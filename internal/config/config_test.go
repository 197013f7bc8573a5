package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/avi3tal/infograph/pkg/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "infograph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.Equal(t, "openai", cfg.LLM.Provider)
	require.Equal(t, 1000, cfg.Synthesis.MaxTokens)
	require.InDelta(t, 0.7, cfg.Synthesis.Temperature, 1e-9)
	require.Equal(t, 2000, cfg.Decomposition.MaxTokens)
	require.Zero(t, cfg.Execution.NodeTimeout)
	require.Zero(t, cfg.Execution.MaxConcurrency)
	require.Equal(t, 3, cfg.Execution.HistoryWindow)
	require.Equal(t, types.DefaultPreferences(), cfg.Preferences)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, 1024, cfg.Store.MaxStates)
	require.Equal(t, 30*time.Second, cfg.Strategies.Timeout)
}

func TestLoadFromPath(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
llm:
  provider: ollama
  model: llama3
  base_url: http://localhost:11434
synthesis:
  max_tokens: 400
execution:
  node_timeout: 20s
  max_concurrency: 4
preferences:
  tone: casual
user:
  timezone: Europe/Berlin
  accounts: [work, personal]
strategies:
  endpoints:
    search: http://tools.local/search
    cross_reference: http://tools.local/xref
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, "ollama", cfg.LLM.Provider)
	require.Equal(t, "llama3", cfg.LLM.LLMClient().Model)
	require.Equal(t, 400, cfg.Synthesis.MaxTokens)
	require.InDelta(t, 0.7, cfg.Synthesis.Temperature, 1e-9)
	require.Equal(t, 20*time.Second, cfg.Execution.NodeTimeout)
	require.Equal(t, 4, cfg.Execution.MaxConcurrency)
	require.Equal(t, types.ToneCasual, cfg.Preferences.Tone)
	require.Equal(t, types.VerbosityBrief, cfg.Preferences.Verbosity)
	require.Equal(t, "Europe/Berlin", cfg.User.Timezone)
	require.Equal(t, []string{"work", "personal"}, cfg.User.Accounts)
	require.Equal(t, map[types.NodeType]string{
		types.NodeTypeSearch:         "http://tools.local/search",
		types.NodeTypeCrossReference: "http://tools.local/xref",
	}, cfg.Strategies.NodeEndpoints())
}

func TestLoadFromPathErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadFromPath("")
	require.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = LoadFromPath(writeConfig(t, "llm:\n  provider: carrier-pigeon\n"))
	require.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = LoadFromPath(writeConfig(t, "strategies:\n  endpoints:\n    summarize: http://x\n"))
	require.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = LoadFromPath(writeConfig(t, "execution:\n  max_concurrency: -1\n"))
	require.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("INFOGRAPH_LLM_PROVIDER", "anthropic")
	t.Setenv("INFOGRAPH_EXECUTION_MAX_CONCURRENCY", "8")
	t.Setenv("INFOGRAPH_LOG_LEVEL", "debug")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	cfg, err := LoadFromPath(writeConfig(t, "execution:\n  max_concurrency: 2\n"))
	require.NoError(t, err)
	require.Equal(t, "anthropic", cfg.LLM.Provider)
	require.Equal(t, "sk-ant-test", cfg.LLM.APIKey)
	require.Equal(t, 8, cfg.Execution.MaxConcurrency)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestAPIKeyExpansion(t *testing.T) {
	t.Setenv("MY_OPENAI_KEY", "sk-expanded")

	cfg, err := LoadFromPath(writeConfig(t, "llm:\n  api_key: ${MY_OPENAI_KEY}\n"))
	require.NoError(t, err)
	require.Equal(t, "sk-expanded", cfg.LLM.APIKey)
}
