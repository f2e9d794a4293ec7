package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noDotEnv(o *LoadOptions) { o.DotEnvFiles = nil }

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.Agents.CharacterMaxHistory)
	assert.Equal(t, 10, cfg.Agents.CharacterHistoryLookback)
	assert.Equal(t, 7, cfg.Agents.MaxMemories)
	assert.Equal(t, time.Hour, cfg.Orchestrator.CacheTimeout.Duration())
	assert.Equal(t, 30*time.Second, cfg.Orchestrator.AgentTimeout.Duration())
	assert.True(t, cfg.Orchestrator.ParallelExecution)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, "storymesh.yaml", `
llm:
  provider: openai
  model: gpt-4.1
  temperature: 0.2
agents:
  max_memories: 4
orchestrator:
  agent_timeout: 45s
storage:
  driver: sqlite
  dsn: story.db
`)
	t.Setenv("AI_MODEL_NAME", "gpt-4.1-nano")
	t.Setenv("ORCHESTRATOR_CACHE_TIMEOUT", "120")

	cfg, err := Load(path, noDotEnv)
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4.1-nano", cfg.LLM.Model)
	assert.Equal(t, 0.2, cfg.LLM.Temperature)
	assert.Equal(t, 1000, cfg.LLM.MaxTokens)
	assert.Equal(t, 4, cfg.Agents.MaxMemories)
	assert.Equal(t, 5, cfg.Agents.MaxWorldChanges)
	assert.Equal(t, 45*time.Second, cfg.Orchestrator.AgentTimeout.Duration())
	assert.Equal(t, 2*time.Minute, cfg.Orchestrator.CacheTimeout.Duration())
	assert.Equal(t, "story.db", cfg.Storage.DSN)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dotenv := writeFile(t, ".env", "AI_PROVIDER=anthropic\nAI_MAX_TOKENS=256\n")
	t.Setenv("AI_MAX_TOKENS", "512")
	// Registered so the variable set by godotenv is removed afterwards.
	t.Setenv("AI_PROVIDER", "")
	require.NoError(t, os.Unsetenv("AI_PROVIDER"))

	cfg, err := Load("", func(o *LoadOptions) { o.DotEnvFiles = []string{dotenv, filepath.Join(t.TempDir(), "missing.env")} })
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, 512, cfg.LLM.MaxTokens)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), noDotEnv)
	assert.Error(t, err)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("AGENT_TIMEOUT", "soon")
	_, err := Load("", noDotEnv)
	assert.ErrorContains(t, err, "parse env")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"provider", func(c *Config) { c.LLM.Provider = "llama" }, `unknown AI provider "llama"`},
		{"compat needs base url", func(c *Config) { c.LLM.Provider = ProviderCompat }, "base url is required"},
		{"temperature", func(c *Config) { c.LLM.Temperature = 3 }, "temperature"},
		{"memories", func(c *Config) { c.Agents.MaxMemories = 0 }, "max_memories must be positive"},
		{"tension band", func(c *Config) { c.Agents.MinTension = 9 }, "tension band"},
		{"driver", func(c *Config) { c.Storage.Driver = "mongo" }, `unknown storage driver "mongo"`},
		{"dsn", func(c *Config) { c.Storage.Driver = DriverPostgres }, "storage dsn is required"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "unknown log level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "log format"},
		{"timeout", func(c *Config) { c.Orchestrator.AgentTimeout = 0 }, "agent timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestSeconds(t *testing.T) {
	var s Seconds
	require.NoError(t, s.UnmarshalText([]byte("90")))
	assert.Equal(t, 90*time.Second, s.Duration())
	require.NoError(t, s.UnmarshalText([]byte("2m")))
	assert.Equal(t, 2*time.Minute, s.Duration())
	assert.Error(t, s.UnmarshalText([]byte("later")))
}
