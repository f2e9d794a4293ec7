package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/storymesh/config"
	"github.com/hupe1980/storymesh/model"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LLM
		want model.Info
	}{
		{"openai", config.LLM{Provider: config.ProviderOpenAI, Model: "gpt-4.1", APIKey: "k"}, model.Info{Name: "gpt-4.1", Provider: "openai"}},
		{"anthropic", config.LLM{Provider: config.ProviderAnthropic, Model: "claude-sonnet-4-0", APIKey: "k"}, model.Info{Name: "claude-sonnet-4-0", Provider: "anthropic"}},
		{"deepseek", config.LLM{Provider: config.ProviderDeepSeek, APIKey: "k"}, model.Info{Name: "deepseek-chat", Provider: "deepseek"}},
		{"compat", config.LLM{Provider: config.ProviderCompat, Model: "llama3", BaseURL: "http://localhost:11434/v1"}, model.Info{Name: "llama3", Provider: "compat"}},
		{"mock", config.LLM{Provider: config.ProviderMock}, model.Info{Name: MockModelName, Provider: "mock"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Info())
		})
	}
}

func TestNew_Unknown(t *testing.T) {
	_, err := New(config.LLM{Provider: "llama"})
	assert.ErrorContains(t, err, `unknown AI provider "llama"`)
}
