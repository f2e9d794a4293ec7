// Package provider builds the completion model selected by configuration.
package provider

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/storymesh/config"
	"github.com/hupe1980/storymesh/model"
	anthropicmodel "github.com/hupe1980/storymesh/model/anthropic"
	"github.com/hupe1980/storymesh/model/compat"
	"github.com/hupe1980/storymesh/model/openai"
)

// MockModelName is reported by the mock provider.
const MockModelName = "storymesh-mock"

// New returns the model.Model for cfg.Provider. An empty cfg.Model keeps the
// adapter's default model.
func New(cfg config.LLM) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = int64(cfg.MaxTokens)
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil

	case config.ProviderAnthropic:
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if cfg.Model != "" {
				o.Model = anthropic.Model(cfg.Model)
			}
			o.Temperature = cfg.Temperature
			o.MaxTokens = int64(cfg.MaxTokens)
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil

	case config.ProviderDeepSeek, config.ProviderCompat:
		return compat.NewModel(func(o *compat.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Temperature = float32(cfg.Temperature)
			o.MaxTokens = cfg.MaxTokens
			o.APIKey = cfg.APIKey
			if cfg.BaseURL != "" {
				o.BaseURL = cfg.BaseURL
			}
			o.Provider = cfg.Provider
		}), nil

	case config.ProviderMock, "":
		name := cfg.Model
		if name == "" {
			name = MockModelName
		}
		return model.NewMockModel(name, config.ProviderMock), nil

	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
