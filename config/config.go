// Package config loads StoryMesh settings. Values are layered: Default(),
// then an optional YAML file, then variables from .env files, then the
// process environment. Later layers only override what they set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/storymesh/logging"
)

// Supported completion providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderDeepSeek  = "deepseek"
	ProviderCompat    = "compat"
	ProviderMock      = "mock"
)

// Supported storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the complete runtime configuration.
type Config struct {
	LLM          LLM          `yaml:"llm"`
	Agents       Agents       `yaml:"agents"`
	Orchestrator Orchestrator `yaml:"orchestrator"`
	Storage      Storage      `yaml:"storage"`
	Logging      Logging      `yaml:"logging"`
	Telemetry    Telemetry    `yaml:"telemetry"`
}

// LLM selects and parameterises the completion provider.
type LLM struct {
	Provider    string  `yaml:"provider" env:"AI_PROVIDER"`
	Model       string  `yaml:"model" env:"AI_MODEL_NAME"`
	Temperature float64 `yaml:"temperature" env:"AI_TEMPERATURE"`
	MaxTokens   int     `yaml:"max_tokens" env:"AI_MAX_TOKENS"`
	APIKey      string  `yaml:"api_key" env:"AI_API_KEY"`
	BaseURL     string  `yaml:"base_url" env:"AI_BASE_URL"`
}

// Agents holds the per-agent context windows and narrative bounds.
type Agents struct {
	CharacterMaxHistory      int `yaml:"character_max_history" env:"CHARACTER_MAX_HISTORY"`
	CharacterHistoryLookback int `yaml:"character_history_lookback" env:"CHARACTER_HISTORY_LOOKBACK"`
	MaxWorldChanges          int `yaml:"max_world_changes" env:"MAX_WORLD_CHANGES"`
	MaxMemories              int `yaml:"max_memories" env:"MAX_MEMORIES"`
	MinTension               int `yaml:"min_tension" env:"MIN_TENSION"`
	MaxTension               int `yaml:"max_tension" env:"MAX_TENSION"`
	NarrativeOptions         int `yaml:"narrative_options" env:"NARRATIVE_OPTIONS"`
	StoryContextChars        int `yaml:"story_context_chars" env:"STORY_CONTEXT_CHARS"`
}

// Orchestrator tunes the pipeline and the orchestrator registry.
type Orchestrator struct {
	CacheTimeout          Seconds `yaml:"cache_timeout" env:"ORCHESTRATOR_CACHE_TIMEOUT"`
	AgentTimeout          Seconds `yaml:"agent_timeout" env:"AGENT_TIMEOUT"`
	ParallelExecution     bool    `yaml:"parallel_execution" env:"PARALLEL_EXECUTION"`
	MaxParallelCharacters int     `yaml:"max_parallel_characters" env:"MAX_PARALLEL_CHARACTERS"`
}

// Storage selects the persistence backend.
type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER"`
	DSN    string `yaml:"dsn" env:"STORAGE_DSN"`
}

// Logging configures the process logger.
type Logging struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// Telemetry configures OpenTelemetry tracing.
type Telemetry struct {
	Enabled     bool   `yaml:"enabled" env:"OTEL_ENABLED"`
	Endpoint    string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
}

// Seconds is a duration written either as whole seconds ("3600") or as a Go
// duration ("1h").
type Seconds time.Duration

// Duration converts s to a time.Duration.
func (s Seconds) Duration() time.Duration { return time.Duration(s) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Seconds) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if n, err := strconv.Atoi(raw); err == nil {
		*s = Seconds(time.Duration(n) * time.Second)
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q", raw)
	}
	*s = Seconds(d)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Seconds) UnmarshalYAML(node *yaml.Node) error {
	return s.UnmarshalText([]byte(node.Value))
}

// MarshalYAML implements yaml.Marshaler.
func (s Seconds) MarshalYAML() (any, error) {
	return time.Duration(s).String(), nil
}

// Default returns the built-in configuration: the mock provider on the
// in-memory store.
func Default() Config {
	return Config{
		LLM: LLM{
			Provider:    ProviderMock,
			Temperature: 0.7,
			MaxTokens:   1000,
		},
		Agents: Agents{
			CharacterMaxHistory:      5,
			CharacterHistoryLookback: 10,
			MaxWorldChanges:          5,
			MaxMemories:              7,
			MinTension:               2,
			MaxTension:               8,
			NarrativeOptions:         3,
			StoryContextChars:        1000,
		},
		Orchestrator: Orchestrator{
			CacheTimeout:      Seconds(time.Hour),
			AgentTimeout:      Seconds(30 * time.Second),
			ParallelExecution: true,
		},
		Storage: Storage{Driver: DriverMemory},
		Logging: Logging{Level: "info", Format: "json"},
		Telemetry: Telemetry{
			ServiceName: "storymesh",
		},
	}
}

// LoadOptions control which sources Load reads.
type LoadOptions struct {
	// DotEnvFiles are loaded into the process environment without
	// overriding variables that are already set. Missing files are skipped.
	DotEnvFiles []string
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), .env files and the environment, then validates it.
func Load(path string, optFns ...func(o *LoadOptions)) (*Config, error) {
	opts := LoadOptions{DotEnvFiles: []string{".env"}}
	for _, fn := range optFns {
		fn(&opts)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	for _, file := range opts.DotEnvFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", file, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderDeepSeek, ProviderCompat, ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown AI provider %q", c.LLM.Provider))
	}
	if c.LLM.Provider == ProviderCompat && strings.TrimSpace(c.LLM.BaseURL) == "" {
		errs = append(errs, fmt.Errorf("base url is required for the compat provider"))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature %.2f out of range [0, 2]", c.LLM.Temperature))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max tokens must be positive"))
	}

	a := c.Agents
	for _, f := range []struct {
		name  string
		value int
	}{
		{"character_max_history", a.CharacterMaxHistory},
		{"character_history_lookback", a.CharacterHistoryLookback},
		{"max_world_changes", a.MaxWorldChanges},
		{"max_memories", a.MaxMemories},
		{"narrative_options", a.NarrativeOptions},
		{"story_context_chars", a.StoryContextChars},
	} {
		if f.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", f.name))
		}
	}
	if a.MinTension < 0 || a.MaxTension > 10 || a.MinTension > a.MaxTension {
		errs = append(errs, fmt.Errorf("tension band [%d, %d] must lie within [0, 10]", a.MinTension, a.MaxTension))
	}

	if c.Orchestrator.CacheTimeout <= 0 {
		errs = append(errs, fmt.Errorf("cache timeout must be positive"))
	}
	if c.Orchestrator.AgentTimeout <= 0 {
		errs = append(errs, fmt.Errorf("agent timeout must be positive"))
	}
	if c.Orchestrator.MaxParallelCharacters < 0 {
		errs = append(errs, fmt.Errorf("max parallel characters must not be negative"))
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, fmt.Errorf("storage dsn is required for driver %q", c.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		errs = append(errs, fmt.Errorf("log format must be json or text, got %q", c.Logging.Format))
	}

	if c.Telemetry.Enabled && strings.TrimSpace(c.Telemetry.ServiceName) == "" {
		errs = append(errs, fmt.Errorf("service name is required when telemetry is enabled"))
	}

	return errors.Join(errs...)
}

// Logger builds the process logger described by c.Logging.
func (c *Config) Logger() *logging.StoryLogger {
	level, _ := logging.ParseLevel(c.Logging.Level)
	return logging.NewSlogLogger(level, c.Logging.Format, false)
}
