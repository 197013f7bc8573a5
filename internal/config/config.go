// Package config loads infograph configuration from defaults, an optional YAML
// file and INFOGRAPH_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/avi3tal/infograph/internal/llm"
	"github.com/avi3tal/infograph/pkg/types"
)

const envPrefix = "INFOGRAPH"

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	LLM           LLMConfig             `mapstructure:"llm"`
	Decomposition DecompositionConfig   `mapstructure:"decomposition"`
	Synthesis     SynthesisConfig       `mapstructure:"synthesis"`
	Execution     ExecutionConfig       `mapstructure:"execution"`
	Preferences   types.UserPreferences `mapstructure:"preferences"`
	User          types.UserContext     `mapstructure:"user"`
	Log           LogConfig             `mapstructure:"log"`
	Store         StoreConfig           `mapstructure:"store"`
	Strategies    StrategiesConfig      `mapstructure:"strategies"`
}

type LLMConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

type DecompositionConfig struct {
	MaxTokens         int     `mapstructure:"max_tokens"`
	Temperature       float64 `mapstructure:"temperature"`
	LenientReferences bool    `mapstructure:"lenient_references"`
	// GraphFile replaces the model with a fixed graph document when set.
	GraphFile string `mapstructure:"graph_file"`
}

type SynthesisConfig struct {
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type ExecutionConfig struct {
	NodeTimeout    time.Duration `mapstructure:"node_timeout"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	HistoryWindow  int           `mapstructure:"history_window"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type StoreConfig struct {
	MaxStates int `mapstructure:"max_states"`
}

type StrategiesConfig struct {
	// Endpoints maps a node type to the URL of the service executing it.
	Endpoints  map[string]string `mapstructure:"endpoints"`
	MaxRetries uint64            `mapstructure:"max_retries"`
	Timeout    time.Duration     `mapstructure:"timeout"`
}

// LLMClient converts the llm section into an llm.Config.
func (c LLMConfig) LLMClient() llm.Config {
	return llm.Config{
		Provider: c.Provider,
		Model:    c.Model,
		APIKey:   c.APIKey,
		BaseURL:  c.BaseURL,
	}
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads configuration. An explicit path must exist; otherwise
// infograph.yaml is looked up in the working directory and the user config
// directory, and its absence is not an error.
// Precedence (highest to lowest):
// 1. INFOGRAPH_* environment variables
// 2. Config file
// 3. Built-in defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config from %s", path)
		}
	} else {
		v.SetConfigName("infograph")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(userConfigDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "reading config")
			}
		}
	}

	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	if path == "" {
		return nil, errors.Wrap(ErrInvalidConfig, "empty config path")
	}
	return Load(path)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	cfg.LLM.APIKey = os.ExpandEnv(cfg.LLM.APIKey)
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKey(cfg.LLM.Provider)
	}
	cfg.Preferences = cfg.Preferences.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at run time.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LLM.Provider) {
	case llm.ProviderOpenAI, llm.ProviderAnthropic, llm.ProviderOllama:
	default:
		return errors.Wrapf(ErrInvalidConfig, "llm.provider %q", c.LLM.Provider)
	}
	if c.Execution.MaxConcurrency < 0 {
		return errors.Wrapf(ErrInvalidConfig, "execution.max_concurrency %d", c.Execution.MaxConcurrency)
	}
	if c.Execution.HistoryWindow < 0 {
		return errors.Wrapf(ErrInvalidConfig, "execution.history_window %d", c.Execution.HistoryWindow)
	}
	for key := range c.Strategies.Endpoints {
		if _, err := types.ParseNodeType(key); err != nil {
			return errors.Wrapf(ErrInvalidConfig, "strategies.endpoints: %v", err)
		}
	}
	return nil
}

// NodeEndpoints returns the configured strategy endpoints keyed by node type.
func (c StrategiesConfig) NodeEndpoints() map[types.NodeType]string {
	out := make(map[types.NodeType]string, len(c.Endpoints))
	for key, url := range c.Endpoints {
		if t, err := types.ParseNodeType(key); err == nil {
			out[t] = url
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", llm.ProviderOpenAI)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")

	v.SetDefault("decomposition.max_tokens", 2000)
	v.SetDefault("decomposition.temperature", 0.0)
	v.SetDefault("decomposition.lenient_references", false)
	v.SetDefault("decomposition.graph_file", "")

	v.SetDefault("synthesis.max_tokens", 1000)
	v.SetDefault("synthesis.temperature", 0.7)

	// no node timeout unless configured
	v.SetDefault("execution.node_timeout", "0s")
	v.SetDefault("execution.max_concurrency", 0)
	v.SetDefault("execution.history_window", 3)

	v.SetDefault("preferences.tone", types.ToneProfessional)
	v.SetDefault("preferences.verbosity", types.VerbosityBrief)
	v.SetDefault("preferences.format", types.FormatBullets)

	v.SetDefault("user.timezone", "UTC")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("store.max_states", 1024)

	v.SetDefault("strategies.max_retries", 2)
	v.SetDefault("strategies.timeout", "30s")
}

func providerKey(provider string) string {
	switch strings.ToLower(provider) {
	case llm.ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	case llm.ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	default:
		return ""
	}
}

func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "infograph")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "infograph")
	}
	return filepath.Join(home, ".config", "infograph")
}
