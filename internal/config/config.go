// Package config handles configuration loading for Mosaic. It supports
// XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Mosaic.
type Config struct {
	Anthropic Anthropic `mapstructure:"anthropic"`
	Ollama    Ollama    `mapstructure:"ollama"`
	Prompt    Prompt    `mapstructure:"prompt"`
	Pipeline  Pipeline  `mapstructure:"pipeline"`
	Timeouts  Timeouts  `mapstructure:"timeouts"`
	Audit     Audit     `mapstructure:"audit"`
	Sources   Sources   `mapstructure:"sources"`
}

// Anthropic holds Anthropic API settings.
type Anthropic struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Bedrock bool   `mapstructure:"bedrock"`
	Region  string `mapstructure:"region"`
}

// Ollama holds local inference settings.
type Ollama struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

// Prompt holds refinement input limits.
type Prompt struct {
	MinLength int `mapstructure:"min_length"`
	MaxLength int `mapstructure:"max_length"`
}

// Pipeline holds stage behavior settings.
type Pipeline struct {
	MaxDataSources    int    `mapstructure:"max_data_sources"`
	Strategy          string `mapstructure:"strategy"`
	DispatchPolicy    string `mapstructure:"dispatch_policy"`
	CleanEnabled      bool   `mapstructure:"clean_enabled"`
	ValidateEnabled   bool   `mapstructure:"validate_enabled"`
	ExpansionEnabled  bool   `mapstructure:"expansion_enabled"`
	SubPromptsEnabled bool   `mapstructure:"sub_prompts_enabled"`
}

// Timeouts holds the stage timing settings.
type Timeouts struct {
	PerSource     time.Duration `mapstructure:"per_source"`
	Batch         time.Duration `mapstructure:"batch"`
	Step          time.Duration `mapstructure:"step"`
	TaskRetention time.Duration `mapstructure:"task_retention"`
}

// Audit holds run history settings.
type Audit struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
}

// Sources holds source catalog settings.
type Sources struct {
	CatalogPath string `mapstructure:"catalog_path"`
	Watch       bool   `mapstructure:"watch"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
//  1. Environment variables (MOSAIC_*, ANTHROPIC_API_KEY)
//  2. Project config (.mosaic.yaml in the current directory or a parent)
//  3. User config (~/.config/mosaic/config.yaml)
//  4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("MOSAIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.bedrock", cfg.Anthropic.Bedrock)
	v.Set("anthropic.region", cfg.Anthropic.Region)
	v.Set("ollama.url", cfg.Ollama.URL)
	v.Set("ollama.model", cfg.Ollama.Model)
	v.Set("prompt.min_length", cfg.Prompt.MinLength)
	v.Set("prompt.max_length", cfg.Prompt.MaxLength)
	v.Set("pipeline.max_data_sources", cfg.Pipeline.MaxDataSources)
	v.Set("pipeline.strategy", cfg.Pipeline.Strategy)
	v.Set("pipeline.dispatch_policy", cfg.Pipeline.DispatchPolicy)
	v.Set("pipeline.clean_enabled", cfg.Pipeline.CleanEnabled)
	v.Set("pipeline.validate_enabled", cfg.Pipeline.ValidateEnabled)
	v.Set("pipeline.expansion_enabled", cfg.Pipeline.ExpansionEnabled)
	v.Set("pipeline.sub_prompts_enabled", cfg.Pipeline.SubPromptsEnabled)
	v.Set("timeouts.per_source", cfg.Timeouts.PerSource.String())
	v.Set("timeouts.batch", cfg.Timeouts.Batch.String())
	v.Set("timeouts.step", cfg.Timeouts.Step.String())
	v.Set("timeouts.task_retention", cfg.Timeouts.TaskRetention.String())
	v.Set("audit.enabled", cfg.Audit.Enabled)
	v.Set("audit.db_path", cfg.Audit.DBPath)
	v.Set("sources.catalog_path", cfg.Sources.CatalogPath)
	v.Set("sources.watch", cfg.Sources.Watch)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.bedrock", false)
	v.SetDefault("anthropic.region", "")

	v.SetDefault("ollama.url", "http://localhost:11434")
	v.SetDefault("ollama.model", "llama3")

	v.SetDefault("prompt.min_length", 5)
	v.SetDefault("prompt.max_length", 4000)

	v.SetDefault("pipeline.max_data_sources", 10)
	v.SetDefault("pipeline.strategy", "weighted")
	v.SetDefault("pipeline.dispatch_policy", "load_balanced")
	v.SetDefault("pipeline.clean_enabled", true)
	v.SetDefault("pipeline.validate_enabled", true)
	v.SetDefault("pipeline.expansion_enabled", true)
	v.SetDefault("pipeline.sub_prompts_enabled", true)

	v.SetDefault("timeouts.per_source", "30s")
	v.SetDefault("timeouts.batch", "2m")
	v.SetDefault("timeouts.step", "2m")
	v.SetDefault("timeouts.task_retention", "1h")

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.db_path", "")

	v.SetDefault("sources.catalog_path", "")
	v.SetDefault("sources.watch", false)
}

// getUserConfigDir returns the XDG config directory for Mosaic.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "mosaic")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "mosaic")
	}
	return filepath.Join(home, ".config", "mosaic")
}

// findProjectConfig searches for .mosaic.yaml in the current directory
// and its parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(cwd, ".mosaic.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			return ""
		}
		cwd = parent
	}
}
