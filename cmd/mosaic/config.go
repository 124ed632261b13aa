package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mosaic-agent/mosaic/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify Mosaic configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/mosaic/config.yaml
Project-specific overrides can be placed in .mosaic.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	// Mask API key if set
	apiKeyDisplay := "(not set)"
	if cfg.Anthropic.APIKey != "" {
		apiKeyDisplay = "****"
	}

	fmt.Printf("anthropic.api_key: %s\n", apiKeyDisplay)
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.bedrock: %t\n", cfg.Anthropic.Bedrock)
	fmt.Printf("ollama.url: %s\n", cfg.Ollama.URL)
	fmt.Printf("ollama.model: %s\n", cfg.Ollama.Model)
	fmt.Printf("prompt.min_length: %d\n", cfg.Prompt.MinLength)
	fmt.Printf("prompt.max_length: %d\n", cfg.Prompt.MaxLength)
	fmt.Printf("pipeline.max_data_sources: %d\n", cfg.Pipeline.MaxDataSources)
	fmt.Printf("pipeline.strategy: %s\n", cfg.Pipeline.Strategy)
	fmt.Printf("pipeline.dispatch_policy: %s\n", cfg.Pipeline.DispatchPolicy)
	fmt.Printf("pipeline.clean_enabled: %t\n", cfg.Pipeline.CleanEnabled)
	fmt.Printf("pipeline.validate_enabled: %t\n", cfg.Pipeline.ValidateEnabled)
	fmt.Printf("timeouts.per_source: %s\n", cfg.Timeouts.PerSource)
	fmt.Printf("timeouts.batch: %s\n", cfg.Timeouts.Batch)
	fmt.Printf("timeouts.step: %s\n", cfg.Timeouts.Step)
	fmt.Printf("audit.enabled: %t\n", cfg.Audit.Enabled)
	fmt.Printf("sources.catalog_path: %s\n", cfg.Sources.CatalogPath)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		if cfg.Anthropic.APIKey == "" {
			return "(not set)", nil
		}
		return "****", nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.bedrock":
		return strconv.FormatBool(cfg.Anthropic.Bedrock), nil
	case "ollama.url":
		return cfg.Ollama.URL, nil
	case "ollama.model":
		return cfg.Ollama.Model, nil
	case "prompt.min_length":
		return strconv.Itoa(cfg.Prompt.MinLength), nil
	case "prompt.max_length":
		return strconv.Itoa(cfg.Prompt.MaxLength), nil
	case "pipeline.max_data_sources":
		return strconv.Itoa(cfg.Pipeline.MaxDataSources), nil
	case "pipeline.strategy":
		return cfg.Pipeline.Strategy, nil
	case "pipeline.dispatch_policy":
		return cfg.Pipeline.DispatchPolicy, nil
	case "pipeline.clean_enabled":
		return strconv.FormatBool(cfg.Pipeline.CleanEnabled), nil
	case "pipeline.validate_enabled":
		return strconv.FormatBool(cfg.Pipeline.ValidateEnabled), nil
	case "timeouts.per_source":
		return cfg.Timeouts.PerSource.String(), nil
	case "timeouts.batch":
		return cfg.Timeouts.Batch.String(), nil
	case "timeouts.step":
		return cfg.Timeouts.Step.String(), nil
	case "audit.enabled":
		return strconv.FormatBool(cfg.Audit.Enabled), nil
	case "sources.catalog_path":
		return cfg.Sources.CatalogPath, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for anthropic.bedrock: %w", err)
		}
		cfg.Anthropic.Bedrock = b
	case "ollama.url":
		cfg.Ollama.URL = value
	case "ollama.model":
		cfg.Ollama.Model = value
	case "prompt.min_length":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for prompt.min_length: %w", err)
		}
		cfg.Prompt.MinLength = n
	case "prompt.max_length":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for prompt.max_length: %w", err)
		}
		cfg.Prompt.MaxLength = n
	case "pipeline.max_data_sources":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for pipeline.max_data_sources: %w", err)
		}
		cfg.Pipeline.MaxDataSources = n
	case "pipeline.strategy":
		cfg.Pipeline.Strategy = value
	case "pipeline.dispatch_policy":
		cfg.Pipeline.DispatchPolicy = value
	case "pipeline.clean_enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for pipeline.clean_enabled: %w", err)
		}
		cfg.Pipeline.CleanEnabled = b
	case "pipeline.validate_enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for pipeline.validate_enabled: %w", err)
		}
		cfg.Pipeline.ValidateEnabled = b
	case "timeouts.per_source":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for timeouts.per_source: %w", err)
		}
		cfg.Timeouts.PerSource = d
	case "timeouts.batch":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for timeouts.batch: %w", err)
		}
		cfg.Timeouts.Batch = d
	case "timeouts.step":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for timeouts.step: %w", err)
		}
		cfg.Timeouts.Step = d
	case "audit.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for audit.enabled: %w", err)
		}
		cfg.Audit.Enabled = b
	case "sources.catalog_path":
		cfg.Sources.CatalogPath = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
