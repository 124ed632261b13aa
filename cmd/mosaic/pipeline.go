package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mosaic-agent/mosaic/internal/agent"
	"github.com/mosaic-agent/mosaic/internal/audit"
	"github.com/mosaic-agent/mosaic/internal/collect"
	"github.com/mosaic-agent/mosaic/internal/config"
	"github.com/mosaic-agent/mosaic/internal/distribute"
	"github.com/mosaic-agent/mosaic/internal/guard"
	"github.com/mosaic-agent/mosaic/internal/orchestrator"
	"github.com/mosaic-agent/mosaic/internal/refine"
	"github.com/mosaic-agent/mosaic/internal/source"
	"github.com/mosaic-agent/mosaic/internal/synthesize"
	"github.com/mosaic-agent/mosaic/pkg/models"
)

// loadConfig resolves the effective configuration, honoring --config.
func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		return config.LoadFromPath(flagConfig)
	}
	return config.Load()
}

// applyFlags folds the global flag overrides into the configuration.
func applyFlags(cfg *config.Config) error {
	if flagStrategy != "" {
		if !models.AggregationStrategy(flagStrategy).Valid() {
			return fmt.Errorf("unknown strategy %q", flagStrategy)
		}
		cfg.Pipeline.Strategy = flagStrategy
	}
	if flagTimeout != "" {
		d, err := time.ParseDuration(flagTimeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", flagTimeout, err)
		}
		cfg.Timeouts.Step = d
	}
	return nil
}

// buildRegistry assembles the source registry: the catalog file when
// configured, otherwise a default set based on the available backends.
func buildRegistry(cfg *config.Config) (*source.Registry, error) {
	reg := source.NewRegistry()

	if cfg.Sources.CatalogPath != "" {
		if err := reg.LoadCatalog(cfg.Sources.CatalogPath); err != nil {
			return nil, err
		}
		if cfg.Sources.Watch {
			if err := reg.Watch(cfg.Sources.CatalogPath, func(err error) {
				fmt.Fprintf(os.Stderr, "catalog reload: %v\n", err)
			}); err != nil {
				return nil, err
			}
		}
		return reg, nil
	}

	if cfg.Anthropic.APIKey != "" || os.Getenv("ANTHROPIC_API_KEY") != "" || cfg.Anthropic.Bedrock {
		for _, role := range []string{source.RoleGeneral, source.RoleCode} {
			s, err := source.NewAnthropic(source.AnthropicConfig{
				ID:            "claude-" + role,
				Role:          role,
				APIKey:        cfg.Anthropic.APIKey,
				UseAWSBedrock: cfg.Anthropic.Bedrock,
				AWSRegion:     cfg.Anthropic.Region,
			})
			if err != nil {
				return nil, err
			}
			reg.Register(s)
		}
	} else {
		reg.Register(source.NewOllama(source.OllamaConfig{
			ID:      "ollama-general",
			Role:    source.RoleGeneral,
			BaseURL: cfg.Ollama.URL,
			Model:   cfg.Ollama.Model,
			Timeout: cfg.Timeouts.PerSource,
		}))
		reg.Register(source.NewOllama(source.OllamaConfig{
			ID:      "ollama-code",
			Role:    source.RoleCode,
			BaseURL: cfg.Ollama.URL,
			Model:   "codegemma",
			Timeout: cfg.Timeouts.PerSource,
		}))
	}
	reg.Register(source.NewDoc("docs", source.RoleDocumentation, nil))

	return reg, nil
}

// buildOrchestrator wires the full pipeline from the configuration.
// The caller owns the returned orchestrator and store.
func buildOrchestrator(cfg *config.Config, reg *source.Registry) (*orchestrator.Orchestrator, *audit.Store, error) {
	g := guard.New()

	agentCfg := agent.DefaultConfig()
	agentCfg.Timeout = cfg.Timeouts.Step
	if cfg.Timeouts.TaskRetention > 0 {
		agentCfg.TaskRetention = cfg.Timeouts.TaskRetention
	}

	distributor := distribute.New(reg, distribute.Options{
		PerSourceTimeout: cfg.Timeouts.PerSource,
		BatchTimeout:     cfg.Timeouts.Batch,
	})

	o, err := orchestrator.New(g, distributor, orchestrator.Options{
		DispatchPolicy: cfg.Pipeline.DispatchPolicy,
		StepTimeout:    cfg.Timeouts.Step,
	})
	if err != nil {
		return nil, nil, err
	}

	refineOpts := refine.Options{
		MinLength:         cfg.Prompt.MinLength,
		MaxLength:         cfg.Prompt.MaxLength,
		ExpansionEnabled:  cfg.Pipeline.ExpansionEnabled,
		SubPromptsEnabled: cfg.Pipeline.SubPromptsEnabled,
	}
	collectOpts := collect.Options{
		MaxDataSources:  cfg.Pipeline.MaxDataSources,
		Strategy:        models.AggregationStrategy(cfg.Pipeline.Strategy),
		CleanEnabled:    cfg.Pipeline.CleanEnabled,
		ValidateEnabled: cfg.Pipeline.ValidateEnabled,
	}

	ctx := context.Background()
	for _, a := range []orchestrator.Agent{
		refine.NewAgent(refineOpts, agentCfg, g),
		collect.NewAgent(collectOpts, agentCfg, g),
		synthesize.NewAgent(nil, agentCfg, g),
	} {
		if err := o.RegisterAgent(ctx, a); err != nil {
			o.Shutdown()
			return nil, nil, err
		}
	}

	var store *audit.Store
	if cfg.Audit.Enabled {
		path := cfg.Audit.DBPath
		if path == "" {
			path = audit.DefaultPath()
		}
		var err error
		store, err = audit.Open(path)
		if err != nil {
			o.Shutdown()
			return nil, nil, err
		}
		o.SetRecorder(store)
	}

	return o, store, nil
}

// openAuditStore opens the history database for read-only commands.
func openAuditStore(cfg *config.Config) (*audit.Store, error) {
	path := cfg.Audit.DBPath
	if path == "" {
		path = audit.DefaultPath()
	}
	return audit.Open(path)
}
