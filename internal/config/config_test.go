package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPathDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("pipeline:\n  strategy: consensus\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Pipeline.Strategy != "consensus" {
		t.Errorf("strategy = %s, want consensus", cfg.Pipeline.Strategy)
	}
	if cfg.Pipeline.MaxDataSources != 10 {
		t.Errorf("maxDataSources = %d, want default 10", cfg.Pipeline.MaxDataSources)
	}
	if cfg.Prompt.MinLength != 5 || cfg.Prompt.MaxLength != 4000 {
		t.Errorf("prompt limits = %d/%d", cfg.Prompt.MinLength, cfg.Prompt.MaxLength)
	}
	if cfg.Timeouts.PerSource != 30*time.Second {
		t.Errorf("perSource = %v", cfg.Timeouts.PerSource)
	}
	if cfg.Timeouts.TaskRetention != time.Hour {
		t.Errorf("taskRetention = %v", cfg.Timeouts.TaskRetention)
	}
	if !cfg.Pipeline.ValidateEnabled {
		t.Error("validate not enabled by default")
	}
	if cfg.Ollama.URL != "http://localhost:11434" {
		t.Errorf("ollama url = %s", cfg.Ollama.URL)
	}
}

func TestLoadFromPathOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `prompt:
  min_length: 10
  max_length: 500
pipeline:
  max_data_sources: 4
  dispatch_policy: round_robin
  validate_enabled: false
timeouts:
  step: 30s
audit:
  enabled: false
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Prompt.MinLength != 10 || cfg.Prompt.MaxLength != 500 {
		t.Errorf("prompt limits = %d/%d", cfg.Prompt.MinLength, cfg.Prompt.MaxLength)
	}
	if cfg.Pipeline.MaxDataSources != 4 {
		t.Errorf("maxDataSources = %d", cfg.Pipeline.MaxDataSources)
	}
	if cfg.Pipeline.DispatchPolicy != "round_robin" {
		t.Errorf("dispatchPolicy = %s", cfg.Pipeline.DispatchPolicy)
	}
	if cfg.Pipeline.ValidateEnabled {
		t.Error("validate still enabled")
	}
	if cfg.Timeouts.Step != 30*time.Second {
		t.Errorf("step = %v", cfg.Timeouts.Step)
	}
	if cfg.Audit.Enabled {
		t.Error("audit still enabled")
	}
}

func TestAPIKeyExpansion(t *testing.T) {
	t.Setenv("MOSAIC_TEST_KEY", "sk-from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("anthropic:\n  api_key: ${MOSAIC_TEST_KEY}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Anthropic.APIKey != "sk-from-env" {
		t.Errorf("api key = %q", cfg.Anthropic.APIKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("want error for missing file")
	}
}
