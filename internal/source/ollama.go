package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mosaic-agent/mosaic/pkg/models"
)

// OllamaConfig configures an OllamaSource.
type OllamaConfig struct {
	// ID is the catalog identifier.
	ID string
	// Role is the source role.
	Role string
	// BaseURL is the Ollama server address. Empty means localhost:11434.
	BaseURL string
	// Model is the local model name (llama3, mistral, codegemma, ...).
	Model string
	// Timeout bounds a single generate call. Zero means 60s.
	Timeout time.Duration
	// Confidence is the trust score attached to results. Zero means 0.7.
	Confidence float64
}

// OllamaSource queries a local Ollama server for inference.
type OllamaSource struct {
	id         string
	role       string
	baseURL    string
	model      string
	confidence float64
	http       *http.Client
}

// NewOllama creates an Ollama-backed source.
func NewOllama(cfg OllamaConfig) *OllamaSource {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := cfg.Model
	if model == "" {
		model = "llama3"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	confidence := cfg.Confidence
	if confidence == 0 {
		confidence = 0.7
	}
	return &OllamaSource{
		id:         cfg.ID,
		role:       cfg.Role,
		baseURL:    baseURL,
		model:      model,
		confidence: confidence,
		http:       &http.Client{Timeout: timeout},
	}
}

// ID returns the catalog identifier.
func (s *OllamaSource) ID() string { return s.id }

// Role returns the source role.
func (s *OllamaSource) Role() string { return s.role }

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	EvalCount int64  `json:"eval_count"`
}

// Query runs a non-streaming generate call against the local server.
func (s *OllamaSource) Query(ctx context.Context, refined *models.RefinedPrompt, _ map[string]any) (*models.SourceResult, error) {
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  s.model,
		Prompt: refined.Refined,
		Stream: false,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama query: unexpected status %d", resp.StatusCode)
	}

	var out ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ollama response: %w", err)
	}

	return collected(s.id, s.role, out.Response, s.confidence, map[string]any{
		"model":      s.model,
		"eval_count": out.EvalCount,
		"latency_ms": time.Since(start).Milliseconds(),
	}), nil
}
