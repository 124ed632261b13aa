package source

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/mosaic-agent/mosaic/pkg/models"
)

// AnthropicConfig configures an AnthropicSource.
type AnthropicConfig struct {
	// ID is the catalog identifier.
	ID string
	// Role is the source role (general, code, ...).
	Role string
	// Model is the Claude model to use. Empty selects a default.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY.
	APIKey string
	// UseAWSBedrock routes calls through AWS Bedrock instead of the API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g. "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name.
	AWSProfile string
	// MaxTokens caps the response length. Zero selects a default.
	MaxTokens int64
	// Confidence is the trust score attached to results. Zero means 0.85.
	Confidence float64
}

// AnthropicSource queries a Claude model through the Anthropic SDK,
// either directly or via AWS Bedrock.
type AnthropicSource struct {
	id         string
	role       string
	client     anthropic.Client
	model      anthropic.Model
	maxTokens  int64
	confidence float64
}

// NewAnthropic creates an Anthropic-backed source.
func NewAnthropic(cfg AnthropicConfig) (*AnthropicSource, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(context.Background(), loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	if cfg.UseAWSBedrock {
		model = translateModelForBedrock(model)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}
	confidence := cfg.Confidence
	if confidence == 0 {
		confidence = 0.85
	}

	return &AnthropicSource{
		id:         cfg.ID,
		role:       cfg.Role,
		client:     anthropic.NewClient(opts...),
		model:      model,
		maxTokens:  maxTokens,
		confidence: confidence,
	}, nil
}

// translateModelForBedrock converts standard model names to the Bedrock
// cross-region inference profile format.
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaude3_7Sonnet20250219:  "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}
	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}
	return model
}

// ID returns the catalog identifier.
func (s *AnthropicSource) ID() string { return s.id }

// Role returns the source role.
func (s *AnthropicSource) Role() string { return s.role }

// Query sends the refined prompt to the model and wraps the text
// response in a result record.
func (s *AnthropicSource) Query(ctx context.Context, refined *models.RefinedPrompt, _ map[string]any) (*models.SourceResult, error) {
	start := time.Now()
	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(refined.Refined)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic query: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}

	return collected(s.id, s.role, text, s.confidence, map[string]any{
		"model":         string(s.model),
		"input_tokens":  resp.Usage.InputTokens,
		"output_tokens": resp.Usage.OutputTokens,
		"latency_ms":    time.Since(start).Milliseconds(),
	}), nil
}
