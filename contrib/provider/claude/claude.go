// Package claude serves the Anthropic Messages API as an llm.LLM.
package claude

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sweetpotato0/remote-llm/contrib/provider"
	"github.com/sweetpotato0/remote-llm/llm"
)

// LLMType is reported by Type.
const LLMType = "claude-messages"

// DefaultModel is used when the config names none.
const DefaultModel = "claude-sonnet-4-5-20250929"

// defaultMaxTokens is sent when the config leaves MaxTokens at zero; the
// Messages API requires one.
const defaultMaxTokens = 4096

// DefaultConfig returns default Claude configuration
func DefaultConfig(apiKey, baseURL string) provider.Config {
	return provider.Config{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Model:       DefaultModel,
		MaxTokens:   defaultMaxTokens,
		Temperature: 0.7,
		Candidates:  1,
	}
}

// Provider sends each prompt as a single user turn. The Messages API returns
// one answer per request, so extra candidates cost one request each.
type Provider struct {
	config provider.Config
	client anthropic.Client
}

var _ llm.AsyncLLM = (*Provider)(nil)

// New creates a new Claude provider using official SDK
func New(config provider.Config, opts ...option.RequestOption) *Provider {
	config = config.Normalize(DefaultModel)
	if config.MaxTokens <= 0 {
		config.MaxTokens = defaultMaxTokens
	}

	options := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithAuthToken(""),
	}
	if config.BaseURL != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}
	options = append(options, opts...)

	return &Provider{
		config: config,
		client: anthropic.NewClient(options...),
	}
}

// Generate completes the prompts one after another.
func (p *Provider) Generate(ctx context.Context, prompts []string, stop []string) (*llm.Result, error) {
	return provider.Sequential(ctx, prompts, stop, p.complete)
}

// GenerateAsync completes the prompts concurrently.
func (p *Provider) GenerateAsync(ctx context.Context, prompts []string, stop []string) *llm.Future {
	return provider.Concurrent(ctx, prompts, stop, p.config.Concurrency, p.complete)
}

// Type implements llm.LLM.
func (p *Provider) Type() string {
	return LLMType
}

// Save writes the provider parameters to path.
func (p *Provider) Save(path string) error {
	return llm.Save(path, p.config.Params(LLMType))
}

func (p *Provider) params(prompt string, stop []string) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		MaxTokens: p.config.MaxTokens,
	}
	if p.config.Temperature > 0 {
		params.Temperature = anthropic.Float(p.config.Temperature)
	}
	if len(stop) > 0 {
		params.StopSequences = stop
	}
	return params
}

func (p *Provider) complete(ctx context.Context, prompt string, stop []string) (llm.Batch, error) {
	batch := make(llm.Batch, 0, p.config.Candidates)
	for i := 0; i < p.config.Candidates; i++ {
		msg, err := p.client.Messages.New(ctx, p.params(prompt, stop))
		if err != nil {
			return nil, fmt.Errorf("Claude API error: %w", err)
		}

		var text strings.Builder
		for _, block := range msg.Content {
			if block.Type == "text" {
				text.WriteString(block.Text)
			}
		}
		g, err := provider.Text(text.String(), stop, map[string]any{
			"stop_reason":   string(msg.StopReason),
			"stop_sequence": msg.StopSequence,
			"model":         string(msg.Model),
			"input_tokens":  msg.Usage.InputTokens,
			"output_tokens": msg.Usage.OutputTokens,
		})
		if err != nil {
			return nil, err
		}
		batch = append(batch, g)
	}
	return batch, nil
}
