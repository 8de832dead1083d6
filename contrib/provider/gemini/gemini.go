// Package gemini serves Google Gemini models as an llm.LLM.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sweetpotato0/remote-llm/contrib/provider"
	"github.com/sweetpotato0/remote-llm/llm"
	"google.golang.org/api/option"
)

// LLMType is reported by Type.
const LLMType = "gemini"

// DefaultModel is used when the config names none.
const DefaultModel = "gemini-1.5-flash"

// DefaultConfig returns default Gemini configuration
func DefaultConfig(apiKey string) provider.Config {
	return provider.Config{
		APIKey:      apiKey,
		Model:       DefaultModel,
		MaxTokens:   2048,
		Temperature: 0.7,
		Candidates:  1,
	}
}

// Provider asks Gemini for Candidates answers per prompt in one request.
type Provider struct {
	config provider.Config
	client *genai.Client
}

var _ llm.AsyncLLM = (*Provider)(nil)

// New creates a Gemini provider. Close releases the client.
func New(ctx context.Context, config provider.Config, opts ...option.ClientOption) (*Provider, error) {
	config = config.Normalize(DefaultModel)

	options := []option.ClientOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		options = append(options, option.WithEndpoint(config.BaseURL))
	}
	options = append(options, opts...)

	client, err := genai.NewClient(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Provider{config: config, client: client}, nil
}

// Close releases the underlying client.
func (p *Provider) Close() error {
	return p.client.Close()
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

// model is built per call since stop sequences live on the model.
func (p *Provider) model(stop []string) *genai.GenerativeModel {
	m := p.client.GenerativeModel(p.config.Model)
	if p.config.Temperature > 0 {
		m.SetTemperature(float32(p.config.Temperature))
	}
	if p.config.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(p.config.MaxTokens))
	}
	m.SetCandidateCount(int32(p.config.Candidates))
	if len(stop) > 0 {
		m.StopSequences = stop
	}
	return m
}

func (p *Provider) complete(ctx context.Context, prompt string, stop []string) (llm.Batch, error) {
	resp, err := p.model(stop).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}
	return batchFromResponse(resp, stop)
}

func batchFromResponse(resp *genai.GenerateContentResponse, stop []string) (llm.Batch, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned from Gemini")
	}
	batch := make(llm.Batch, 0, len(resp.Candidates))
	for _, cand := range resp.Candidates {
		var text strings.Builder
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
		g, err := provider.Text(text.String(), stop, map[string]any{
			"finish_reason": cand.FinishReason.String(),
			"index":         cand.Index,
		})
		if err != nil {
			return nil, err
		}
		batch = append(batch, g)
	}
	return batch, nil
}
