// Package ai selects and wraps the configured generative provider.
package ai

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/platewise/v1/internal/infrastructure/ai/ollama"
	"github.com/platewise/v1/internal/infrastructure/ai/openai"
)

// Config selects the primary provider and carries connection settings for
// both.
type Config struct {
	Provider       string // "ollama" or "openai"
	OpenAIKey      string
	OpenAIBaseURL  string
	OpenAIModel    string
	OllamaBaseURL  string
	OllamaModel    string
	EmbeddingModel string
	Timeout        time.Duration
	Temperature    float64
	MaxTokens      int
}

// backend is the slice of both ports a concrete client satisfies.
type backend interface {
	Generate(ctx context.Context, system, user string) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Provider routes generation and embedding calls to the configured primary
// backend and falls through to the secondary when the primary fails. The
// planner above still treats any error here as a degradation, never a
// request failure.
type Provider struct {
	provider  string
	primary   backend
	secondary backend
	logger    *zap.Logger
}

// NewProvider creates clients for both supported backends and picks the
// primary by configuration.
func NewProvider(cfg Config, logger *zap.Logger) *Provider {
	namedLogger := logger.Named("ai-provider")

	ollamaClient := ollama.NewClient(ollama.Config{
		BaseURL:        cfg.OllamaBaseURL,
		ChatModel:      cfg.OllamaModel,
		EmbeddingModel: cfg.EmbeddingModel,
		Timeout:        cfg.Timeout,
	}, namedLogger)
	openaiClient := openai.NewClient(openai.Config{
		APIKey:         cfg.OpenAIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		ChatModel:      cfg.OpenAIModel,
		EmbeddingModel: cfg.EmbeddingModel,
		Timeout:        cfg.Timeout,
		Temperature:    cfg.Temperature,
		MaxTokens:      cfg.MaxTokens,
	}, namedLogger)

	provider := cfg.Provider
	var primary, secondary backend
	switch provider {
	case "openai":
		primary, secondary = openaiClient, ollamaClient
	case "ollama", "":
		provider = "ollama"
		primary, secondary = ollamaClient, openaiClient
	default:
		namedLogger.Warn("Unknown AI provider, defaulting to Ollama", zap.String("provider", provider))
		provider = "ollama"
		primary, secondary = ollamaClient, openaiClient
	}

	namedLogger.Info("AI provider initialized", zap.String("primary_provider", provider))
	return &Provider{
		provider:  provider,
		primary:   primary,
		secondary: secondary,
		logger:    namedLogger,
	}
}

// Generate tries the primary backend, then the secondary.
func (p *Provider) Generate(ctx context.Context, system, user string) (string, error) {
	raw, err := p.primary.Generate(ctx, system, user)
	if err == nil {
		return raw, nil
	}
	p.logger.Warn("Primary AI provider failed, trying fallback",
		zap.String("primary_provider", p.provider),
		zap.Error(err),
	)
	return p.secondary.Generate(ctx, system, user)
}

// Embed uses the primary backend only: mixing embedding models across
// providers would make vectors incomparable with the ingested corpus.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.primary.Embed(ctx, text)
}
