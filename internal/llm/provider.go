package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	ProviderGemini = "gemini"
	ProviderFake   = "fake"
)

// Config selects and tunes the model client.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	Timeout  time.Duration
	Retries  int
	RPS      float64
	Burst    int
}

// New builds the configured client wrapped with hooks, logging, rate limiting,
// retries and a per-attempt timeout, outermost first.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Client, error) {
	var base Client
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini:
		g, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
		base = g
	case ProviderFake:
		base = NewFakeClient()
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	return Wrap(base,
		WithHooks(),
		WithLogging(logger),
		RateLimit(cfg.RPS, cfg.Burst),
		Retry(cfg.Retries+1, 0),
		WithTimeout(cfg.Timeout),
	), nil
}
