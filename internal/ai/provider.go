package ai

import (
	"context"
	"fmt"
	"strings"
)

// ProviderConfig selects and configures an LLM backend.
type ProviderConfig struct {
	Provider        string // "deepseek" or "gemini"
	GeminiKey       string
	DeepSeekKey     string
	DeepSeekBaseURL string
	Model           string
}

// NewProvider builds the configured provider. The returned close func is
// never nil.
func NewProvider(ctx context.Context, cfg ProviderConfig) (LLMProvider, func(), error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "deepseek", "openai":
		if cfg.DeepSeekKey == "" {
			return nil, func() {}, fmt.Errorf("deepseek provider: DEEPSEEK_API_KEY not set")
		}
		return NewChatCompletionsProvider(cfg.DeepSeekBaseURL, cfg.DeepSeekKey, cfg.Model), func() {}, nil
	case "gemini":
		p, err := NewGeminiProvider(ctx, cfg.GeminiKey, cfg.Model)
		if err != nil {
			return nil, func() {}, err
		}
		return p, p.Close, nil
	}
	return nil, func() {}, fmt.Errorf("unknown ai provider %q", cfg.Provider)
}
