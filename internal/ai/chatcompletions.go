package ai

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultDeepSeekBaseURL = "https://api.deepseek.com"
	defaultDeepSeekModel   = "deepseek-chat"
)

// ChatCompletionsProvider talks to any OpenAI-compatible chat completions
// endpoint, DeepSeek by default.
type ChatCompletionsProvider struct {
	client *openai.Client
	apiKey string
	model  string
}

// NewChatCompletionsProvider builds a provider. baseURL is the API host
// without the /v1 suffix; empty baseURL and model fall back to DeepSeek's.
func NewChatCompletionsProvider(baseURL, apiKey, model string) *ChatCompletionsProvider {
	if baseURL == "" {
		baseURL = DefaultDeepSeekBaseURL
	}
	if model == "" {
		model = defaultDeepSeekModel
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/") + "/v1"
	cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	return &ChatCompletionsProvider{
		client: openai.NewClientWithConfig(cfg),
		apiKey: apiKey,
		model:  model,
	}
}

// Complete implements LLMProvider.
func (p *ChatCompletionsProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if strings.TrimSpace(p.apiKey) == "" {
		return "", fmt.Errorf("chat completions: missing api key")
	}
	var msgs []openai.ChatCompletionMessage
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	if req.Prompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})
	}

	// A zero temperature is dropped from the request body by the client, which
	// leaves the server default in place.
	temp := req.Temperature
	if temp <= 0 {
		temp = math.SmallestNonzeroFloat32
	}
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    msgs,
		MaxTokens:   int(req.MaxTokens),
		Temperature: temp,
		TopP:        1.0,
	})
	if err != nil {
		return "", fmt.Errorf("chat completions: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyReply
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
