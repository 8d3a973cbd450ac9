package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint
// (OpenAI, OpenRouter, Ollama's /v1 surface).
type OpenAIClient struct {
	client   *openai.Client
	provider string
	baseURL  string
	retry    RetryPolicy
	logger   *zap.Logger
}

// NewOpenAIClient builds a client for an OpenAI-compatible provider.
func NewOpenAIClient(provider string, cfg RuntimeConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" && provider != ProviderOllama {
		return nil, ErrMissingAPIKey
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.HTTPTimeout}
	return &OpenAIClient{
		client:   openai.NewClientWithConfig(clientConfig),
		provider: provider,
		baseURL:  clientConfig.BaseURL,
		retry:    cfg.retry(),
		logger:   cfg.logger().Named(provider),
	}, nil
}

// NewOllamaClient targets the OpenAI-compatible API of a local Ollama host
// (e.g., http://127.0.0.1:11434).
func NewOllamaClient(cfg RuntimeConfig) (*OpenAIClient, error) {
	host := strings.TrimSuffix(cfg.Host, "/")
	if host == "" {
		host = "http://127.0.0.1:11434"
	}
	cfg.BaseURL = host + "/v1"
	if cfg.APIKey == "" {
		cfg.APIKey = "ollama"
	}
	return NewOpenAIClient(ProviderOllama, cfg)
}

func (c *OpenAIClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	ccr := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}
	if req.JSON {
		ccr.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	c.logger.Debug("LLM request",
		zap.String("model", req.Model),
		zap.Int("messages", len(messages)),
		zap.Bool("json", req.JSON))
	start := time.Now()

	var resp openai.ChatCompletionResponse
	err := c.retry.Do(ctx, c.logger, func(ctx context.Context) error {
		r, err := c.client.CreateChatCompletion(ctx, ccr)
		if err != nil {
			return classifyError(c.provider, c.baseURL, err)
		}
		resp = r
		return nil
	})
	if err != nil {
		c.logger.Warn("LLM request failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return nil, err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyResponse
	}

	c.logger.Debug("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &GenerateResponse{
		ID:   resp.ID,
		Text: resp.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
