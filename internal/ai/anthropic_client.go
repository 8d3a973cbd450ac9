package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

const defaultAnthropicMaxTokens = 1024

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	client  *anthropic.Client
	baseURL string
	retry   RetryPolicy
	logger  *zap.Logger
}

func NewAnthropicClient(cfg RuntimeConfig) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	opts := []anthropic.ClientOption{
		anthropic.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")))
	}
	return &AnthropicClient{
		client:  anthropic.NewClient(cfg.APIKey, opts...),
		baseURL: cfg.BaseURL,
		retry:   cfg.retry(),
		logger:  cfg.logger().Named(ProviderAnthropic),
	}, nil
}

func (c *AnthropicClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	system := req.System
	msgs := make([]anthropic.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		text := m.Content
		switch m.Role {
		case RoleSystem:
			// The Messages API takes system text out of band.
			if system != "" {
				system += "\n\n"
			}
			system += text
			continue
		case RoleAssistant:
			msgs = append(msgs, anthropic.Message{Role: anthropic.RoleAssistant, Content: []anthropic.MessageContent{{Type: "text", Text: &text}}})
		default:
			msgs = append(msgs, anthropic.Message{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{{Type: "text", Text: &text}}})
		}
	}
	if req.JSON {
		system = strings.TrimSpace(system + "\n\nRespond with a single JSON object and nothing else.")
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	mr := anthropic.MessagesRequest{
		Model:     anthropic.Model(req.Model),
		System:    system,
		MaxTokens: maxTokens,
		Messages:  msgs,
	}
	if req.Temperature > 0 {
		t := float32(req.Temperature)
		mr.Temperature = &t
	}

	start := time.Now()
	var resp anthropic.MessagesResponse
	err := c.retry.Do(ctx, c.logger, func(ctx context.Context) error {
		r, err := c.client.CreateMessages(ctx, mr)
		if err != nil {
			return classifyError(ProviderAnthropic, c.baseURL, err)
		}
		resp = r
		return nil
	})
	if err != nil {
		c.logger.Warn("LLM request failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return nil, err
	}
	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}
	c.logger.Debug("LLM request completed",
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))
	return &GenerateResponse{
		ID:   resp.ID,
		Text: text,
		Usage: Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

func extractText(resp anthropic.MessagesResponse) string {
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			return *block.Text
		}
	}
	return ""
}
