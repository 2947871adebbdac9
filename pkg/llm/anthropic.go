package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicClient uses the Anthropic messages API.
type AnthropicClient struct {
	client    *anthropic.Client
	endpoint  string
	model     string
	maxTokens int
	logger    *zap.Logger
}

// NewAnthropicClient creates a client. Endpoint is optional.
func NewAnthropicClient(cfg *Config, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	var opts []anthropic.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.Endpoint))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(cfg.APIKey, opts...),
		endpoint:  cfg.Endpoint,
		model:     cfg.Model,
		maxTokens: maxTokens,
		logger:    logger.Named("llm-anthropic"),
	}, nil
}

func (c *AnthropicClient) GenerateResponse(
	ctx context.Context,
	prompt string,
	systemMessage string,
	temperature float64,
) (*GenerateResponseResult, error) {
	temp := float32(temperature)
	start := time.Now()

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		System:      systemMessage,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, c.parseError(err, &resp)
	}

	content := extractText(resp)
	if content == "" {
		return nil, NewError(ErrorTypeResponse, "no text content in response", false, nil)
	}

	c.logger.Info("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.InputTokens),
		zap.Int("completion_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &GenerateResponseResult{
		Content:          content,
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		Truncated:        resp.StopReason == anthropic.MessagesStopReasonMaxTokens,
	}, nil
}

func (c *AnthropicClient) GetModel() string {
	return c.model
}

func (c *AnthropicClient) GetEndpoint() string {
	if c.endpoint == "" {
		return "https://api.anthropic.com/v1"
	}
	return c.endpoint
}

// parseError classifies a failed call. go-anthropic keeps the response
// headers on failure, so a rate-limited reply carries its retry-after hint.
func (c *AnthropicClient) parseError(err error, resp *anthropic.MessagesResponse) error {
	var llmErr *Error
	var apiErr *anthropic.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.IsRateLimitErr():
		llmErr = NewError(ErrorTypeRateLimited, "rate limited", true, err)
		llmErr.StatusCode = 429
	case errors.As(err, &apiErr) && apiErr.IsOverloadedErr():
		llmErr = NewError(ErrorTypeEndpoint, "overloaded", true, err)
		llmErr.StatusCode = 529
	default:
		llmErr = ClassifyError(err)
	}
	llmErr.Model = c.model
	llmErr.Endpoint = c.GetEndpoint()
	if llmErr.Type == ErrorTypeRateLimited && resp != nil {
		// Only the token headers are mandatory; their absence does not affect RetryAfter.
		headers, _ := resp.GetRateLimitHeaders()
		if headers.RetryAfter > 0 {
			llmErr.RetryAfter = time.Duration(headers.RetryAfter) * time.Second
		}
	}
	return llmErr
}

func extractText(resp anthropic.MessagesResponse) string {
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			return *block.Text
		}
	}
	return ""
}
