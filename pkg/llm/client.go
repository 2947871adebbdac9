package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Client is an oracle transport for OpenAI-compatible chat endpoints
// (OpenAI, vLLM, llama.cpp server, Ollama).
type Client struct {
	client    *openai.Client
	endpoint  string
	model     string
	maxTokens int
	logger    *zap.Logger
}

// Config holds configuration for creating an LLM client.
type Config struct {
	Endpoint  string // Base URL, e.g., "https://api.openai.com/v1"
	Model     string // Model name, e.g., "gpt-4o"
	APIKey    string // Optional for local endpoints
	MaxTokens int    // 0 leaves the provider default
}

// NewClient creates a new OpenAI-compatible LLM client.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	endpoint := strings.TrimSuffix(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens must not be negative")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = endpoint

	return &Client{
		client:    openai.NewClientWithConfig(clientConfig),
		endpoint:  endpoint,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger.Named("llm"),
	}, nil
}

// GenerateResponse generates a chat completion response with usage stats.
func (c *Client) GenerateResponse(
	ctx context.Context,
	prompt string,
	systemMessage string,
	temperature float64,
) (*GenerateResponseResult, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMessages(systemMessage, prompt),
		Temperature: float32(temperature),
		MaxTokens:   c.maxTokens,
	}

	c.logger.Debug("Oracle request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)),
		zap.Int("max_tokens", c.maxTokens),
		zap.Float64("temperature", temperature))

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Error("Oracle request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, c.parseError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, NewError(ErrorTypeResponse, "no choices in response", false, nil)
	}

	choice := resp.Choices[0]
	truncated := choice.FinishReason == openai.FinishReasonLength

	c.logger.Info("Oracle request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.String("finish_reason", string(choice.FinishReason)),
		zap.Duration("elapsed", time.Since(start)))

	return &GenerateResponseResult{
		Content:          choice.Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		Truncated:        truncated,
	}, nil
}

// chatMessages builds a single-turn conversation; an empty system message is omitted.
func chatMessages(systemMessage, prompt string) []openai.ChatCompletionMessage {
	if systemMessage == "" {
		return []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}}
	}
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}
}

func (c *Client) GetModel() string {
	return c.model
}

func (c *Client) GetEndpoint() string {
	return c.endpoint
}

// parseError classifies go-openai errors, preferring the structured status code.
func (c *Client) parseError(err error) error {
	llmErr := ClassifyError(err)
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		llmErr = classifyStatus(apiErr.HTTPStatusCode, err)
	}
	llmErr.Model = c.model
	llmErr.Endpoint = c.endpoint
	return llmErr
}
