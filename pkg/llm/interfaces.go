// Package llm talks to the text-generation oracle that proposes remediations.
package llm

import (
	"context"

	"github.com/Vvil1568/lct-hackathone/pkg/models"
)

// GenerateResponseResult is one chat completion with token usage.
type GenerateResponseResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int

	// Truncated is set when generation stopped at the token limit.
	Truncated bool
}

// LLMClient is a single-turn chat completion provider.
// Use this interface for dependency injection to enable mocking in tests.
type LLMClient interface {
	// GenerateResponse sends prompt with an optional system message.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// Oracle turns a task prompt into a remediation candidate.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (*models.RemediationCandidate, error)
}

var (
	_ LLMClient = (*Client)(nil)
	_ LLMClient = (*AnthropicClient)(nil)
	_ Oracle    = (*RemediationOracle)(nil)
)
