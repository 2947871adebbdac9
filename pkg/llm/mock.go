package llm

import (
	"context"
	"sync"

	"github.com/Vvil1568/lct-hackathone/pkg/models"
)

const (
	mockModel    = "mock-model"
	mockEndpoint = "http://mock-endpoint"
)

// MockLLMClient is an LLMClient for tests. GenerateResponseFunc wins when
// set; otherwise Replies are returned in order and the last one repeats.
type MockLLMClient struct {
	GenerateResponseFunc func(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)
	Replies              []string

	Model    string
	Endpoint string

	mu sync.Mutex
	// GenerateResponseCalls counts calls, including the one in progress.
	GenerateResponseCalls int
	prompts               []string
}

func NewMockLLMClient(replies ...string) *MockLLMClient {
	return &MockLLMClient{Model: mockModel, Endpoint: mockEndpoint, Replies: replies}
}

func (m *MockLLMClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error) {
	m.mu.Lock()
	m.GenerateResponseCalls++
	m.prompts = append(m.prompts, prompt)
	n := m.GenerateResponseCalls
	m.mu.Unlock()

	if m.GenerateResponseFunc != nil {
		return m.GenerateResponseFunc(ctx, prompt, systemMessage, temperature)
	}
	if len(m.Replies) == 0 {
		return &GenerateResponseResult{}, nil
	}
	return &GenerateResponseResult{Content: m.Replies[min(n, len(m.Replies))-1]}, nil
}

// Prompts returns every user prompt received, in order.
func (m *MockLLMClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

func (m *MockLLMClient) GetModel() string {
	if m.Model == "" {
		return mockModel
	}
	return m.Model
}

func (m *MockLLMClient) GetEndpoint() string {
	if m.Endpoint == "" {
		return mockEndpoint
	}
	return m.Endpoint
}

// MockOracle is an Oracle driven by a function. Prompts are recorded.
type MockOracle struct {
	CompleteFunc func(ctx context.Context, prompt string) (*models.RemediationCandidate, error)

	mu      sync.Mutex
	prompts []string
}

func (m *MockOracle) Complete(ctx context.Context, prompt string) (*models.RemediationCandidate, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}
	return &models.RemediationCandidate{}, nil
}

// Prompts returns every prompt received, in order.
func (m *MockOracle) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
