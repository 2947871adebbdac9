package llm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Vvil1568/lct-hackathone/pkg/apperrors"
)

// Provider names accepted in configuration.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ProviderConfig selects and configures an oracle provider.
type ProviderConfig struct {
	Provider  string // openai (default, also vLLM and other compatible servers) or anthropic
	BaseURL   string
	Model     string
	APIKey    string
	MaxTokens int
}

// NewClientFromProvider creates the LLMClient for cfg.Provider.
func NewClientFromProvider(cfg ProviderConfig, logger *zap.Logger) (LLMClient, error) {
	clientCfg := &Config{
		Endpoint:  cfg.BaseURL,
		Model:     cfg.Model,
		APIKey:    cfg.APIKey,
		MaxTokens: cfg.MaxTokens,
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI, "vllm":
		client, err := NewClient(clientCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("%w: openai client: %v", apperrors.ErrConfiguration, err)
		}
		return client, nil
	case ProviderAnthropic:
		client, err := NewAnthropicClient(clientCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("%w: anthropic client: %v", apperrors.ErrConfiguration, err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", apperrors.ErrConfiguration, cfg.Provider)
	}
}
