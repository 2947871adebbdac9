package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Vvil1568/lct-hackathone/pkg/models"
	"github.com/Vvil1568/lct-hackathone/pkg/retry"
)

const remediationSystemMessage = "You are a lead data architect optimizing a data lakehouse. " +
	"Reply with exactly one JSON object and nothing else."

// OracleConfig tunes a RemediationOracle.
type OracleConfig struct {
	Temperature      float64
	RequestTimeout   time.Duration // per provider call
	RateLimitDelay   time.Duration // first back-off after a 429
	RateLimitRetries int
}

// DefaultOracleConfig returns the defaults used when config omits a value.
func DefaultOracleConfig() OracleConfig {
	return OracleConfig{
		Temperature:      0.2,
		RequestTimeout:   5 * time.Minute,
		RateLimitDelay:   5 * time.Second,
		RateLimitRetries: 3,
	}
}

// RemediationOracle asks an LLMClient for a RemediationCandidate.
// Rate-limited calls are retried with exponential back-off; anything else is returned.
type RemediationOracle struct {
	client    LLMClient
	config    OracleConfig
	rateLimit *retry.Config
	logger    *zap.Logger
}

func NewRemediationOracle(client LLMClient, cfg OracleConfig, logger *zap.Logger) *RemediationOracle {
	defaults := DefaultOracleConfig()
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.RateLimitDelay <= 0 {
		cfg.RateLimitDelay = defaults.RateLimitDelay
	}
	if cfg.RateLimitRetries < 0 {
		cfg.RateLimitRetries = 0
	}
	return &RemediationOracle{
		client:    client,
		config:    cfg,
		rateLimit: retry.RateLimitConfig(cfg.RateLimitDelay, cfg.RateLimitRetries),
		logger:    logger.Named("oracle"),
	}
}

// Complete sends prompt and parses the reply. A reply without a usable JSON
// object is an *Error of type ErrorTypeResponse.
func (o *RemediationOracle) Complete(ctx context.Context, prompt string) (*models.RemediationCandidate, error) {
	for attempt := 0; ; attempt++ {
		c := o.call(ctx, prompt)

		switch c.Status {
		case CompletionSuccess:
			return o.parse(c)

		case CompletionRateLimited:
			if attempt >= o.rateLimit.MaxRetries {
				return nil, fmt.Errorf("rate limited after %d retries: %w", attempt, c.Err)
			}
			wait := retry.Backoff(o.rateLimit, attempt)
			if c.RetryAfter > wait {
				wait = c.RetryAfter
			}
			o.logger.Warn("Oracle rate limited, backing off",
				zap.Int("retry", attempt+1),
				zap.Duration("wait", wait),
				zap.String("model", o.client.GetModel()))
			if err := retry.Sleep(ctx, wait); err != nil {
				return nil, fmt.Errorf("rate limit back-off interrupted: %w", err)
			}

		default:
			return nil, c.Err
		}
	}
}

func (o *RemediationOracle) call(ctx context.Context, prompt string) Completion {
	callCtx, cancel := context.WithTimeout(ctx, o.config.RequestTimeout)
	defer cancel()
	return NewCompletion(o.client.GenerateResponse(callCtx, prompt, remediationSystemMessage, o.config.Temperature))
}

func (o *RemediationOracle) parse(c Completion) (*models.RemediationCandidate, error) {
	candidate, err := ParseJSONResponse[models.RemediationCandidate](c.Content)
	if err != nil {
		o.logger.Debug("Oracle reply is not a remediation object",
			zap.Int("content_len", len(c.Content)),
			zap.Bool("truncated", c.Truncated),
			zap.Error(err))
		if c.Truncated {
			return nil, NewError(ErrorTypeResponse, "reply truncated at the token limit", false, err)
		}
		return nil, NewError(ErrorTypeResponse, "malformed remediation", false, err)
	}
	return &candidate, nil
}
