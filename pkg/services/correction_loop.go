package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Vvil1568/lct-hackathone/pkg/apperrors"
	"github.com/Vvil1568/lct-hackathone/pkg/llm"
	"github.com/Vvil1568/lct-hackathone/pkg/logging"
	"github.com/Vvil1568/lct-hackathone/pkg/models"
	"github.com/Vvil1568/lct-hackathone/pkg/retry"
)

// LoopState is a state of the correction loop.
type LoopState string

const (
	StateDrafting       LoopState = "Drafting"
	StateAwaitingOracle LoopState = "AwaitingOracle"
	StateValidating     LoopState = "Validating"
	StateDone           LoopState = "Done"
	StateFailed         LoopState = "Failed"
)

const (
	DefaultMaxCorrections = 2
	DefaultAttemptBackoff = 2 * time.Second
)

// CandidateValidator decides whether a candidate is acceptable.
type CandidateValidator interface {
	Validate(ctx context.Context, c *models.RemediationCandidate) ValidationResult
}

// CorrectivePrompter builds the re-prompt after a failed validation.
type CorrectivePrompter interface {
	Corrective(original, failingSQL, errorMessage string) string
}

// LoopConfig bounds the correction loop.
type LoopConfig struct {
	// MaxCorrections is the number of corrective attempts after the first.
	MaxCorrections int
	// AttemptBackoff is the unit of the linear pause between attempts.
	AttemptBackoff time.Duration
}

// LoopResult is what the loop produced, including every state change.
type LoopResult struct {
	Candidate   *models.RemediationCandidate
	Attempts    int
	Transitions []models.LoopTransition
}

// CorrectionLoop drives oracle → validation → corrective prompt until a
// candidate validates or the attempt budget runs out.
type CorrectionLoop struct {
	oracle    llm.Oracle
	validator CandidateValidator
	prompter  CorrectivePrompter
	config    LoopConfig
	logger    *zap.Logger
}

func NewCorrectionLoop(
	oracle llm.Oracle,
	validator CandidateValidator,
	prompter CorrectivePrompter,
	config LoopConfig,
	logger *zap.Logger,
) *CorrectionLoop {
	if config.MaxCorrections < 0 {
		config.MaxCorrections = 0
	}
	return &CorrectionLoop{
		oracle:    oracle,
		validator: validator,
		prompter:  prompter,
		config:    config,
		logger:    logger.Named("correction-loop"),
	}
}

type loopRun struct {
	result *LoopResult
	state  LoopState
}

func (r *loopRun) move(attempt int, to LoopState, errMsg, failingSQL string) {
	r.result.Transitions = append(r.result.Transitions, models.LoopTransition{
		Attempt:    attempt,
		From:       string(r.state),
		To:         string(to),
		Error:      errMsg,
		FailingSQL: failingSQL,
	})
	r.state = to
}

// Run executes the loop starting from prompt. The returned result is never
// nil. Cancelling ctx stops the loop before its next attempt; calls already
// in flight finish under their own timeouts.
func (l *CorrectionLoop) Run(ctx context.Context, prompt string) (*LoopResult, error) {
	run := &loopRun{result: &LoopResult{}, state: StateDrafting}
	maxAttempts := 1 + l.config.MaxCorrections
	current := prompt
	lastError := ""

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			// Sleep returns early only when ctx is done; the check below covers that.
			_ = retry.Sleep(ctx, retry.LinearDelay(l.config.AttemptBackoff, attempt-1))
		}
		if err := ctx.Err(); err != nil {
			run.move(attempt, StateFailed, err.Error(), "")
			return run.result, fmt.Errorf("correction loop stopped before attempt %d: %w", attempt, err)
		}

		run.result.Attempts = attempt
		run.move(attempt, StateAwaitingOracle, "", "")
		l.logger.Info("Requesting remediation",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts))

		candidate, err := l.oracle.Complete(context.WithoutCancel(ctx), current)
		if err != nil {
			if attempt == maxAttempts {
				run.move(attempt, StateFailed, err.Error(), "")
				return run.result, fmt.Errorf("oracle failed on final attempt: %w", err)
			}
			l.logger.Warn("Oracle call failed, attempt consumed",
				zap.Int("attempt", attempt),
				zap.String("error_type", string(llm.GetErrorType(err))),
				zap.String("error", logging.SanitizeError(err)))
			run.move(attempt, StateDrafting, err.Error(), "")
			lastError = err.Error()
			continue
		}

		run.move(attempt, StateValidating, "", "")
		verdict := l.validator.Validate(ctx, candidate)
		if verdict.OK {
			run.move(attempt, StateDone, "", "")
			run.result.Candidate = candidate
			l.logger.Info("Remediation validated", zap.Int("attempt", attempt))
			return run.result, nil
		}

		lastError = verdict.Error
		run.move(attempt, StateDrafting, verdict.Error, verdict.FailingSQL)
		if verdict.Transient {
			l.logger.Warn("Validation could not reach the planner, retrying with the same prompt",
				zap.Int("attempt", attempt),
				zap.String("error", verdict.Error))
			continue
		}

		l.logger.Info("Validation failed, building corrective prompt",
			zap.Int("attempt", attempt),
			zap.String("error", logging.TruncateString(verdict.Error, 200)),
			zap.String("sql", logging.SanitizeQuery(verdict.FailingSQL)))
		current = l.prompter.Corrective(prompt, verdict.FailingSQL, verdict.Error)
	}

	run.move(maxAttempts, StateFailed, lastError, "")
	if lastError == "" {
		return run.result, apperrors.ErrNoRemediation
	}
	return run.result, fmt.Errorf("%w after %d attempts: %s", apperrors.ErrNoRemediation, maxAttempts, lastError)
}
