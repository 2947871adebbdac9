package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Vvil1568/lct-hackathone/pkg/apperrors"
	"github.com/Vvil1568/lct-hackathone/pkg/llm"
	"github.com/Vvil1568/lct-hackathone/pkg/models"
	"github.com/Vvil1568/lct-hackathone/pkg/prompts"
	"github.com/Vvil1568/lct-hackathone/pkg/sqlast"
)

// scriptedValidator returns the queued verdicts in order, then OK.
type scriptedValidator struct {
	mu       sync.Mutex
	verdicts []ValidationResult
	calls    int
}

func (v *scriptedValidator) Validate(_ context.Context, _ *models.RemediationCandidate) ValidationResult {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if len(v.verdicts) == 0 {
		return ValidationResult{OK: true}
	}
	next := v.verdicts[0]
	v.verdicts = v.verdicts[1:]
	return next
}

func fullCandidate() *models.RemediationCandidate {
	return &models.RemediationCandidate{
		DDL:        []models.Statement{{Statement: "CREATE TABLE c.optimized.t (a int)"}},
		Migrations: []models.Statement{{Statement: "INSERT INTO c.optimized.t SELECT a FROM c.s.src"}},
		Queries:    []models.RewrittenQuery{{QueryID: "1", Query: "SELECT a FROM c.optimized.t"}},
	}
}

func newTestLoop(oracle llm.Oracle, v CandidateValidator) *CorrectionLoop {
	return NewCorrectionLoop(oracle, v, prompts.NewComposer(nil, "", 0),
		LoopConfig{MaxCorrections: 2, AttemptBackoff: time.Millisecond}, zap.NewNop())
}

func states(transitions []models.LoopTransition) []string {
	out := make([]string, len(transitions))
	for i, tr := range transitions {
		out[i] = tr.To
	}
	return out
}

func TestCorrectionLoop_TwoCorrectivePrompts(t *testing.T) {
	oracle := &llm.MockOracle{CompleteFunc: func(context.Context, string) (*models.RemediationCandidate, error) {
		return fullCandidate(), nil
	}}
	validator := &scriptedValidator{verdicts: []ValidationResult{
		{Error: "Column 'x' cannot be resolved", FailingSQL: "WITH bad1 SELECT x"},
		{Error: "Table 'c.s.nope' does not exist", FailingSQL: "WITH bad2 SELECT y"},
	}}

	result, err := newTestLoop(oracle, validator).Run(context.Background(), "ORIGINAL PROMPT")

	require.NoError(t, err)
	require.NotNil(t, result.Candidate)
	assert.Equal(t, 3, result.Attempts)

	sent := oracle.Prompts()
	require.Len(t, sent, 3)
	assert.Equal(t, "ORIGINAL PROMPT", sent[0])
	for i, want := range []struct{ sql, msg string }{
		{"WITH bad1 SELECT x", "Column 'x' cannot be resolved"},
		{"WITH bad2 SELECT y", "Table 'c.s.nope' does not exist"},
	} {
		corrective := sent[i+1]
		assert.Contains(t, corrective, "ORIGINAL PROMPT")
		assert.Contains(t, corrective, want.sql)
		assert.Contains(t, corrective, want.msg)
	}
	assert.NotContains(t, sent[2], "WITH bad1", "each corrective prompt embeds the original, not the previous corrective")

	assert.Equal(t, []string{
		"AwaitingOracle", "Validating", "Drafting",
		"AwaitingOracle", "Validating", "Drafting",
		"AwaitingOracle", "Validating", "Done",
	}, states(result.Transitions))
}

func TestCorrectionLoop_Exhaustion(t *testing.T) {
	oracle := &llm.MockOracle{CompleteFunc: func(context.Context, string) (*models.RemediationCandidate, error) {
		return fullCandidate(), nil
	}}
	bad := ValidationResult{Error: "syntax error", FailingSQL: "SELECT"}
	validator := &scriptedValidator{verdicts: []ValidationResult{bad, bad, bad}}

	result, err := newTestLoop(oracle, validator).Run(context.Background(), "P")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNoRemediation))
	assert.Contains(t, err.Error(), "syntax error")
	assert.Nil(t, result.Candidate)
	assert.Len(t, oracle.Prompts(), 3)
	assert.Equal(t, 3, validator.calls)
	last := result.Transitions[len(result.Transitions)-1]
	assert.Equal(t, "Failed", last.To)
}

func TestCorrectionLoop_OracleErrorConsumesAttempt(t *testing.T) {
	calls := 0
	oracle := &llm.MockOracle{CompleteFunc: func(context.Context, string) (*models.RemediationCandidate, error) {
		calls++
		if calls == 1 {
			return nil, llm.NewError(llm.ErrorTypeResponse, "malformed JSON", false, nil)
		}
		return fullCandidate(), nil
	}}

	result, err := newTestLoop(oracle, &scriptedValidator{}).Run(context.Background(), "P")

	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, []string{"P", "P"}, oracle.Prompts(), "an oracle failure retries the same prompt")
	assert.Contains(t, result.Transitions[1].Error, "malformed JSON")
}

func TestCorrectionLoop_OracleErrorOnFinalAttempt(t *testing.T) {
	cause := errors.New("connection reset by peer")
	oracle := &llm.MockOracle{CompleteFunc: func(context.Context, string) (*models.RemediationCandidate, error) {
		return nil, cause
	}}

	result, err := newTestLoop(oracle, &scriptedValidator{}).Run(context.Background(), "P")

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.False(t, errors.Is(err, apperrors.ErrNoRemediation))
	assert.Equal(t, 3, result.Attempts)
	assert.Len(t, oracle.Prompts(), 3)
}

func TestCorrectionLoop_TransientValidationReusesPrompt(t *testing.T) {
	oracle := &llm.MockOracle{CompleteFunc: func(context.Context, string) (*models.RemediationCandidate, error) {
		return fullCandidate(), nil
	}}
	validator := &scriptedValidator{verdicts: []ValidationResult{
		{Error: "i/o timeout", FailingSQL: "WITH x SELECT 1", Transient: true},
	}}

	result, err := newTestLoop(oracle, validator).Run(context.Background(), "P")

	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, []string{"P", "P"}, oracle.Prompts())
}

func TestCorrectionLoop_IncompleteCandidateAccepted(t *testing.T) {
	engineFree := NewValidationSimulator(nil, nil, sqlast.Normalizer{}, nil, 0, zap.NewNop())
	oracle := &llm.MockOracle{CompleteFunc: func(context.Context, string) (*models.RemediationCandidate, error) {
		return &models.RemediationCandidate{DDL: []models.Statement{{Statement: "CREATE TABLE t (a int)"}}}, nil
	}}

	result, err := newTestLoop(oracle, engineFree).Run(context.Background(), "P")

	require.NoError(t, err)
	assert.Equal(t, 1, result.Attempts)
	assert.True(t, result.Candidate.Incomplete())
}

func TestCorrectionLoop_CancelStopsNextAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	oracle := &llm.MockOracle{CompleteFunc: func(callCtx context.Context, _ string) (*models.RemediationCandidate, error) {
		cancel()
		assert.NoError(t, callCtx.Err(), "in-flight call is not cancelled")
		return fullCandidate(), nil
	}}
	validator := &scriptedValidator{verdicts: []ValidationResult{{Error: "bad", FailingSQL: "SELECT"}}}

	result, err := newTestLoop(oracle, validator).Run(ctx, "P")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, oracle.Prompts(), 1)
	assert.Equal(t, 1, result.Attempts)
}

func TestCorrectionLoop_ZeroCorrections(t *testing.T) {
	oracle := &llm.MockOracle{CompleteFunc: func(context.Context, string) (*models.RemediationCandidate, error) {
		return fullCandidate(), nil
	}}
	validator := &scriptedValidator{verdicts: []ValidationResult{{Error: "bad", FailingSQL: "SELECT"}}}
	loop := NewCorrectionLoop(oracle, validator, prompts.NewComposer(nil, "", 0), LoopConfig{}, zap.NewNop())

	_, err := loop.Run(context.Background(), "P")

	assert.ErrorIs(t, err, apperrors.ErrNoRemediation)
	assert.Len(t, oracle.Prompts(), 1)
}
