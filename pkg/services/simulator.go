package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Vvil1568/lct-hackathone/pkg/adapters/queryengine"
	"github.com/Vvil1568/lct-hackathone/pkg/logging"
	"github.com/Vvil1568/lct-hackathone/pkg/models"
	"github.com/Vvil1568/lct-hackathone/pkg/retry"
	"github.com/Vvil1568/lct-hackathone/pkg/sqlast"
)

// SimulatedTable is the CTE name standing in for the proposed table.
const SimulatedTable = "simulated_new_table"

// ValidationResult is the simulator's verdict on one candidate.
type ValidationResult struct {
	OK         bool
	Error      string
	FailingSQL string
	// Transient marks timeouts and connection problems, as opposed to the
	// planner rejecting the statement.
	Transient bool
}

func rejected(sql, format string, args ...any) ValidationResult {
	return ValidationResult{Error: fmt.Sprintf(format, args...), FailingSQL: sql}
}

// ValidationSimulator checks a candidate by planning its rewritten query
// against a CTE that fakes the proposed table. Nothing is created or written.
type ValidationSimulator struct {
	planner    queryengine.Planner
	dialect    sqlast.Dialect
	normalizer sqlast.Normalizer
	rewriter   sqlast.Rewriter
	timeout    time.Duration
	logger     *zap.Logger
}

func NewValidationSimulator(
	planner queryengine.Planner,
	dialect sqlast.Dialect,
	normalizer sqlast.Normalizer,
	rewriter sqlast.Rewriter,
	timeout time.Duration,
	logger *zap.Logger,
) *ValidationSimulator {
	if rewriter == nil {
		rewriter = sqlast.TextualRewriter{}
	}
	if timeout <= 0 {
		timeout = defaultPlanTimeout
	}
	return &ValidationSimulator{
		planner:    planner,
		dialect:    dialect,
		normalizer: normalizer,
		rewriter:   rewriter,
		timeout:    timeout,
		logger:     logger.Named("simulator"),
	}
}

// Synthesize builds the statement the planner is asked about. A non-nil
// result means the candidate is rejected before reaching the engine.
func (s *ValidationSimulator) Synthesize(c *models.RemediationCandidate) (string, *ValidationResult) {
	var createTable string
	for _, stmt := range c.DDL {
		if sqlast.IsCreateTable(stmt.Statement) {
			createTable = stmt.Statement
			break
		}
	}
	if createTable == "" {
		r := rejected("", "no CREATE TABLE statement among %d DDL statements", len(c.DDL))
		return "", &r
	}

	def, err := s.dialect.ParseCreateTable(createTable)
	if err != nil {
		r := rejected(createTable, "cannot read the new table definition: %v", err)
		return "", &r
	}
	if len(def.Columns) == 0 {
		r := rejected(createTable, "the new table %s declares no columns", def.Name)
		return "", &r
	}

	migration := c.Migrations[0].Statement
	body, err := s.rewriter.SelectBody(migration)
	if err != nil {
		r := rejected(migration, "%v", err)
		return "", &r
	}

	query := c.Queries[0].Query
	if err := ValidateReadOnly(query); err != nil {
		r := rejected(query, "rewritten query %s: %v", c.Queries[0].QueryID, err)
		return "", &r
	}

	substituted := s.rewriter.SubstituteTable(query, s.normalizer.Qualify(def.Name), SimulatedTable)
	substituted = s.rewriter.SubstituteTable(substituted, def.Name, SimulatedTable)

	columns := make([]string, len(def.Columns))
	for i, col := range def.Columns {
		columns[i] = s.dialect.QuoteIdent(col)
	}
	return s.rewriter.Compose(SimulatedTable, columns, body, substituted), nil
}

// Validate reports whether the engine's planner accepts the candidate.
// A candidate missing any of its three parts is accepted unchecked.
func (s *ValidationSimulator) Validate(ctx context.Context, c *models.RemediationCandidate) ValidationResult {
	if c.Incomplete() {
		s.logger.Info("Candidate incomplete, skipping validation")
		return ValidationResult{OK: true}
	}

	synthetic, rejection := s.Synthesize(c)
	if rejection != nil {
		s.logger.Info("Candidate rejected before planning",
			zap.String("error", rejection.Error),
			zap.String("sql", logging.SanitizeQuery(rejection.FailingSQL)))
		return *rejection
	}

	planCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if _, err := s.planner.Explain(planCtx, synthetic); err != nil {
		result := ValidationResult{Error: err.Error(), FailingSQL: synthetic}
		var engineErr *queryengine.Error
		if errors.As(err, &engineErr) {
			result.Error = engineErr.Message()
			result.Transient = engineErr.Transient()
		} else {
			result.Transient = retry.IsRetryable(err)
		}
		s.logger.Info("Planner rejected synthetic statement",
			zap.Bool("transient", result.Transient),
			zap.String("error", logging.SanitizeError(err)))
		return result
	}

	return ValidationResult{OK: true}
}
