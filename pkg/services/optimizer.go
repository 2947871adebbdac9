package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Vvil1568/lct-hackathone/pkg/adapters/queryengine"
	"github.com/Vvil1568/lct-hackathone/pkg/apperrors"
	"github.com/Vvil1568/lct-hackathone/pkg/llm"
	"github.com/Vvil1568/lct-hackathone/pkg/logging"
	"github.com/Vvil1568/lct-hackathone/pkg/models"
	"github.com/Vvil1568/lct-hackathone/pkg/prompts"
	"github.com/Vvil1568/lct-hackathone/pkg/services/detectors"
	"github.com/Vvil1568/lct-hackathone/pkg/sqlast"
	"github.com/Vvil1568/lct-hackathone/pkg/workerpool"
)

// EngineOpener opens one engine session for a batch.
type EngineOpener func(ctx context.Context, d *queryengine.Descriptor, logger *zap.Logger) (queryengine.Engine, error)

// OptimizerConfig holds the analysis tunables.
type OptimizerConfig struct {
	TopN              int
	WideTableColumns  int
	IncludeTableStats bool
	PlanTimeout       time.Duration
	Loop              LoopConfig
}

// OptimizerService runs a batch end to end: profile, rank, detect, prompt,
// then the correction loop against the same engine session.
type OptimizerService struct {
	open     EngineOpener
	oracle   llm.Oracle
	composer *prompts.Composer
	pool     *workerpool.Pool
	config   OptimizerConfig
	logger   *zap.Logger
}

// NewOptimizerService wires the pipeline. A nil opener uses queryengine.Open.
func NewOptimizerService(
	open EngineOpener,
	oracle llm.Oracle,
	composer *prompts.Composer,
	pool *workerpool.Pool,
	config OptimizerConfig,
	logger *zap.Logger,
) *OptimizerService {
	if open == nil {
		open = queryengine.Open
	}
	if config.TopN <= 0 {
		config.TopN = DefaultTopN
	}
	if config.WideTableColumns <= 0 {
		config.WideTableColumns = detectors.DefaultWideTableColumns
	}
	return &OptimizerService{
		open:     open,
		oracle:   oracle,
		composer: composer,
		pool:     pool,
		config:   config,
		logger:   logger.Named("optimizer"),
	}
}

// Run processes one batch. Failures are reported in Outcome.Error, never returned.
func (s *OptimizerService) Run(ctx context.Context, batch models.Batch) models.Outcome {
	start := time.Now()
	var outcome models.Outcome
	if err := s.run(ctx, &batch, &outcome); err != nil {
		outcome.Error = err.Error()
		s.logger.Error("Batch failed",
			zap.Int("queries", len(batch.Queries)),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("error", logging.SanitizeError(err)))
		return outcome
	}
	s.logger.Info("Batch complete",
		zap.Int("queries", len(batch.Queries)),
		zap.Duration("elapsed", time.Since(start)))
	return outcome
}

// Analyze profiles and ranks a batch and runs the detectors, without
// contacting the oracle.
func (s *OptimizerService) Analyze(ctx context.Context, batch models.Batch) (*models.AnalysisReport, error) {
	sess, err := s.openSession(ctx, &batch)
	if err != nil {
		return nil, err
	}
	defer sess.close(s.logger)
	return s.analyze(ctx, sess, &batch)
}

// session is the per-batch engine binding.
type session struct {
	engine     queryengine.Engine
	grammar    sqlast.Dialect
	normalizer sqlast.Normalizer
	catalog    string
	ddl        *models.DDLIndex
}

func (s *session) close(logger *zap.Logger) {
	if err := s.engine.Close(); err != nil {
		logger.Warn("Failed to close engine session", zap.Error(err))
	}
}

func (s *OptimizerService) openSession(ctx context.Context, batch *models.Batch) (*session, error) {
	if err := batch.Validate(); err != nil {
		return nil, err
	}

	desc, err := queryengine.ParseDescriptor(batch.URL)
	if err != nil {
		return nil, err
	}

	engine, err := s.open(ctx, desc, s.logger)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) || errors.Is(err, apperrors.ErrEngineUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %s", apperrors.ErrEngineUnavailable, desc, logging.SanitizeError(err))
	}

	grammar, err := sqlast.Lookup(engine.Dialect().Grammar)
	if err != nil {
		_ = engine.Close()
		return nil, fmt.Errorf("%w: %v", apperrors.ErrConfiguration, err)
	}

	catalog, schema := engine.Defaults()
	norm := sqlast.NewNormalizer(catalog, schema)
	ddl, err := models.NewDDLIndex(batch.DDL, grammar, norm)
	if err != nil {
		_ = engine.Close()
		return nil, err
	}

	return &session{engine: engine, grammar: grammar, normalizer: norm, catalog: catalog, ddl: ddl}, nil
}

func (s *OptimizerService) analyze(ctx context.Context, sess *session, batch *models.Batch) (*models.AnalysisReport, error) {
	profiler := NewQueryProfiler(sess.engine, sess.grammar, sess.normalizer, s.pool, s.config.PlanTimeout, s.logger)
	profiled, err := profiler.Profile(ctx, batch.Queries)
	if err != nil {
		return nil, err
	}

	ranked := RankByCost(profiled, s.config.TopN)
	findings := detectors.RunAll(detectors.Default(s.config.WideTableColumns), ranked, sess.ddl)
	report := Arbitrate(ranked, findings)

	s.logger.Info("Analysis complete",
		zap.Int("ranked", len(ranked)),
		zap.Int("findings", len(report.Findings)),
		zap.String("summary", logging.TruncateString(report.Summary, 200)))
	return report, nil
}

func (s *OptimizerService) run(ctx context.Context, batch *models.Batch, outcome *models.Outcome) error {
	sess, err := s.openSession(ctx, batch)
	if err != nil {
		return err
	}
	defer sess.close(s.logger)

	report, err := s.analyze(ctx, sess, batch)
	if err != nil {
		return err
	}
	outcome.Report = report

	if len(report.RankedQueries) == 0 {
		// A nil candidate renders as an empty remediation.
		s.logger.Warn("No query could be planned, nothing to remediate")
		return nil
	}

	var stats []prompts.TableStats
	if s.config.IncludeTableStats {
		stats = s.collectStats(ctx, sess.engine, prompts.ReferencedTables(report.RankedQueries))
	}

	prompt, err := s.composer.Compose(report, sess.ddl, sess.engine.Dialect(), sess.catalog, stats)
	if err != nil {
		return err
	}

	simulator := NewValidationSimulator(sess.engine, sess.grammar, sess.normalizer, sqlast.TextualRewriter{}, s.config.PlanTimeout, s.logger)
	loop := NewCorrectionLoop(s.oracle, simulator, s.composer, s.config.Loop, s.logger)

	result, err := loop.Run(ctx, prompt)
	outcome.Transitions = result.Transitions
	if err != nil {
		return err
	}
	outcome.Candidate = result.Candidate
	return nil
}

// collectStats reads statistics for each table. Failures are logged and the table omitted.
func (s *OptimizerService) collectStats(ctx context.Context, engine queryengine.StatsProvider, tables []string) []prompts.TableStats {
	var stats []prompts.TableStats
	for _, table := range tables {
		statsCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.statsTimeout())
		rows, err := engine.TableStats(statsCtx, table)
		cancel()
		if err != nil {
			s.logger.Warn("Table statistics unavailable",
				zap.String("table", table),
				zap.String("error", logging.SanitizeError(err)))
			continue
		}
		if len(rows) > 0 {
			stats = append(stats, prompts.TableStats{Table: table, Rows: rows})
		}
	}
	return stats
}

func (s *OptimizerService) statsTimeout() time.Duration {
	if s.config.PlanTimeout > 0 {
		return s.config.PlanTimeout
	}
	return defaultPlanTimeout
}
