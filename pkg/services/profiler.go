package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Vvil1568/lct-hackathone/pkg/adapters/queryengine"
	"github.com/Vvil1568/lct-hackathone/pkg/apperrors"
	"github.com/Vvil1568/lct-hackathone/pkg/logging"
	"github.com/Vvil1568/lct-hackathone/pkg/models"
	"github.com/Vvil1568/lct-hackathone/pkg/retry"
	"github.com/Vvil1568/lct-hackathone/pkg/sqlast"
	"github.com/Vvil1568/lct-hackathone/pkg/workerpool"
)

const defaultPlanTimeout = 60 * time.Second

// QueryProfiler obtains plans and table references for a batch of queries.
type QueryProfiler struct {
	engine      queryengine.Engine
	dialect     sqlast.Dialect
	normalizer  sqlast.Normalizer
	pool        *workerpool.Pool
	planTimeout time.Duration
	logger      *zap.Logger
}

// NewQueryProfiler creates a profiler bound to one engine session.
func NewQueryProfiler(
	engine queryengine.Engine,
	dialect sqlast.Dialect,
	normalizer sqlast.Normalizer,
	pool *workerpool.Pool,
	planTimeout time.Duration,
	logger *zap.Logger,
) *QueryProfiler {
	if planTimeout <= 0 {
		planTimeout = defaultPlanTimeout
	}
	return &QueryProfiler{
		engine:      engine,
		dialect:     dialect,
		normalizer:  normalizer,
		pool:        pool,
		planTimeout: planTimeout,
		logger:      logger.Named("profiler"),
	}
}

// Profile plans every query in parallel and returns the successful ones in
// input order. A query the engine rejects is dropped and logged. The only
// error is an unreachable engine, wrapped in apperrors.ErrEngineUnavailable.
func (p *QueryProfiler) Profile(ctx context.Context, queries []models.QueryStatement) ([]*models.ProfiledQuery, error) {
	cfg := retry.DefaultConfig()
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		p.logger.Warn("Engine not ready, retrying ping",
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.String("error", logging.SanitizeError(err)))
	}
	err := retry.DoIfRetryable(ctx, cfg, func() error {
		return p.engine.Ping(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrEngineUnavailable, logging.SanitizeError(err))
	}

	items := make([]workerpool.Item[*models.ProfiledQuery], len(queries))
	for i, q := range queries {
		items[i] = workerpool.Item[*models.ProfiledQuery]{
			ID: q.QueryID,
			Execute: func(ctx context.Context) (*models.ProfiledQuery, error) {
				return p.profileOne(ctx, q)
			},
		}
	}

	results := workerpool.Process(ctx, p.pool, items, nil)

	profiled := make([]*models.ProfiledQuery, 0, len(results))
	for i, r := range results {
		if r.Err != nil {
			p.logger.Warn("Dropping query that could not be planned",
				zap.String("query_id", r.ID),
				zap.String("sql", logging.SanitizeQuery(queries[i].Query)),
				zap.String("error", logging.SanitizeError(r.Err)))
			continue
		}
		profiled = append(profiled, r.Result)
	}

	p.logger.Info("Profiling complete",
		zap.Int("submitted", len(queries)),
		zap.Int("profiled", len(profiled)))
	return profiled, nil
}

func (p *QueryProfiler) profileOne(ctx context.Context, q models.QueryStatement) (*models.ProfiledQuery, error) {
	if err := ValidateReadOnly(q.Query); err != nil {
		return nil, err
	}

	// A started plan request runs to its own timeout even if the caller gives up.
	planCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.planTimeout)
	defer cancel()

	plan, err := p.engine.Explain(planCtx, sqlast.StripTerminator(q.Query))
	if err != nil {
		return nil, err
	}

	info, err := p.dialect.ParseQuery(q.Query)
	if err != nil {
		p.logger.Debug("Query not parseable, detectors will skip it",
			zap.String("query_id", q.QueryID),
			zap.Error(err))
		info = nil
	}

	return models.NewProfiledQuery(q, plan, p.normalizer.TableNames(info), info), nil
}
