package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Vvil1568/lct-hackathone/pkg/adapters/queryengine"
	"github.com/Vvil1568/lct-hackathone/pkg/logging"
	"github.com/Vvil1568/lct-hackathone/pkg/sqlast"
)

// Adapter is a PostgreSQL session backed by a small pgx pool.
type Adapter struct {
	config *Config
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewAdapter creates the pool. search_path is pinned to the configured schema
// so unqualified names resolve the same way the analysis qualifies them.
func NewAdapter(ctx context.Context, cfg *Config, logger *zap.Logger) (*Adapter, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %s", logging.SanitizeError(err))
	}
	poolCfg.MaxConns = 4
	poolCfg.ConnConfig.RuntimeParams["search_path"] = cfg.Schema
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "lakeadvisor"

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %s", logging.SanitizeError(err))
	}
	return &Adapter{
		config: cfg,
		pool:   pool,
		logger: logger.Named("postgres"),
	}, nil
}

func (a *Adapter) Ping(ctx context.Context) error {
	return queryengine.NewError("ping", "", a.pool.Ping(ctx))
}

// Explain runs EXPLAIN (FORMAT JSON) without ANALYZE, so nothing executes.
func (a *Adapter) Explain(ctx context.Context, statement string) (*queryengine.Plan, error) {
	query := queryengine.ExplainPrefix("EXPLAIN (FORMAT JSON)", statement)

	var body []byte
	if err := a.pool.QueryRow(ctx, query).Scan(&body); err != nil {
		return nil, queryengine.NewError("explain", query, err)
	}
	return queryengine.NewJSONPlan(string(body))
}

// TableStats returns per-column statistics from pg_stats.
func (a *Adapter) TableStats(ctx context.Context, table string) ([]map[string]any, error) {
	name, err := sqlast.ParseQualifiedName(table)
	if err != nil {
		return nil, fmt.Errorf("postgres stats: %w", err)
	}
	schema := name.Schema
	if schema == "" {
		schema = a.config.Schema
	}

	const query = `SELECT attname AS column_name, null_frac, n_distinct, avg_width
		FROM pg_stats WHERE schemaname = $1 AND tablename = $2 ORDER BY attname`
	rows, err := a.pool.Query(ctx, query, schema, name.Name)
	if err != nil {
		return nil, queryengine.NewError("stats", query, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, queryengine.NewError("stats", query, err)
		}
		row := make(map[string]any, len(fields))
		for i, f := range fields {
			row[f.Name] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, queryengine.NewError("stats", query, err)
	}
	return result, nil
}

func (a *Adapter) Dialect() queryengine.Dialect {
	return queryengine.Dialect{
		Name:            "PostgreSQL",
		Grammar:         "postgres",
		PartitionSyntax: "PARTITION BY RANGE (col)",
	}
}

func (a *Adapter) Defaults() (string, string) {
	return a.config.Database, a.config.Schema
}

func (a *Adapter) Close() error {
	a.pool.Close()
	return nil
}

var _ queryengine.Engine = (*Adapter)(nil)
