package trino

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/trinodb/trino-go-client/trino" // registers the "trino" database/sql driver
	"go.uber.org/zap"

	"github.com/Vvil1568/lct-hackathone/pkg/adapters/queryengine"
	"github.com/Vvil1568/lct-hackathone/pkg/logging"
)

// Adapter is a Trino session over the HTTP protocol.
type Adapter struct {
	config *Config
	db     *sql.DB
	logger *zap.Logger
}

// NewAdapter opens a Trino session. No request is sent until the first call.
func NewAdapter(cfg *Config, logger *zap.Logger) (*Adapter, error) {
	db, err := sql.Open("trino", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open trino session: %s", logging.SanitizeError(err))
	}
	db.SetMaxOpenConns(8)
	return &Adapter{
		config: cfg,
		db:     db,
		logger: logger.Named("trino"),
	}, nil
}

// Ping runs a trivial query; the driver's connection setup does no network I/O.
func (a *Adapter) Ping(ctx context.Context) error {
	var one int
	if err := a.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return queryengine.NewError("ping", "SELECT 1", err)
	}
	return nil
}

// Explain returns the distributed plan as JSON. EXPLAIN never executes the statement.
func (a *Adapter) Explain(ctx context.Context, statement string) (*queryengine.Plan, error) {
	query := queryengine.ExplainPrefix("EXPLAIN (FORMAT JSON)", statement)
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, queryengine.NewError("explain", query, err)
	}
	defer rows.Close()

	text, err := queryengine.ScanText(rows)
	if err != nil {
		return nil, queryengine.NewError("explain", query, err)
	}
	return queryengine.NewJSONPlan(text)
}

// TableStats returns SHOW STATS FOR rows: one per column plus a summary row.
func (a *Adapter) TableStats(ctx context.Context, table string) ([]map[string]any, error) {
	quoted, err := queryengine.QuoteTable(table, '"')
	if err != nil {
		return nil, err
	}
	query := "SHOW STATS FOR " + quoted
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, queryengine.NewError("stats", query, err)
	}
	defer rows.Close()

	result, err := queryengine.ScanRows(rows)
	if err != nil {
		return nil, queryengine.NewError("stats", query, err)
	}
	return result, nil
}

func (a *Adapter) Dialect() queryengine.Dialect {
	return queryengine.Dialect{
		Name:            "Trino",
		Grammar:         "postgres",
		PartitionSyntax: "WITH (partitioning = ARRAY['col'])",
	}
}

func (a *Adapter) Defaults() (string, string) {
	return a.config.Catalog, a.config.Schema
}

func (a *Adapter) Close() error {
	return a.db.Close()
}

var _ queryengine.Engine = (*Adapter)(nil)
