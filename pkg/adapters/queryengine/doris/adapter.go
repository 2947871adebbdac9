package doris

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Vvil1568/lct-hackathone/pkg/adapters/queryengine"
)

// Adapter is a Doris session over the MySQL protocol.
type Adapter struct {
	config *Config
	db     *sql.DB
	logger *zap.Logger
}

func NewAdapter(cfg *Config, logger *zap.Logger) (*Adapter, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open doris connection: %w", err)
	}
	db.SetConnMaxLifetime(2 * time.Minute)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	return &Adapter{
		config: cfg,
		db:     db,
		logger: logger.Named("doris"),
	}, nil
}

func (a *Adapter) Ping(ctx context.Context) error {
	return queryengine.NewError("ping", "", a.db.PingContext(ctx))
}

// Explain returns the text plan; Doris prints one plan line per row.
func (a *Adapter) Explain(ctx context.Context, statement string) (*queryengine.Plan, error) {
	query := queryengine.ExplainPrefix("EXPLAIN", statement)
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, queryengine.NewError("explain", query, err)
	}
	defer rows.Close()

	text, err := queryengine.ScanText(rows)
	if err != nil {
		return nil, queryengine.NewError("explain", query, err)
	}
	return queryengine.NewTextPlan(queryengine.PlanFormatText, text)
}

// TableStats returns SHOW TABLE STATS rows.
func (a *Adapter) TableStats(ctx context.Context, table string) ([]map[string]any, error) {
	quoted, err := queryengine.QuoteTable(table, '`')
	if err != nil {
		return nil, err
	}
	query := "SHOW TABLE STATS " + quoted
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
		Name:            "Apache Doris",
		Grammar:         "mysql",
		PartitionSyntax: "PARTITION BY RANGE(col) () DISTRIBUTED BY HASH(col)",
	}
}

// Defaults returns no catalog: Doris names are database.table.
func (a *Adapter) Defaults() (string, string) {
	return "", a.config.Database
}

func (a *Adapter) Close() error {
	return a.db.Close()
}

var _ queryengine.Engine = (*Adapter)(nil)
