package mssql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	_ "github.com/microsoft/go-mssqldb" // registers the "sqlserver" database/sql driver
	"go.uber.org/zap"

	"github.com/Vvil1568/lct-hackathone/pkg/adapters/queryengine"
	"github.com/Vvil1568/lct-hackathone/pkg/sqlast"
)

// Adapter is a SQL Server session.
type Adapter struct {
	config *Config
	db     *sql.DB
	logger *zap.Logger
}

func NewAdapter(cfg *Config, logger *zap.Logger) (*Adapter, error) {
	db, err := sql.Open("sqlserver", cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("open SQL auth connection: %w", err)
	}
	db.SetMaxOpenConns(4)
	return &Adapter{
		config: cfg,
		db:     db,
		logger: logger.Named("mssql"),
	}, nil
}

func (a *Adapter) Ping(ctx context.Context) error {
	return queryengine.NewError("ping", "", a.db.PingContext(ctx))
}

// Explain compiles the statement under SHOWPLAN_XML, which returns the
// estimated plan instead of executing. The setting is per connection, so
// one connection is held for the whole exchange.
func (a *Adapter) Explain(ctx context.Context, statement string) (*queryengine.Plan, error) {
	statement = sqlast.StripTerminator(statement)

	conn, err := a.db.Conn(ctx)
	if err != nil {
		return nil, queryengine.NewError("explain", statement, err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SET SHOWPLAN_XML ON"); err != nil {
		return nil, queryengine.NewError("explain", statement, err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.WithoutCancel(ctx), "SET SHOWPLAN_XML OFF"); err != nil {
			a.logger.Warn("Failed to reset SHOWPLAN_XML", zap.Error(err))
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		}
	}()

	rows, err := conn.QueryContext(ctx, statement)
	if err != nil {
		return nil, queryengine.NewError("explain", statement, err)
	}
	defer rows.Close()

	text, err := queryengine.ScanText(rows)
	if err != nil {
		return nil, queryengine.NewError("explain", statement, err)
	}
	return queryengine.NewTextPlan(queryengine.PlanFormatXML, text)
}

// TableStats returns row and page counts from the partition stats DMV.
func (a *Adapter) TableStats(ctx context.Context, table string) ([]map[string]any, error) {
	name, err := sqlast.ParseQualifiedName(table)
	if err != nil {
		return nil, fmt.Errorf("mssql stats: %w", err)
	}
	schema := name.Schema
	if schema == "" {
		schema = "dbo"
	}

	const query = `SELECT SUM(p.row_count) AS row_count, SUM(p.used_page_count) AS used_pages
		FROM sys.dm_db_partition_stats p
		WHERE p.object_id = OBJECT_ID(@name) AND p.index_id IN (0, 1)`
	rows, err := a.db.QueryContext(ctx, query, sql.Named("name", schema+"."+name.Name))
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
		Name:            "Microsoft SQL Server",
		Grammar:         "postgres",
		PartitionSyntax: "ON partition_scheme (col)",
	}
}

func (a *Adapter) Defaults() (string, string) {
	return a.config.Database, "dbo"
}

func (a *Adapter) Close() error {
	return a.db.Close()
}

var _ queryengine.Engine = (*Adapter)(nil)
