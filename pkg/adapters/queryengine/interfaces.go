package queryengine

import (
	"context"
	"encoding/json"
)

// PlanFormat identifies how an engine returned its plan.
type PlanFormat string

const (
	PlanFormatJSON PlanFormat = "json"
	PlanFormatText PlanFormat = "text"
	PlanFormatXML  PlanFormat = "xml"
)

// Plan is a compiled, not executed, statement plan.
// Body is the engine's JSON document, or a JSON string for text and XML plans.
type Plan struct {
	Format PlanFormat      `json:"format"`
	Body   json.RawMessage `json:"body"`
}

// Text returns the plan as display text.
func (p *Plan) Text() string {
	if p == nil {
		return ""
	}
	if p.Format != PlanFormatJSON {
		var s string
		if err := json.Unmarshal(p.Body, &s); err == nil {
			return s
		}
	}
	return string(p.Body)
}

// Dialect describes the SQL flavour an engine speaks.
type Dialect struct {
	// Name is the human name used in prompts, e.g. "Trino".
	Name string
	// Grammar selects the sqlast parser, "postgres" or "mysql".
	Grammar string
	// PartitionSyntax is an example of the engine's partitioning clause.
	PartitionSyntax string
}

// Planner obtains execution plans without running statements.
type Planner interface {
	Explain(ctx context.Context, sql string) (*Plan, error)
}

// StatsProvider reads optimizer statistics for a table.
type StatsProvider interface {
	TableStats(ctx context.Context, table string) ([]map[string]any, error)
}

// Engine is one authenticated session against a query engine.
// Each batch opens its own Engine and closes it when done.
type Engine interface {
	Planner
	StatsProvider

	// Ping verifies the engine is reachable with valid credentials.
	Ping(ctx context.Context) error

	// Dialect describes the engine's SQL flavour.
	Dialect() Dialect

	// Defaults returns the session catalog and schema used to qualify bare names.
	Defaults() (catalog, schema string)

	// Close releases the session.
	Close() error
}
