// Package sqlast holds the dialect-neutral view of parsed SQL used by the
// profiler, the detectors and the validation simulator. Grammar-specific
// parsers live in subpackages and register themselves by name.
package sqlast

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// TableName is a possibly partial catalog.schema.table reference.
type TableName struct {
	Catalog string `json:"catalog,omitempty"`
	Schema  string `json:"schema,omitempty"`
	Name    string `json:"name"`
}

// String joins the present parts with dots.
func (t TableName) String() string {
	parts := make([]string, 0, 3)
	if t.Catalog != "" {
		parts = append(parts, t.Catalog)
	}
	if t.Schema != "" {
		parts = append(parts, t.Schema)
	}
	parts = append(parts, t.Name)
	return strings.Join(parts, ".")
}

// Parts returns the non-empty name parts, outermost first.
func (t TableName) Parts() []string {
	return strings.Split(t.String(), ".")
}

// TableRef is a table occurrence in a FROM clause.
type TableRef struct {
	Name  TableName
	Alias string
}

// ColumnRef is a column reference, optionally qualified by a table name or alias.
type ColumnRef struct {
	Qualifier string
	Name      string
}

// QueryInfo is the structural summary of one parsed statement.
type QueryInfo struct {
	// Tables in order of first appearance. CTE references are excluded.
	Tables []TableRef
	// FilterColumns are column references found in any WHERE clause.
	FilterColumns []ColumnRef
	// CrossJoin is set when the statement contains an explicit CROSS JOIN.
	CrossJoin bool
	// PlainHavingConditions are HAVING comparisons with no aggregate on either side.
	PlainHavingConditions []string
	// StarQualifiers has one entry per `*` in the outermost select list;
	// "" for a bare star, the qualifier for `t.*`.
	StarQualifiers []string
	// StarSources are the base tables named directly in the FROM clause of
	// the select lists that contain a star. A star over a CTE or a derived
	// table covers none of them.
	StarSources []TableRef
}

// SelectsAll reports whether the outermost select list contains a star.
func (q *QueryInfo) SelectsAll() bool {
	return len(q.StarQualifiers) > 0
}

// TableDefinition is what the analysis needs from a CREATE TABLE statement.
type TableDefinition struct {
	Name        TableName
	Columns     []string
	Partitioned bool
}

// Dialect parses statements of one SQL grammar family. Implementations are
// shared by the profiling workers of a batch and must be safe for concurrent use.
type Dialect interface {
	Name() string
	ParseQuery(sql string) (*QueryInfo, error)
	ParseCreateTable(ddl string) (*TableDefinition, error)
	QuoteIdent(name string) string
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func() Dialect)
)

// Register makes a dialect available by name. Called from init() in each grammar package.
func Register(name string, factory func() Dialect) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = factory
}

// Lookup returns a new dialect instance for the given grammar name.
func Lookup(name string) (Dialect, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unsupported SQL grammar: %s", name)
	}
	return factory(), nil
}

// Registered lists the registered grammar names in sorted order.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
