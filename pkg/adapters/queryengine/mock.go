package queryengine

import (
	"context"
	"sync"
)

// MockEngine is a configurable Engine for tests.
// Set the function fields to control behavior; calls are recorded.
type MockEngine struct {
	// ExplainFunc is called by Explain. If nil, returns a trivial JSON plan.
	ExplainFunc func(ctx context.Context, sql string) (*Plan, error)

	// TableStatsFunc is called by TableStats. If nil, returns no rows.
	TableStatsFunc func(ctx context.Context, table string) ([]map[string]any, error)

	// PingFunc is called by Ping. If nil, returns nil.
	PingFunc func(ctx context.Context) error

	// EngineDialect is returned by Dialect. Defaults to Trino on the postgres grammar.
	EngineDialect Dialect

	Catalog string
	Schema  string

	mu            sync.Mutex
	explained     []string
	statsRequests []string
	closed        bool
}

// NewMockEngine creates a mock with Trino defaults and the given session namespace.
func NewMockEngine(catalog, schema string) *MockEngine {
	return &MockEngine{
		EngineDialect: Dialect{Name: "Trino", Grammar: "postgres", PartitionSyntax: "WITH (partitioning = ARRAY['col'])"},
		Catalog:       catalog,
		Schema:        schema,
	}
}

func (m *MockEngine) Explain(ctx context.Context, sql string) (*Plan, error) {
	m.mu.Lock()
	m.explained = append(m.explained, sql)
	m.mu.Unlock()
	if m.ExplainFunc != nil {
		return m.ExplainFunc(ctx, sql)
	}
	return &Plan{Format: PlanFormatJSON, Body: []byte(`{}`)}, nil
}

func (m *MockEngine) TableStats(ctx context.Context, table string) ([]map[string]any, error) {
	m.mu.Lock()
	m.statsRequests = append(m.statsRequests, table)
	m.mu.Unlock()
	if m.TableStatsFunc != nil {
		return m.TableStatsFunc(ctx, table)
	}
	return nil, nil
}

func (m *MockEngine) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockEngine) Dialect() Dialect {
	return m.EngineDialect
}

func (m *MockEngine) Defaults() (string, string) {
	return m.Catalog, m.Schema
}

func (m *MockEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Explained returns every statement passed to Explain, in call order.
func (m *MockEngine) Explained() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.explained...)
}

// StatsRequests returns every table passed to TableStats.
func (m *MockEngine) StatsRequests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.statsRequests...)
}

// Closed reports whether Close was called.
func (m *MockEngine) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ Engine = (*MockEngine)(nil)
