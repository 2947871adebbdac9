package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Vvil1568/lct-hackathone/pkg/adapters/queryengine"
	"github.com/Vvil1568/lct-hackathone/pkg/llm"
	"github.com/Vvil1568/lct-hackathone/pkg/models"
	"github.com/Vvil1568/lct-hackathone/pkg/prompts"
	"github.com/Vvil1568/lct-hackathone/pkg/solutions"
	_ "github.com/Vvil1568/lct-hackathone/pkg/sqlast/postgres"
	"github.com/Vvil1568/lct-hackathone/pkg/workerpool"
)

const testExemplar = `{
	"JoinPatternDetector": {"ddl": [{"statement": "CREATE TABLE lake.optimized.orders_wide (id int)"}], "migrations": [], "queries": []},
	"PartitioningCandidateDetector": {"ddl": [], "migrations": [], "queries": []}
}`

func joinBatch() models.Batch {
	return models.Batch{
		URL: "jdbc:trino://trino.local:8080/lake/db?user=analyst",
		DDL: []models.DDLStatement{
			{Statement: "CREATE TABLE lake.db.orders (id bigint, customer_id bigint, amount double)"},
			{Statement: "CREATE TABLE lake.db.customers (id bigint, region varchar)"},
		},
		Queries: []models.QueryStatement{
			{QueryID: "q1", Query: "SELECT c.region, sum(o.amount) FROM db.orders o JOIN db.customers c ON o.customer_id = c.id GROUP BY c.region", RunQuantity: 100, ExecutionTime: 5},
			{QueryID: "q2", Query: "SELECT count(*) FROM lake.db.orders o JOIN lake.db.customers c ON o.customer_id = c.id", RunQuantity: 10, ExecutionTime: 2},
		},
	}
}

func validCandidate() *models.RemediationCandidate {
	return &models.RemediationCandidate{
		DDL: []models.Statement{
			{Statement: "CREATE SCHEMA IF NOT EXISTS lake.optimized"},
			{Statement: "CREATE TABLE lake.optimized.orders_wide (id bigint, region varchar, amount double) WITH (partitioning = ARRAY['region'])"},
		},
		Migrations: []models.Statement{
			{Statement: "INSERT INTO lake.optimized.orders_wide SELECT o.id, c.region, o.amount FROM lake.db.orders o JOIN lake.db.customers c ON o.customer_id = c.id"},
		},
		Queries: []models.RewrittenQuery{
			{QueryID: "q1", Query: "SELECT region, sum(amount) FROM lake.optimized.orders_wide GROUP BY region"},
		},
	}
}

type optimizerFixture struct {
	engine  *queryengine.MockEngine
	oracle  *llm.MockOracle
	opened  int
	service *OptimizerService
}

func newOptimizerFixture(t *testing.T, library string, config OptimizerConfig) *optimizerFixture {
	t.Helper()
	lib, err := solutions.ParseJSON([]byte(library))
	require.NoError(t, err)

	f := &optimizerFixture{
		engine: queryengine.NewMockEngine("lake", "db"),
		oracle: &llm.MockOracle{CompleteFunc: func(context.Context, string) (*models.RemediationCandidate, error) {
			return validCandidate(), nil
		}},
	}
	opener := func(context.Context, *queryengine.Descriptor, *zap.Logger) (queryengine.Engine, error) {
		f.opened++
		return f.engine, nil
	}
	f.service = NewOptimizerService(opener, f.oracle, prompts.NewComposer(lib, "optimized", 0),
		workerpool.New(workerpool.DefaultConfig(), zap.NewNop()), config, zap.NewNop())
	return f
}

func TestOptimizerService_Run_Success(t *testing.T) {
	f := newOptimizerFixture(t, testExemplar, OptimizerConfig{})

	outcome := f.service.Run(context.Background(), joinBatch())

	require.False(t, outcome.Failed(), outcome.Error)
	require.NotNil(t, outcome.Candidate)
	assert.Equal(t, validCandidate(), outcome.Candidate)
	assert.True(t, f.engine.Closed())

	require.NotNil(t, outcome.Report)
	assert.Equal(t, "q1", outcome.Report.RankedQueries[0].QueryID)
	require.NotNil(t, outcome.Report.DominantFinding)
	assert.Equal(t, "JoinPatternDetector", outcome.Report.DominantFinding.DetectorID)

	sent := f.oracle.Prompts()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "lake.optimized.orders_wide (id int)", "exemplar embedded")
	assert.Contains(t, sent[0], "`lake.optimized`")

	explained := f.engine.Explained()
	require.Len(t, explained, 3, "two profiling plans and one validation plan")
	assert.True(t, strings.HasPrefix(explained[2], "WITH simulated_new_table(id, region, amount) AS (SELECT o.id, c.region"))
	assert.True(t, strings.HasSuffix(explained[2], "FROM simulated_new_table GROUP BY region"))

	assert.Equal(t, "Done", outcome.Transitions[len(outcome.Transitions)-1].To)
}

func TestOptimizerService_Run_InvalidInput(t *testing.T) {
	f := newOptimizerFixture(t, testExemplar, OptimizerConfig{})
	batch := joinBatch()
	batch.Queries = nil

	outcome := f.service.Run(context.Background(), batch)

	assert.True(t, outcome.Failed())
	assert.Contains(t, outcome.Error, "invalid input")
	assert.Zero(t, f.opened)

	data, err := json.Marshal(outcome)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error": "invalid input: queries must not be empty"}`, string(data))
}

func TestOptimizerService_Run_UnparseableDDL(t *testing.T) {
	f := newOptimizerFixture(t, testExemplar, OptimizerConfig{})
	batch := joinBatch()
	batch.DDL = append(batch.DDL, models.DDLStatement{Statement: "CREATE TABLE lake.db.broken"})

	outcome := f.service.Run(context.Background(), batch)

	assert.Contains(t, outcome.Error, "invalid input")
	assert.True(t, f.engine.Closed())
	assert.Empty(t, f.oracle.Prompts())
}

func TestOptimizerService_Run_EngineUnavailable(t *testing.T) {
	f := newOptimizerFixture(t, testExemplar, OptimizerConfig{})
	f.engine.PingFunc = func(context.Context) error { return errors.New("authentication failed") }

	outcome := f.service.Run(context.Background(), joinBatch())

	assert.Contains(t, outcome.Error, "query engine unavailable")
	assert.True(t, f.engine.Closed())
	assert.Empty(t, f.oracle.Prompts())
}

func TestOptimizerService_Run_MissingTemplate(t *testing.T) {
	f := newOptimizerFixture(t, `{"SelectStarDetector": {}}`, OptimizerConfig{})

	outcome := f.service.Run(context.Background(), joinBatch())

	assert.Contains(t, outcome.Error, "no solution template")
	assert.Contains(t, outcome.Error, "JoinPatternDetector")
	assert.Empty(t, f.oracle.Prompts())
}

func TestOptimizerService_Run_NothingPlannable(t *testing.T) {
	f := newOptimizerFixture(t, testExemplar, OptimizerConfig{})
	f.engine.ExplainFunc = func(_ context.Context, sql string) (*queryengine.Plan, error) {
		return nil, queryengine.NewError("explain", sql, errors.New("Table 'lake.db.orders' does not exist"))
	}

	outcome := f.service.Run(context.Background(), joinBatch())

	require.False(t, outcome.Failed(), outcome.Error)
	assert.Empty(t, outcome.Report.RankedQueries)
	assert.Contains(t, outcome.Report.Summary, "Analysis is impossible")
	assert.Empty(t, f.oracle.Prompts())

	data, err := json.Marshal(outcome)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ddl": [], "migrations": [], "queries": []}`, string(data))
}

func TestOptimizerService_Run_Exhausted(t *testing.T) {
	f := newOptimizerFixture(t, testExemplar, OptimizerConfig{Loop: LoopConfig{MaxCorrections: 1}})
	f.engine.ExplainFunc = func(_ context.Context, sql string) (*queryengine.Plan, error) {
		if strings.Contains(sql, "simulated_new_table") {
			return nil, queryengine.NewError("explain", sql, errors.New("Column 'region' cannot be resolved"))
		}
		return &queryengine.Plan{Format: queryengine.PlanFormatJSON, Body: []byte(`{}`)}, nil
	}

	outcome := f.service.Run(context.Background(), joinBatch())

	assert.Contains(t, outcome.Error, "no valid remediation produced")
	assert.Contains(t, outcome.Error, "Column 'region' cannot be resolved")
	require.Len(t, f.oracle.Prompts(), 2)
	assert.Contains(t, f.oracle.Prompts()[1], "Column 'region' cannot be resolved")
	assert.NotEmpty(t, outcome.Transitions)
}

func TestOptimizerService_Run_TableStats(t *testing.T) {
	f := newOptimizerFixture(t, testExemplar, OptimizerConfig{IncludeTableStats: true})
	f.engine.TableStatsFunc = func(_ context.Context, table string) ([]map[string]any, error) {
		if table == "lake.db.customers" {
			return nil, errors.New("access denied")
		}
		return []map[string]any{{"column_name": "customer_id", "distinct_values_count": 5000}}, nil
	}

	outcome := f.service.Run(context.Background(), joinBatch())

	require.False(t, outcome.Failed(), outcome.Error)
	assert.ElementsMatch(t, []string{"lake.db.orders", "lake.db.customers"}, f.engine.StatsRequests())
	prompt := f.oracle.Prompts()[0]
	assert.Contains(t, prompt, "### lake.db.orders")
	assert.NotContains(t, prompt, "### lake.db.customers")
}

func TestOptimizerService_Analyze(t *testing.T) {
	f := newOptimizerFixture(t, testExemplar, OptimizerConfig{TopN: 1})

	report, err := f.service.Analyze(context.Background(), joinBatch())

	require.NoError(t, err)
	require.Len(t, report.RankedQueries, 1)
	assert.Equal(t, "q1", report.RankedQueries[0].QueryID)
	assert.Empty(t, f.oracle.Prompts())
	assert.True(t, f.engine.Closed())
}
