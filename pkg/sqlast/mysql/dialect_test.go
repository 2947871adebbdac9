package mysql

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vvil1568/lct-hackathone/pkg/sqlast"
)

func TestParseQuery_TablesAndFilters(t *testing.T) {
	d := NewDialect()
	info, err := d.ParseQuery("SELECT o.id FROM sales.orders o JOIN sales.customers c ON o.cid = c.id WHERE o.dt > '2024-01-01' AND c.region = 'EU';")
	require.NoError(t, err)

	require.Len(t, info.Tables, 2)
	assert.Equal(t, sqlast.TableRef{Name: sqlast.TableName{Schema: "sales", Name: "orders"}, Alias: "o"}, info.Tables[0])
	assert.Equal(t, "sales.customers", info.Tables[1].Name.String())
	assert.Equal(t, []sqlast.ColumnRef{
		{Qualifier: "o", Name: "dt"},
		{Qualifier: "c", Name: "region"},
	}, info.FilterColumns)
	assert.False(t, info.CrossJoin)
}

func TestParseQuery_CrossJoin(t *testing.T) {
	d := NewDialect()

	info, err := d.ParseQuery("SELECT a.x, b.y FROM db.a CROSS JOIN db.b")
	require.NoError(t, err)
	assert.True(t, info.CrossJoin)

	info, err = d.ParseQuery("SELECT a.x, b.y FROM db.a, db.b WHERE a.id = b.id")
	require.NoError(t, err)
	assert.False(t, info.CrossJoin)
}

func TestParseQuery_ExcludesCTEReferences(t *testing.T) {
	d := NewDialect()
	info, err := d.ParseQuery("WITH recent AS (SELECT id FROM db.events WHERE day > 10) SELECT * FROM recent")
	require.NoError(t, err)

	require.Len(t, info.Tables, 1)
	assert.Equal(t, "db.events", info.Tables[0].Name.String())
	assert.Equal(t, []string{""}, info.StarQualifiers)
}

func TestParseQuery_PlainHavingConditions(t *testing.T) {
	d := NewDialect()
	info, err := d.ParseQuery("SELECT region, COUNT(*) FROM db.sales GROUP BY region HAVING region = 'EU' AND COUNT(*) > 10")
	require.NoError(t, err)

	require.Len(t, info.PlainHavingConditions, 1)
	assert.Contains(t, info.PlainHavingConditions[0], "region")
}

func TestParseQuery_QualifiedStar(t *testing.T) {
	d := NewDialect()
	info, err := d.ParseQuery("SELECT w.* FROM db.wide AS w")
	require.NoError(t, err)
	assert.Equal(t, []string{"w"}, info.StarQualifiers)
}

func TestParseQuery_StarSources(t *testing.T) {
	d := NewDialect()

	info, err := d.ParseQuery("SELECT * FROM db.wide w JOIN db.dim d ON w.k = d.k")
	require.NoError(t, err)
	assert.Equal(t, []sqlast.TableRef{
		{Name: sqlast.TableName{Schema: "db", Name: "wide"}, Alias: "w"},
		{Name: sqlast.TableName{Schema: "db", Name: "dim"}, Alias: "d"},
	}, info.StarSources)

	info, err = d.ParseQuery("WITH narrow AS (SELECT c0 FROM db.wide) SELECT * FROM narrow")
	require.NoError(t, err)
	assert.Equal(t, []string{""}, info.StarQualifiers)
	assert.Empty(t, info.StarSources)

	info, err = d.ParseQuery("SELECT * FROM (SELECT c0 FROM db.wide) s")
	require.NoError(t, err)
	assert.Empty(t, info.StarSources)
}

func TestParseCreateTable(t *testing.T) {
	d := NewDialect()

	def, err := d.ParseCreateTable("CREATE TABLE dwh.events (id BIGINT, dt DATE, payload VARCHAR(255))")
	require.NoError(t, err)
	assert.Equal(t, "dwh.events", def.Name.String())
	assert.Equal(t, []string{"id", "dt", "payload"}, def.Columns)
	assert.False(t, def.Partitioned)

	def, err = d.ParseCreateTable(`CREATE TABLE dwh.events (id BIGINT, dt DATE)
		DUPLICATE KEY(id) PARTITION BY RANGE(dt) () DISTRIBUTED BY HASH(id) BUCKETS 10`)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "dt"}, def.Columns)
	assert.True(t, def.Partitioned)
}

func TestParseQuery_Error(t *testing.T) {
	_, err := NewDialect().ParseQuery("SELEC 1")
	assert.Error(t, err)
}

func TestDialect_ConcurrentParses(t *testing.T) {
	d := NewDialect()

	const workers = 16
	infos := make([]*sqlast.QueryInfo, workers)
	defs := make([]*sqlast.TableDefinition, workers)
	errs := make([]error, 2*workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			infos[i], errs[2*i] = d.ParseQuery(fmt.Sprintf("SELECT t.c%d FROM db.t%d t WHERE t.c%d > %d", i, i, i, i))
			defs[i], errs[2*i+1] = d.ParseCreateTable(fmt.Sprintf("CREATE TABLE db.n%d (a INT, b%d VARCHAR(10))", i, i))
		}()
	}
	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[2*i])
		require.NoError(t, errs[2*i+1])
		require.Len(t, infos[i].Tables, 1)
		assert.Equal(t, fmt.Sprintf("db.t%d", i), infos[i].Tables[0].Name.String())
		assert.Equal(t, []sqlast.ColumnRef{{Qualifier: "t", Name: fmt.Sprintf("c%d", i)}}, infos[i].FilterColumns)
		assert.Equal(t, []string{"a", fmt.Sprintf("b%d", i)}, defs[i].Columns)
	}
}
