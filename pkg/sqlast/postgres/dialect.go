// Package postgres parses SQL with the PostgreSQL grammar. It serves Trino,
// PostgreSQL and SQL Server targets: the grammar accepts the ANSI subset the
// analysis needs, including three-part catalog.schema.table names.
package postgres

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"google.golang.org/protobuf/proto"

	"github.com/Vvil1568/lct-hackathone/pkg/sqlast"
)

func init() {
	sqlast.Register("postgres", func() sqlast.Dialect { return &Dialect{} })
}

// Dialect implements sqlast.Dialect on top of libpg_query.
type Dialect struct{}

func (*Dialect) Name() string { return "postgres" }

func (*Dialect) QuoteIdent(name string) string { return sqlast.QuoteIdentWith(name, '"') }

// ParseQuery parses the first statement of sql and summarises its structure.
func (*Dialect) ParseQuery(sql string) (*sqlast.QueryInfo, error) {
	result, err := pg_query.Parse(sqlast.StripTerminator(sql))
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	if len(result.Stmts) == 0 {
		return nil, errors.New("no statements found")
	}

	c := &collector{cteNames: make(map[string]bool)}
	c.collect(result.Stmts[0].Stmt)
	return c.info(), nil
}

// ParseCreateTable extracts the table name and columns of a CREATE TABLE.
// Engine-specific property tails are cut before parsing; column types the
// grammar rejects fall back to lexical extraction.
func (*Dialect) ParseCreateTable(ddl string) (*sqlast.TableDefinition, error) {
	if !sqlast.IsCreateTable(ddl) {
		return nil, errors.New("not a CREATE TABLE statement")
	}
	head, props := sqlast.SplitTableProperties(ddl)

	result, err := pg_query.Parse(head)
	if err != nil || len(result.Stmts) == 0 {
		return sqlast.LexicalCreateTable(ddl)
	}
	create := result.Stmts[0].Stmt.GetCreateStmt()
	if create == nil || create.Relation == nil {
		return sqlast.LexicalCreateTable(ddl)
	}

	def := &sqlast.TableDefinition{
		Name:        tableName(create.Relation),
		Partitioned: create.Partspec != nil || sqlast.DeclaresPartitioning(props),
	}
	for _, elt := range create.TableElts {
		if col := elt.GetColumnDef(); col != nil {
			def.Columns = append(def.Columns, col.Colname)
		}
	}
	if len(def.Columns) == 0 {
		return nil, fmt.Errorf("CREATE TABLE %s declares no columns", def.Name)
	}
	return def, nil
}

type located[T any] struct {
	pos   int32
	value T
}

type collector struct {
	cteNames  map[string]bool
	tables    []located[sqlast.TableRef]
	filters   []located[sqlast.ColumnRef]
	having    []located[string]
	stars     []string
	sources   []sqlast.TableRef
	crossJoin bool
}

func (c *collector) collect(root *pg_query.Node) {
	walk(root, func(m proto.Message) bool {
		if cte, ok := m.(*pg_query.CommonTableExpr); ok {
			c.cteNames[cte.Ctename] = true
		}
		return true
	})

	walk(root, func(m proto.Message) bool {
		switch n := m.(type) {
		case *pg_query.RangeVar:
			if n.Catalogname == "" && n.Schemaname == "" && c.cteNames[n.Relname] {
				return true
			}
			ref := sqlast.TableRef{Name: tableName(n)}
			if n.Alias != nil {
				ref.Alias = n.Alias.Aliasname
			}
			c.tables = append(c.tables, located[sqlast.TableRef]{n.Location, ref})
		case *pg_query.JoinExpr:
			if isCrossJoin(n) {
				c.crossJoin = true
			}
		case *pg_query.SelectStmt:
			c.whereColumns(n.WhereClause)
			c.havingConditions(n.HavingClause)
		}
		return true
	})

	if sel := root.GetSelectStmt(); sel != nil {
		c.starTargets(sel)
	} else if ins := root.GetInsertStmt(); ins != nil && ins.SelectStmt != nil {
		if sel := ins.SelectStmt.GetSelectStmt(); sel != nil {
			c.starTargets(sel)
		}
	}
}

func (c *collector) info() *sqlast.QueryInfo {
	return &sqlast.QueryInfo{
		Tables:                sortByPos(c.tables),
		FilterColumns:         sortByPos(c.filters),
		CrossJoin:             c.crossJoin,
		PlainHavingConditions: sortByPos(c.having),
		StarQualifiers:        c.stars,
		StarSources:           c.sources,
	}
}

func sortByPos[T any](items []located[T]) []T {
	sort.SliceStable(items, func(i, j int) bool { return items[i].pos < items[j].pos })
	out := make([]T, len(items))
	for i, it := range items {
		out[i] = it.value
	}
	return out
}

// whereColumns records column references of one WHERE clause. Nested
// selects are skipped here; the outer walk reaches them on its own.
func (c *collector) whereColumns(where *pg_query.Node) {
	walk(where, func(m proto.Message) bool {
		switch n := m.(type) {
		case *pg_query.SelectStmt:
			return false
		case *pg_query.ColumnRef:
			if col, ok := columnRef(n); ok {
				c.filters = append(c.filters, located[sqlast.ColumnRef]{n.Location, col})
			}
		}
		return true
	})
}

var comparisonOps = map[string]bool{
	"=": true, "<>": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
}

func (c *collector) havingConditions(having *pg_query.Node) {
	walk(having, func(m proto.Message) bool {
		switch n := m.(type) {
		case *pg_query.SelectStmt:
			return false
		case *pg_query.A_Expr:
			op := operatorName(n)
			if n.Kind != pg_query.A_Expr_Kind_AEXPR_OP || !comparisonOps[op] {
				return true
			}
			if !containsAggregate(n.Lexpr) && !containsAggregate(n.Rexpr) {
				c.having = append(c.having, located[string]{n.Location, renderComparison(n, op)})
			}
			return false
		}
		return true
	})
}

func (c *collector) starTargets(sel *pg_query.SelectStmt) {
	if sel.Op != pg_query.SetOperation_SETOP_NONE && sel.Op != pg_query.SetOperation_SET_OPERATION_UNDEFINED {
		if sel.Larg != nil {
			c.starTargets(sel.Larg)
		}
		if sel.Rarg != nil {
			c.starTargets(sel.Rarg)
		}
		return
	}
	before := len(c.stars)
	for _, target := range sel.TargetList {
		rt := target.GetResTarget()
		if rt == nil || rt.Val == nil {
			continue
		}
		ref := rt.Val.GetColumnRef()
		if ref == nil || len(ref.Fields) == 0 || ref.Fields[len(ref.Fields)-1].GetAStar() == nil {
			continue
		}
		qualifier := ""
		if len(ref.Fields) >= 2 {
			if s := ref.Fields[len(ref.Fields)-2].GetString_(); s != nil {
				qualifier = s.Sval
			}
		}
		c.stars = append(c.stars, qualifier)
	}
	if len(c.stars) > before {
		for _, item := range sel.FromClause {
			c.fromTables(item)
		}
	}
}

// fromTables records the base tables of one FROM item, descending into
// joins but not into subselects.
func (c *collector) fromTables(n *pg_query.Node) {
	if rv := n.GetRangeVar(); rv != nil {
		if rv.Catalogname == "" && rv.Schemaname == "" && c.cteNames[rv.Relname] {
			return
		}
		ref := sqlast.TableRef{Name: tableName(rv)}
		if rv.Alias != nil {
			ref.Alias = rv.Alias.Aliasname
		}
		c.sources = append(c.sources, ref)
		return
	}
	if j := n.GetJoinExpr(); j != nil {
		c.fromTables(j.Larg)
		c.fromTables(j.Rarg)
	}
}

// isCrossJoin matches `a CROSS JOIN b`, which the grammar turns into an
// inner join with no qualification. Comma joins are not JoinExpr nodes.
func isCrossJoin(j *pg_query.JoinExpr) bool {
	return j.Jointype == pg_query.JoinType_JOIN_INNER &&
		j.Quals == nil &&
		len(j.UsingClause) == 0 &&
		!j.IsNatural
}

func tableName(rv *pg_query.RangeVar) sqlast.TableName {
	return sqlast.TableName{
		Catalog: rv.Catalogname,
		Schema:  rv.Schemaname,
		Name:    rv.Relname,
	}
}

func columnRef(ref *pg_query.ColumnRef) (sqlast.ColumnRef, bool) {
	var names []string
	for _, f := range ref.Fields {
		if s := f.GetString_(); s != nil {
			names = append(names, s.Sval)
		}
	}
	if len(names) == 0 || len(names) != len(ref.Fields) {
		return sqlast.ColumnRef{}, false
	}
	col := sqlast.ColumnRef{Name: names[len(names)-1]}
	if len(names) > 1 {
		col.Qualifier = names[len(names)-2]
	}
	return col, true
}

func operatorName(e *pg_query.A_Expr) string {
	if len(e.Name) == 0 {
		return ""
	}
	if s := e.Name[len(e.Name)-1].GetString_(); s != nil {
		return s.Sval
	}
	return ""
}

// aggregateFuncs covers the PostgreSQL and Trino aggregate functions that
// show up in HAVING clauses.
var aggregateFuncs = map[string]bool{
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
	"array_agg": true, "string_agg": true, "listagg": true, "bool_and": true, "bool_or": true,
	"every": true, "arbitrary": true, "any_value": true, "count_if": true,
	"approx_distinct": true, "approx_percentile": true, "approx_most_frequent": true,
	"max_by": true, "min_by": true, "map_agg": true, "multimap_agg": true, "histogram": true,
	"stddev": true, "stddev_pop": true, "stddev_samp": true, "variance": true,
	"var_pop": true, "var_samp": true, "corr": true, "covar_pop": true, "covar_samp": true,
	"checksum": true, "geometric_mean": true, "percentile_cont": true, "percentile_disc": true,
}

func containsAggregate(n *pg_query.Node) bool {
	found := false
	walk(n, func(m proto.Message) bool {
		if found {
			return false
		}
		if fc, ok := m.(*pg_query.FuncCall); ok {
			if fc.AggStar || fc.AggDistinct || fc.AggFilter != nil || len(fc.AggOrder) > 0 {
				found = true
				return false
			}
			if len(fc.Funcname) > 0 {
				if s := fc.Funcname[len(fc.Funcname)-1].GetString_(); s != nil && aggregateFuncs[strings.ToLower(s.Sval)] {
					found = true
					return false
				}
			}
		}
		return true
	})
	return found
}

// renderComparison turns a comparison back into SQL text via the deparser,
// falling back to a minimal printer for operands it cannot handle alone.
func renderComparison(e *pg_query.A_Expr, op string) string {
	node := &pg_query.Node{Node: &pg_query.Node_AExpr{AExpr: e}}
	stmt := &pg_query.SelectStmt{
		TargetList: []*pg_query.Node{
			{Node: &pg_query.Node_ResTarget{ResTarget: &pg_query.ResTarget{Val: node}}},
		},
		Op:          pg_query.SetOperation_SETOP_NONE,
		LimitOption: pg_query.LimitOption_LIMIT_OPTION_DEFAULT,
	}
	tree := &pg_query.ParseResult{
		Stmts: []*pg_query.RawStmt{{Stmt: &pg_query.Node{Node: &pg_query.Node_SelectStmt{SelectStmt: stmt}}}},
	}
	if out, err := pg_query.Deparse(tree); err == nil {
		return strings.TrimSpace(strings.TrimPrefix(out, "SELECT "))
	}
	return operand(e.Lexpr) + " " + op + " " + operand(e.Rexpr)
}

func operand(n *pg_query.Node) string {
	if n == nil {
		return "?"
	}
	if ref := n.GetColumnRef(); ref != nil {
		if col, ok := columnRef(ref); ok {
			if col.Qualifier != "" {
				return col.Qualifier + "." + col.Name
			}
			return col.Name
		}
	}
	if c := n.GetAConst(); c != nil {
		switch {
		case c.GetIval() != nil:
			return fmt.Sprintf("%d", c.GetIval().Ival)
		case c.GetFval() != nil:
			return c.GetFval().Fval
		case c.GetSval() != nil:
			return "'" + strings.ReplaceAll(c.GetSval().Sval, "'", "''") + "'"
		case c.GetBoolval() != nil:
			return fmt.Sprintf("%t", c.GetBoolval().Boolval)
		}
	}
	return "?"
}
