// Package mysql parses SQL with the MySQL grammar for Doris, StarRocks and
// MySQL targets. Names are two-part (database.table); identifiers are
// compared case-insensitively, so the lower-cased form is used throughout.
package mysql

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/pingcap/tidb/parser"
	"github.com/pingcap/tidb/parser/ast"
	"github.com/pingcap/tidb/parser/format"
	"github.com/pingcap/tidb/parser/opcode"
	_ "github.com/pingcap/tidb/parser/test_driver"

	"github.com/Vvil1568/lct-hackathone/pkg/sqlast"
)

func init() {
	sqlast.Register("mysql", func() sqlast.Dialect { return NewDialect() })
}

// Dialect implements sqlast.Dialect on top of the TiDB parser. A TiDB
// parser keeps scanner state between calls, so every parse borrows one from
// a pool and holds it until the statement has been read. A Dialect is safe
// for concurrent use.
type Dialect struct {
	parsers sync.Pool
}

func NewDialect() *Dialect {
	d := &Dialect{}
	d.parsers.New = func() any { return parser.New() }
	return d
}

func (*Dialect) Name() string { return "mysql" }

func (*Dialect) QuoteIdent(name string) string { return sqlast.QuoteIdentWith(name, '`') }

// The grammar reports comma joins and CROSS JOIN with the same join type.
var crossJoinKeyword = regexp.MustCompile(`(?i)\bcross\s+join\b`)

// parse hands the first statement of sql to read while the parser that
// produced it is still checked out.
func (d *Dialect) parse(sql string, read func(stmt ast.StmtNode)) error {
	p := d.parsers.Get().(*parser.Parser)
	defer d.parsers.Put(p)

	stmts, _, err := p.Parse(sqlast.StripTerminator(sql), "", "")
	if err != nil {
		return err
	}
	if len(stmts) == 0 {
		return errors.New("no statements found")
	}
	read(stmts[0])
	return nil
}

// ParseQuery parses the first statement of sql and summarises its structure.
func (d *Dialect) ParseQuery(sql string) (*sqlast.QueryInfo, error) {
	var info *sqlast.QueryInfo
	err := d.parse(sql, func(stmt ast.StmtNode) {
		c := &collector{cteNames: make(map[string]bool), explicitCross: crossJoinKeyword.MatchString(sql)}
		c.collect(stmt)
		info = c.result()
	})
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	return info, nil
}

// ParseCreateTable extracts the table name and columns of a CREATE TABLE.
// Doris key, distribution and properties clauses are cut before parsing.
func (d *Dialect) ParseCreateTable(ddl string) (*sqlast.TableDefinition, error) {
	if !sqlast.IsCreateTable(ddl) {
		return nil, errors.New("not a CREATE TABLE statement")
	}
	head, props := sqlast.SplitTableProperties(ddl)

	var def *sqlast.TableDefinition
	err := d.parse(head, func(stmt ast.StmtNode) {
		create, ok := stmt.(*ast.CreateTableStmt)
		if !ok || create.Table == nil {
			return
		}
		def = &sqlast.TableDefinition{
			Name:        sqlast.TableName{Schema: create.Table.Schema.L, Name: create.Table.Name.L},
			Partitioned: create.Partition != nil || sqlast.DeclaresPartitioning(props),
		}
		for _, col := range create.Cols {
			def.Columns = append(def.Columns, col.Name.Name.L)
		}
	})
	if err != nil || def == nil {
		return sqlast.LexicalCreateTable(ddl)
	}
	if len(def.Columns) == 0 {
		return nil, fmt.Errorf("CREATE TABLE %s declares no columns", def.Name)
	}
	return def, nil
}

// visitor adapts a function to ast.Visitor. Returning false skips children.
type visitor func(n ast.Node) bool

func (v visitor) Enter(n ast.Node) (ast.Node, bool) {
	return n, !v(n)
}

func (v visitor) Leave(n ast.Node) (ast.Node, bool) {
	return n, true
}

func walk(n ast.Node, fn func(ast.Node) bool) {
	if n == nil {
		return
	}
	n.Accept(visitor(fn))
}

type collector struct {
	cteNames      map[string]bool
	explicitCross bool
	info          sqlast.QueryInfo
}

func (c *collector) collect(stmt ast.StmtNode) {
	walk(stmt, func(n ast.Node) bool {
		if cte, ok := n.(*ast.CommonTableExpression); ok {
			c.cteNames[cte.Name.L] = true
		}
		return true
	})

	walk(stmt, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.TableSource:
			if tn, ok := x.Source.(*ast.TableName); ok {
				c.addTable(tn, x.AsName.L)
				return false
			}
		case *ast.TableName:
			c.addTable(x, "")
		case *ast.Join:
			if c.explicitCross && x.Right != nil && x.Tp == ast.CrossJoin &&
				x.On == nil && len(x.Using) == 0 && !x.NaturalJoin {
				c.info.CrossJoin = true
			}
		case *ast.SelectStmt:
			c.whereColumns(x.Where)
			if x.Having != nil {
				c.havingConditions(x.Having.Expr)
			}
		}
		return true
	})

	c.starTargets(stmt)
}

func (c *collector) result() *sqlast.QueryInfo {
	return &c.info
}

func (c *collector) addTable(tn *ast.TableName, alias string) {
	if tn.Schema.L == "" && c.cteNames[tn.Name.L] {
		return
	}
	c.info.Tables = append(c.info.Tables, sqlast.TableRef{
		Name:  sqlast.TableName{Schema: tn.Schema.L, Name: tn.Name.L},
		Alias: alias,
	})
}

func (c *collector) whereColumns(where ast.ExprNode) {
	walk(where, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.SubqueryExpr:
			return false
		case *ast.ColumnNameExpr:
			c.info.FilterColumns = append(c.info.FilterColumns, sqlast.ColumnRef{
				Qualifier: x.Name.Table.L,
				Name:      x.Name.Name.L,
			})
		}
		return true
	})
}

var comparisonOps = map[opcode.Op]bool{
	opcode.EQ: true, opcode.NE: true, opcode.LT: true, opcode.LE: true,
	opcode.GT: true, opcode.GE: true, opcode.NullEQ: true,
}

func (c *collector) havingConditions(having ast.ExprNode) {
	walk(having, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.SubqueryExpr:
			return false
		case *ast.BinaryOperationExpr:
			if !comparisonOps[x.Op] {
				return true
			}
			if !containsAggregate(x.L) && !containsAggregate(x.R) {
				c.info.PlainHavingConditions = append(c.info.PlainHavingConditions, restore(x))
			}
			return false
		}
		return true
	})
}

func (c *collector) starTargets(n ast.Node) {
	switch x := n.(type) {
	case *ast.SelectStmt:
		if x.Fields == nil {
			return
		}
		before := len(c.info.StarQualifiers)
		for _, f := range x.Fields.Fields {
			if f.WildCard != nil {
				c.info.StarQualifiers = append(c.info.StarQualifiers, f.WildCard.Table.L)
			}
		}
		if len(c.info.StarQualifiers) > before && x.From != nil {
			c.fromTables(x.From.TableRefs)
		}
	case *ast.SetOprStmt:
		if x.SelectList != nil {
			c.starTargets(x.SelectList)
		}
	case *ast.SetOprSelectList:
		for _, sel := range x.Selects {
			c.starTargets(sel)
		}
	case *ast.InsertStmt:
		if x.Select != nil {
			c.starTargets(x.Select)
		}
	}
}

// fromTables records the base tables of a FROM clause, descending into
// joins but not into derived tables.
func (c *collector) fromTables(n ast.ResultSetNode) {
	switch x := n.(type) {
	case *ast.Join:
		if x == nil {
			return
		}
		c.fromTables(x.Left)
		c.fromTables(x.Right)
	case *ast.TableSource:
		tn, ok := x.Source.(*ast.TableName)
		if !ok || (tn.Schema.L == "" && c.cteNames[tn.Name.L]) {
			return
		}
		c.info.StarSources = append(c.info.StarSources, sqlast.TableRef{
			Name:  sqlast.TableName{Schema: tn.Schema.L, Name: tn.Name.L},
			Alias: x.AsName.L,
		})
	}
}

func containsAggregate(n ast.ExprNode) bool {
	found := false
	walk(n, func(node ast.Node) bool {
		if found {
			return false
		}
		switch node.(type) {
		case *ast.AggregateFuncExpr:
			found = true
			return false
		}
		return true
	})
	return found
}

func restore(n ast.Node) string {
	var sb strings.Builder
	if err := n.Restore(format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)); err != nil {
		return n.Text()
	}
	return sb.String()
}
