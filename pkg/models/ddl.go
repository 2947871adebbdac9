package models

import (
	"fmt"

	"github.com/Vvil1568/lct-hackathone/pkg/apperrors"
	"github.com/Vvil1568/lct-hackathone/pkg/sqlast"
)

// TableDDL is one parsed CREATE TABLE from the batch.
type TableDDL struct {
	Canonical  string
	Statement  string
	Definition *sqlast.TableDefinition
}

// DDLIndex looks up batch DDL by canonical table name. Immutable once built.
type DDLIndex struct {
	tables map[string]*TableDDL
	order  []string
}

// NewDDLIndex parses every CREATE TABLE in stmts. Other statements
// (CREATE SCHEMA, comments) are ignored. A CREATE TABLE that cannot be
// parsed is an input error.
func NewDDLIndex(stmts []DDLStatement, dialect sqlast.Dialect, norm sqlast.Normalizer) (*DDLIndex, error) {
	idx := &DDLIndex{tables: make(map[string]*TableDDL, len(stmts))}
	for i, stmt := range stmts {
		if !sqlast.IsCreateTable(stmt.Statement) {
			continue
		}
		def, err := dialect.ParseCreateTable(stmt.Statement)
		if err != nil {
			return nil, fmt.Errorf("%w: ddl #%d: %v", apperrors.ErrInvalidInput, i+1, err)
		}
		name := norm.Canonical(def.Name)
		if _, dup := idx.tables[name]; !dup {
			idx.order = append(idx.order, name)
		}
		idx.tables[name] = &TableDDL{Canonical: name, Statement: stmt.Statement, Definition: def}
	}
	return idx, nil
}

// Lookup returns the DDL for a canonical table name.
func (idx *DDLIndex) Lookup(canonical string) (*TableDDL, bool) {
	if idx == nil {
		return nil, false
	}
	t, ok := idx.tables[canonical]
	return t, ok
}

// ColumnCount returns the declared column count, or -1 when the table has no DDL.
func (idx *DDLIndex) ColumnCount(canonical string) int {
	t, ok := idx.Lookup(canonical)
	if !ok {
		return -1
	}
	return len(t.Definition.Columns)
}

// Names returns the indexed tables in DDL order.
func (idx *DDLIndex) Names() []string {
	if idx == nil {
		return nil
	}
	return append([]string(nil), idx.order...)
}

// Len returns the number of indexed tables.
func (idx *DDLIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.order)
}
