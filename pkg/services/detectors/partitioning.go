package detectors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Vvil1568/lct-hackathone/pkg/models"
	"github.com/Vvil1568/lct-hackathone/pkg/sqlast"
)

const maxPartitionColumns = 2

// PartitioningCandidate fires for the most-read table when it is read by at
// least two queries, its DDL is known and unpartitioned, and those queries
// filter on its columns.
type PartitioningCandidate struct{}

func (PartitioningCandidate) ID() string   { return PartitioningID }
func (PartitioningCandidate) Name() string { return "Partitioning candidate" }

func (PartitioningCandidate) Detect(queries []*models.ProfiledQuery, ddl *models.DDLIndex) []models.DetectionResult {
	candidates := parsed(queries)

	refs := make(map[string]int)
	var order []string
	for _, q := range candidates {
		for _, table := range q.Tables {
			if refs[table] == 0 {
				order = append(order, table)
			}
			refs[table]++
		}
	}
	if len(order) == 0 {
		return nil
	}

	top := order[0]
	for _, table := range order[1:] {
		if refs[table] > refs[top] {
			top = table
		}
	}
	if refs[top] < 2 {
		return nil
	}

	entry, ok := ddl.Lookup(top)
	if !ok || entry.Definition.Partitioned {
		return nil
	}

	known := make(map[string]bool, len(entry.Definition.Columns))
	for _, c := range entry.Definition.Columns {
		known[strings.ToLower(c)] = true
	}

	filterCounts := make(map[string]int)
	var filterOrder []string
	var matched []*models.ProfiledQuery
	for _, q := range candidates {
		if !contains(q.Tables, top) {
			continue
		}
		matched = append(matched, q)
		for _, col := range q.Info.FilterColumns {
			if !filtersTable(col, q, top, known) {
				continue
			}
			name := strings.ToLower(col.Name)
			if filterCounts[name] == 0 {
				filterOrder = append(filterOrder, name)
			}
			filterCounts[name]++
		}
	}
	if len(filterOrder) == 0 {
		return nil
	}

	sort.SliceStable(filterOrder, func(i, j int) bool {
		return filterCounts[filterOrder[i]] > filterCounts[filterOrder[j]]
	})
	if len(filterOrder) > maxPartitionColumns {
		filterOrder = filterOrder[:maxPartitionColumns]
	}

	return []models.DetectionResult{{
		PatternName: "Partitioning candidate",
		DetectorID:  PartitioningID,
		Message: fmt.Sprintf("Table %s is read by %d of the costliest queries and is not partitioned. "+
			"Create a partitioned copy keyed on the most filtered columns: %s.",
			top, refs[top], strings.Join(filterOrder, ", ")),
		Priority:       PartitioningPriority,
		MatchedQueries: matched,
	}}
}

// filtersTable reports whether a WHERE column belongs to table in query q.
// Qualified columns must name one of the table's occurrences; unqualified
// ones are attributed when the column is declared in the table's DDL.
func filtersTable(col sqlast.ColumnRef, q *models.ProfiledQuery, table string, known map[string]bool) bool {
	if !known[strings.ToLower(col.Name)] {
		return false
	}
	if col.Qualifier == "" {
		return true
	}
	for _, ref := range q.Info.Tables {
		if sqlast.RefersTo(col.Qualifier, ref) && qualifiedMatches(ref, table) {
			return true
		}
	}
	return false
}

// qualifiedMatches compares a reference with a canonical name by its trailing parts.
func qualifiedMatches(ref sqlast.TableRef, canonical string) bool {
	name := strings.ToLower(ref.Name.String())
	canonical = strings.ToLower(canonical)
	return canonical == name || strings.HasSuffix(canonical, "."+name)
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
