package detectors

import (
	"fmt"
	"strings"

	"github.com/Vvil1568/lct-hackathone/pkg/models"
	"github.com/Vvil1568/lct-hackathone/pkg/sqlast"
)

// SelectStarOnWideTable fires when a query selects every column of a table
// whose DDL declares more than MinColumns columns.
type SelectStarOnWideTable struct {
	MinColumns int
}

func (SelectStarOnWideTable) ID() string   { return SelectStarID }
func (SelectStarOnWideTable) Name() string { return "SELECT * on wide table" }

func (d SelectStarOnWideTable) Detect(queries []*models.ProfiledQuery, ddl *models.DDLIndex) []models.DetectionResult {
	threshold := d.MinColumns
	if threshold <= 0 {
		threshold = DefaultWideTableColumns
	}

	var (
		matched []*models.ProfiledQuery
		wide    []string
	)
	seenWide := make(map[string]bool)
	for _, q := range parsed(queries) {
		if !q.Info.SelectsAll() {
			continue
		}
		hit := false
		for _, table := range starredTables(q) {
			if ddl.ColumnCount(table) > threshold {
				hit = true
				if !seenWide[table] {
					seenWide[table] = true
					wide = append(wide, fmt.Sprintf("%s (%d columns)", table, ddl.ColumnCount(table)))
				}
			}
		}
		if hit {
			matched = append(matched, q)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	return []models.DetectionResult{{
		PatternName: "SELECT * on wide table",
		DetectorID:  SelectStarID,
		Message: fmt.Sprintf("Queries %s select all columns of wide tables %s. "+
			"Enumerate only the columns that are needed.",
			strings.Join(queryIDs(matched), ", "), strings.Join(wide, ", ")),
		Priority:       SelectStarPriority,
		MatchedQueries: matched,
	}}
}

// starredTables returns the canonical tables covered by the query's stars:
// every base table of the starred FROM clause for a bare *, the qualified
// one for t.*. Stars over CTEs and derived tables cover nothing.
func starredTables(q *models.ProfiledQuery) []string {
	var out []string
	for _, qualifier := range q.Info.StarQualifiers {
		for _, ref := range q.Info.StarSources {
			if qualifier != "" && !sqlast.RefersTo(qualifier, ref) {
				continue
			}
			for _, table := range q.Tables {
				if qualifiedMatches(ref, table) && !contains(out, table) {
					out = append(out, table)
				}
			}
		}
	}
	return out
}
