package detectors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Vvil1568/lct-hackathone/pkg/models"
)

const maxReportedPairs = 3

// FrequentJoins fires when the same pair of tables is read together by at
// least two ranked queries.
type FrequentJoins struct{}

func (FrequentJoins) ID() string   { return JoinPatternID }
func (FrequentJoins) Name() string { return "Frequent joins" }

type tablePair struct {
	a, b string
}

func (p tablePair) key() string {
	if p.a < p.b {
		return p.a + "\x00" + p.b
	}
	return p.b + "\x00" + p.a
}

type pairCount struct {
	pair    tablePair
	count   int
	queries []*models.ProfiledQuery
}

func (FrequentJoins) Detect(queries []*models.ProfiledQuery, _ *models.DDLIndex) []models.DetectionResult {
	counts := make(map[string]*pairCount)
	var order []*pairCount

	for _, q := range parsed(queries) {
		tables := q.Tables
		for i := 0; i < len(tables); i++ {
			for j := i + 1; j < len(tables); j++ {
				p := tablePair{a: tables[i], b: tables[j]}
				pc, ok := counts[p.key()]
				if !ok {
					pc = &pairCount{pair: p}
					counts[p.key()] = pc
					order = append(order, pc)
				}
				pc.count++
				pc.queries = append(pc.queries, q)
			}
		}
	}

	frequent := make([]*pairCount, 0, len(order))
	for _, pc := range order {
		if pc.count >= 2 {
			frequent = append(frequent, pc)
		}
	}
	if len(frequent) == 0 {
		return nil
	}
	sort.SliceStable(frequent, func(i, j int) bool {
		return frequent[i].count > frequent[j].count
	})
	if len(frequent) > maxReportedPairs {
		frequent = frequent[:maxReportedPairs]
	}

	descriptions := make([]string, len(frequent))
	seen := make(map[*models.ProfiledQuery]bool)
	var matched []*models.ProfiledQuery
	for i, pc := range frequent {
		descriptions[i] = fmt.Sprintf("%s and %s (%d queries)", pc.pair.a, pc.pair.b, pc.count)
		for _, q := range pc.queries {
			if !seen[q] {
				seen[q] = true
				matched = append(matched, q)
			}
		}
	}
	// Report matched queries in ranking order.
	sort.SliceStable(matched, func(i, j int) bool {
		return indexOf(queries, matched[i]) < indexOf(queries, matched[j])
	})

	return []models.DetectionResult{{
		PatternName: "Frequent joins",
		DetectorID:  JoinPatternID,
		Message: fmt.Sprintf("Tables are repeatedly joined together: %s. "+
			"Denormalize each pair into one wide table so these queries read a single table without a join.",
			strings.Join(descriptions, "; ")),
		Priority:       JoinPatternPriority,
		MatchedQueries: matched,
	}}
}

func indexOf(queries []*models.ProfiledQuery, q *models.ProfiledQuery) int {
	for i, candidate := range queries {
		if candidate == q {
			return i
		}
	}
	return len(queries)
}
