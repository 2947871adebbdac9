// Package detectors holds the structural pattern detectors run over the
// ranked queries of a batch. Detectors are pure: they never call the engine
// or the oracle, never mutate their input and skip queries that could not be
// parsed.
package detectors

import (
	"sync"

	"github.com/Vvil1568/lct-hackathone/pkg/models"
)

// Detector ids double as keys into the solution library.
const (
	JoinPatternID       = "JoinPatternDetector"
	PartitioningID      = "PartitioningCandidateDetector"
	CrossJoinID         = "CrossJoinDetector"
	InefficientHavingID = "InefficientAggregationDetector"
	SelectStarID        = "SelectStarDetector"
)

// Priorities; higher is more severe.
const (
	JoinPatternPriority       = 10
	PartitioningPriority      = 9
	CrossJoinPriority         = 8
	InefficientHavingPriority = 7
	SelectStarPriority        = 5
)

// DefaultWideTableColumns is the column count above which SELECT * is flagged.
const DefaultWideTableColumns = 20

// Detector inspects ranked queries and optionally emits findings.
type Detector interface {
	ID() string
	Name() string
	Detect(queries []*models.ProfiledQuery, ddl *models.DDLIndex) []models.DetectionResult
}

// Default returns the detector set in registration order. The order breaks
// priority ties in the arbiter.
func Default(wideTableColumns int) []Detector {
	if wideTableColumns <= 0 {
		wideTableColumns = DefaultWideTableColumns
	}
	return []Detector{
		FrequentJoins{},
		PartitioningCandidate{},
		CrossJoin{},
		InefficientHaving{},
		SelectStarOnWideTable{MinColumns: wideTableColumns},
	}
}

// RunAll runs every detector concurrently over the same snapshot and returns
// their results concatenated in detector order.
func RunAll(set []Detector, queries []*models.ProfiledQuery, ddl *models.DDLIndex) []models.DetectionResult {
	perDetector := make([][]models.DetectionResult, len(set))

	var wg sync.WaitGroup
	for i, d := range set {
		wg.Add(1)
		go func() {
			defer wg.Done()
			perDetector[i] = d.Detect(queries, ddl)
		}()
	}
	wg.Wait()

	var all []models.DetectionResult
	for _, results := range perDetector {
		all = append(all, results...)
	}
	return all
}

// parsed returns the queries that carry a structural summary.
func parsed(queries []*models.ProfiledQuery) []*models.ProfiledQuery {
	out := make([]*models.ProfiledQuery, 0, len(queries))
	for _, q := range queries {
		if q != nil && q.Info != nil {
			out = append(out, q)
		}
	}
	return out
}

func queryIDs(queries []*models.ProfiledQuery) []string {
	ids := make([]string, len(queries))
	for i, q := range queries {
		ids[i] = q.QueryID
	}
	return ids
}
