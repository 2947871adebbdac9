package detectors

import (
	"fmt"
	"strings"

	"github.com/Vvil1568/lct-hackathone/pkg/models"
)

// InefficientHaving fires when a HAVING clause compares values that need no
// aggregation, so the filter could run before grouping.
type InefficientHaving struct{}

func (InefficientHaving) ID() string   { return InefficientHavingID }
func (InefficientHaving) Name() string { return "Inefficient HAVING" }

func (InefficientHaving) Detect(queries []*models.ProfiledQuery, _ *models.DDLIndex) []models.DetectionResult {
	var (
		matched    []*models.ProfiledQuery
		conditions []string
	)
	for _, q := range parsed(queries) {
		if len(q.Info.PlainHavingConditions) == 0 {
			continue
		}
		matched = append(matched, q)
		for _, c := range q.Info.PlainHavingConditions {
			conditions = append(conditions, fmt.Sprintf("%s (query %s)", c, q.QueryID))
		}
	}
	if len(matched) == 0 {
		return nil
	}
	return []models.DetectionResult{{
		PatternName: "Inefficient HAVING",
		DetectorID:  InefficientHavingID,
		Message: fmt.Sprintf("HAVING filters without aggregates: %s. "+
			"Move these conditions into WHERE so rows are discarded before aggregation.",
			strings.Join(conditions, "; ")),
		Priority:       InefficientHavingPriority,
		MatchedQueries: matched,
	}}
}
