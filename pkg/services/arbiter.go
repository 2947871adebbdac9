package services

import (
	"fmt"
	"sort"

	"github.com/Vvil1568/lct-hackathone/pkg/models"
)

const summaryAnalysisImpossible = "Analysis is impossible: none of the submitted queries could be planned by the engine."

// Arbitrate orders findings by descending priority and builds the report.
// findings must be in detector registration order; the stable sort keeps
// that order among equal priorities.
func Arbitrate(ranked []*models.ProfiledQuery, findings []models.DetectionResult) *models.AnalysisReport {
	ordered := make([]models.DetectionResult, len(findings))
	copy(ordered, findings)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	report := &models.AnalysisReport{
		RankedQueries: ranked,
		Findings:      ordered,
	}

	switch {
	case len(ranked) == 0:
		report.Summary = summaryAnalysisImpossible
	case len(ordered) == 0:
		top := ranked[0]
		report.Summary = fmt.Sprintf("No structural anti-pattern was detected. "+
			"Optimize the costliest query %s (cost %d) ad hoc, starting from its execution plan.",
			top.QueryID, top.Cost)
	default:
		dominant := ordered[0]
		report.DominantFinding = &dominant
		report.Summary = dominant.Message
	}
	return report
}
