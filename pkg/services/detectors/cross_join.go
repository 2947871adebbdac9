package detectors

import (
	"fmt"
	"strings"

	"github.com/Vvil1568/lct-hackathone/pkg/models"
)

// CrossJoin fires when a query contains an explicit CROSS JOIN.
type CrossJoin struct{}

func (CrossJoin) ID() string   { return CrossJoinID }
func (CrossJoin) Name() string { return "Cross join" }

func (CrossJoin) Detect(queries []*models.ProfiledQuery, _ *models.DDLIndex) []models.DetectionResult {
	var matched []*models.ProfiledQuery
	for _, q := range parsed(queries) {
		if q.Info.CrossJoin {
			matched = append(matched, q)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	return []models.DetectionResult{{
		PatternName: "Cross join",
		DetectorID:  CrossJoinID,
		Message: fmt.Sprintf("Queries %s use CROSS JOIN, producing a Cartesian product. "+
			"Rewrite them with an explicit join predicate.",
			strings.Join(queryIDs(matched), ", ")),
		Priority:       CrossJoinPriority,
		MatchedQueries: matched,
	}}
}
