package services

import (
	"sort"

	"github.com/Vvil1568/lct-hackathone/pkg/models"
)

// DefaultTopN is the number of queries kept by RankByCost when n <= 0.
const DefaultTopN = 5

// RankByCost returns at most n queries ordered by descending cost.
// Equal costs keep their input order. The input slice is not modified.
func RankByCost(queries []*models.ProfiledQuery, n int) []*models.ProfiledQuery {
	if n <= 0 {
		n = DefaultTopN
	}
	ranked := make([]*models.ProfiledQuery, len(queries))
	copy(ranked, queries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Cost > ranked[j].Cost
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
