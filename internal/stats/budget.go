package stats

import "github.com/verte-zerg/subcrack/internal/model"

// BudgetToReach returns the smallest budget whose mean text accuracy is at
// least threshold percent.
func BudgetToReach(points []model.ConvergencePoint, threshold float64) (int, bool) {
	best, found := 0, false
	for _, p := range points {
		if p.NoData || p.MeanAccuracy < threshold {
			continue
		}
		if !found || p.Budget < best {
			best, found = p.Budget, true
		}
	}
	return best, found
}
