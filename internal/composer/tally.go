package composer

import (
	"math"

	"github.com/stemsi/qbank-composer/internal/model"
)

// epsilon absorbs float drift when comparing point sums against ceilings.
const epsilon = 1e-9

func pointsEqual(a, b float64) bool {
	return math.Abs(a-b) <= epsilon
}

// tally keeps running point totals for one greedy pass.
type tally struct {
	total  float64
	byType model.PointBreakdown
}

// fits reports whether admitting q keeps every active ceiling satisfied.
func (t *tally) fits(q model.Question, c model.Ceilings) bool {
	if limit := c.Total(); limit != nil && t.total+q.Points > *limit+epsilon {
		return false
	}
	if limit := c.ForType(q.Type); limit != nil && t.byType.Get(q.Type)+q.Points > *limit+epsilon {
		return false
	}
	return true
}

func (t *tally) add(q model.Question) {
	t.total += q.Points
	t.byType.Add(q.Type, q.Points)
}

// admit adds q when it fits and reports whether it did.
func (t *tally) admit(q model.Question, c model.Ceilings) bool {
	if !t.fits(q, c) {
		return false
	}
	t.add(q)
	return true
}
