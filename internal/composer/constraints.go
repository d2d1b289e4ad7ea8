package composer

import (
	"github.com/stemsi/qbank-composer/internal/model"
)

// FilteredResult splits the concatenated selection into kept and dropped questions.
type FilteredResult struct {
	Kept    []model.SelectedQuestion
	Dropped []model.SelectedQuestion
}

// ApplyTemplateConstraints walks all in the given order and keeps each
// question only while the template ceilings still allow it. Earlier
// sections therefore win when a ceiling is tight.
func ApplyTemplateConstraints(all []model.SelectedQuestion, c model.Ceilings) FilteredResult {
	if !c.Any() {
		return FilteredResult{Kept: append([]model.SelectedQuestion(nil), all...)}
	}

	var (
		t   tally
		res FilteredResult
	)
	for _, q := range all {
		if t.admit(q.Question, c) {
			res.Kept = append(res.Kept, q)
		} else {
			res.Dropped = append(res.Dropped, q)
		}
	}
	return res
}

// BuildResult computes the totals of an ordered question list.
func BuildResult(questions []model.SelectedQuestion, source model.CompositionSource) model.CompositionResult {
	res := model.CompositionResult{
		Questions: append([]model.SelectedQuestion{}, questions...),
		Source:    source,
	}
	for _, q := range questions {
		res.TotalPoints += q.Points
		res.PointsByType.Add(q.Type, q.Points)
	}
	return res
}
