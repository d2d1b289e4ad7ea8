package composer

import (
	"testing"

	"github.com/stemsi/qbank-composer/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestApplyTemplateConstraints_EarlierSectionsWin(t *testing.T) {
	mc := model.QuestionTypeMultipleChoice
	s1 := selected(
		question("MATH101", mc, 3),
		question("MATH101", mc, 3),
		question("MATH101", mc, 4),
	)
	s2 := selected(
		question("MATH101", mc, 2),
		question("MATH101", mc, 5),
		question("MATH101", mc, 3),
	)
	all := append(append([]model.SelectedQuestion{}, s1...), s2...)

	res := ApplyTemplateConstraints(all, model.Ceilings{MaxPoints: ptr(15.0)})

	want := append(ids(s1), s2[0].ID, s2[2].ID)
	assert.Equal(t, want, ids(res.Kept))
	assert.Equal(t, ids(s2[1:2]), ids(res.Dropped))

	total, _ := sum(res.Kept)
	assert.InDelta(t, 15.0, total, epsilon)
}

func TestApplyTemplateConstraints_PerType(t *testing.T) {
	all := selected(
		question("MATH101", model.QuestionTypeTrueFalse, 2),
		question("MATH101", model.QuestionTypeLongAnswer, 10),
		question("MATH101", model.QuestionTypeTrueFalse, 2),
		question("MATH101", model.QuestionTypeTrueFalse, 2),
	)

	res := ApplyTemplateConstraints(all, model.Ceilings{MaxTFPoints: ptr(4.0)})
	assert.Equal(t, ids(all[:3]), ids(res.Kept))
	assert.Len(t, res.Dropped, 1)
}

func TestApplyTemplateConstraints_PassThrough(t *testing.T) {
	all := selected(
		question("MATH101", model.QuestionTypeShortAnswer, 50),
		question("MATH101", model.QuestionTypeShortAnswer, 50),
	)

	res := ApplyTemplateConstraints(all, model.Ceilings{MaxPoints: ptr(0.0)})
	assert.Equal(t, ids(all), ids(res.Kept))
	assert.Empty(t, res.Dropped)
}

func TestBuildResult(t *testing.T) {
	all := selected(
		question("MATH101", model.QuestionTypeMultipleChoice, 1),
		question("MATH101", model.QuestionTypeLongAnswer, 6.5),
	)

	res := BuildResult(all, model.SourceComputed)
	assert.InDelta(t, 7.5, res.TotalPoints, epsilon)
	assert.InDelta(t, 1.0, res.PointsByType.MultipleChoice, epsilon)
	assert.InDelta(t, 6.5, res.PointsByType.LongAnswer, epsilon)
	assert.Equal(t, model.SourceComputed, res.Source)
}
