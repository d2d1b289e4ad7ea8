package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-composer/internal/composer"
	"github.com/stemsi/qbank-composer/internal/config"
	"github.com/stemsi/qbank-composer/internal/model"
	"github.com/stemsi/qbank-composer/internal/repository"
	"github.com/stemsi/qbank-composer/internal/store"
	"github.com/stemsi/qbank-composer/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	mr        *miniredis.Miniredis
	questions *repository.MemoryQuestionStore
	templates *repository.MemoryTemplateStore
	template  model.ExamTemplate
	svc       *CompositionService
}

func ptr[T any](v T) *T { return &v }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var bank []model.Question
	block := uuid.New()
	for range 6 {
		bank = append(bank, model.Question{ID: uuid.New(), CourseCode: "MATH101", Type: model.QuestionTypeMultipleChoice, Points: 1, Tags: []string{"algebra"}})
	}
	for n := 1; n <= 2; n++ {
		bank = append(bank, model.Question{
			ID: uuid.New(), CourseCode: "MATH101", Type: model.QuestionTypeLongAnswer,
			Points: float64(2 * n), Tags: []string{"proofs"}, BlockID: &block, VariantNumber: n,
		})
	}

	tpl := model.ExamTemplate{
		ID:   uuid.New(),
		Name: "Midterm",
		Sections: []model.SectionRule{
			{ID: uuid.New(), Name: "Warm-up", Course: "MATH101", Tags: []string{"algebra"}, Count: ptr(3)},
			{ID: uuid.New(), Name: "Proof", Course: "MATH101", Tags: []string{"proofs"}},
		},
	}

	questions := repository.NewMemoryQuestionStore(bank...)
	templates := repository.NewMemoryTemplateStore(tpl)
	engine := composer.NewEngine(questions, store.NewStateStore(rdb, time.Hour), store.NewEventBus(rdb),
		composer.NewSeededSelector(1, 2), composer.Options{PageSize: 50}, zerolog.Nop())

	return &fixture{
		mr:        mr,
		questions: questions,
		templates: templates,
		template:  tpl,
		svc:       NewCompositionService(templates, engine, worker.NewUsageQueue(rdb), 5, time.Hour, zerolog.Nop()),
	}
}

func TestCompositionService_ComposeAndReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.GetComposition(ctx, f.template.ID)
	require.NoError(t, err)
	assert.Len(t, first.Questions, 4)
	assert.Equal(t, model.SourceComputed, first.Source)
	assert.True(t, f.mr.Exists(config.CacheKey.CompositionStateKey(f.template.ID.String())))

	again, err := f.svc.GetComposition(ctx, f.template.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SourceReplayed, again.Source)
	assert.Equal(t, first.IDs(), again.IDs())
}

func TestCompositionService_SurvivesSessionEviction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.GetComposition(ctx, f.template.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, f.svc.EvictIdle(time.Now().Add(time.Minute)))
	assert.Zero(t, f.svc.SessionCount())

	restored, err := f.svc.GetComposition(ctx, f.template.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SourceRestored, restored.Source)
	assert.Equal(t, first.IDs(), restored.IDs())
}

func TestCompositionService_UnknownTemplate(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetComposition(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestCompositionService_ReplaceSectionsPersistsTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.GetComposition(ctx, f.template.ID)
	require.NoError(t, err)

	rules := []model.SectionRule{{ID: uuid.New(), Name: "Only MC", Course: "MATH101", Type: model.QuestionTypeMultipleChoice, Count: ptr(2)}}
	got, err := f.svc.ReplaceSections(ctx, f.template.ID, rules)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.False(t, f.mr.Exists(config.CacheKey.CompositionStateKey(f.template.ID.String())))

	stored, err := f.templates.GetByID(ctx, f.template.ID)
	require.NoError(t, err)
	assert.Equal(t, "Only MC", stored.Sections[0].Name)

	res, err := f.svc.GetComposition(ctx, f.template.ID)
	require.NoError(t, err)
	assert.Len(t, res.Questions, 2)

	_, err = f.svc.ReplaceSections(ctx, f.template.ID, []model.SectionRule{{Name: "bad", Count: ptr(0)}})
	assert.ErrorIs(t, err, composer.ErrInvalidCount)
}

func TestCompositionService_UpdateSection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	renamed := f.template.Sections[0]
	renamed.Name = "Algebra warm-up"
	rules, err := f.svc.UpdateSection(ctx, f.template.ID, renamed)
	require.NoError(t, err)
	assert.Equal(t, "Algebra warm-up", rules[0].Name)

	_, err = f.svc.UpdateSection(ctx, f.template.ID, model.SectionRule{ID: uuid.New(), Name: "ghost"})
	assert.ErrorIs(t, err, composer.ErrUnknownSection)
}

func TestCompositionService_FetchFailure(t *testing.T) {
	f := newFixture(t)
	f.questions.FailQueries(errors.New("bank offline"))

	_, err := f.svc.GetComposition(context.Background(), f.template.ID)
	assert.True(t, composer.IsFetchError(err))
}

func TestCompositionService_GenerateVersionsQueuesUsage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	set, err := f.svc.GenerateVersions(ctx, f.template.ID, 2, false)
	require.NoError(t, err)
	require.Len(t, set.Versions, 2)
	assert.InDelta(t, 2.0, set.PointSpread, 1e-9)

	items, err := f.mr.List(config.WorkerKey.PersistUsageQueue)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = f.svc.GenerateVersions(ctx, f.template.ID, 6, false)
	assert.ErrorIs(t, err, composer.ErrInvalidVersionCount)
}

func TestCompositionService_SetConstraints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SetConstraints(ctx, f.template.ID, model.Ceilings{MaxPoints: ptr(3.0)}))
	res, err := f.svc.GetComposition(ctx, f.template.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, res.TotalPoints, 3.0)

	err = f.svc.SetConstraints(ctx, f.template.ID, model.Ceilings{MaxMCPoints: ptr(-1.0)})
	assert.ErrorIs(t, err, composer.ErrInvalidCeiling)
}

func TestCompositionService_RemoveAndOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.GetComposition(ctx, f.template.ID)
	require.NoError(t, err)
	target := res.Questions[0].ID

	withOverride, err := f.svc.SetAnswerFormat(ctx, f.template.ID, target, model.AnswerFormat{LineLength: "long"})
	require.NoError(t, err)
	assert.Equal(t, "long", withOverride.Overrides[target].LineLength)

	removed, err := f.svc.RemoveQuestion(ctx, f.template.ID, target)
	require.NoError(t, err)
	assert.NotContains(t, removed.IDs(), target)
	assert.NotContains(t, removed.Overrides, target)
}
