package composer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-composer/internal/model"
	"github.com/stemsi/qbank-composer/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engineFixture struct {
	store    *repository.MemoryQuestionStore
	states   *memoryStates
	notifier *recordingNotifier
	engine   *Engine
}

func newEngineFixture(questions ...model.Question) *engineFixture {
	f := &engineFixture{
		store:    repository.NewMemoryQuestionStore(questions...),
		states:   newMemoryStates(),
		notifier: &recordingNotifier{},
	}
	f.engine = NewEngine(f.store, f.states, f.notifier, NewSeededSelector(42, 43), Options{PageSize: 100}, zerolog.Nop())
	return f
}

// withInterleaving rebuilds the engine over a source that can run an edit
// while a fetch is in flight.
func (f *engineFixture) withInterleaving() *interleavingSource {
	src := &interleavingSource{QuestionSource: f.store}
	f.engine = NewEngine(src, f.states, f.notifier, NewSeededSelector(42, 43), Options{PageSize: 100}, zerolog.Nop())
	return src
}

func mathBank() []model.Question {
	var qs []model.Question
	for range 8 {
		qs = append(qs, question("MATH101", model.QuestionTypeMultipleChoice, 1, "algebra"))
	}
	for range 8 {
		qs = append(qs, question("MATH101", model.QuestionTypeShortAnswer, 2, "geometry"))
	}
	for range 8 {
		qs = append(qs, question("PHYS101", model.QuestionTypeLongAnswer, 5, "mechanics"))
	}
	return qs
}

func newSession(t *testing.T, rules ...model.SectionRule) *Session {
	t.Helper()
	s, err := NewSession(uuid.New(), rules, model.Ceilings{})
	require.NoError(t, err)
	return s
}

func TestCompose_TagsAreOred(t *testing.T) {
	bank := mathBank()
	both := question("MATH101", model.QuestionTypeShortAnswer, 2, "algebra", "geometry")
	other := question("MATH101", model.QuestionTypeShortAnswer, 2, "calculus")
	f := newEngineFixture(append(bank, both, other)...)

	rule := model.SectionRule{ID: uuid.New(), Name: "Mixed", Course: "MATH101", Tags: []string{"algebra", "geometry"}}
	res, err := f.engine.Compose(context.Background(), newSession(t, rule), false)
	require.NoError(t, err)

	// 8 algebra + 8 geometry + 1 tagged with both, never the calculus one.
	assert.Len(t, res.Questions, 17)
	for _, q := range res.Questions {
		assert.True(t, q.HasTag(rule.Tags))
		assert.NotEqual(t, other.ID, q.ID)
	}
}

func TestCompose_ReplayDoesNotFetch(t *testing.T) {
	f := newEngineFixture(mathBank()...)
	s := newSession(t,
		model.SectionRule{ID: uuid.New(), Name: "MC", Course: "MATH101", Type: model.QuestionTypeMultipleChoice, Count: ptr(3)},
		model.SectionRule{ID: uuid.New(), Name: "Long", Course: "PHYS101", Count: ptr(2)},
	)

	first, err := f.engine.Compose(context.Background(), s, false)
	require.NoError(t, err)
	assert.Equal(t, model.SourceComputed, first.Source)
	assert.Equal(t, StateReady, s.State())
	queries, _, _ := f.store.Calls()

	for range 3 {
		again, err := f.engine.Compose(context.Background(), s, false)
		require.NoError(t, err)
		assert.Equal(t, model.SourceReplayed, again.Source)
		assert.Equal(t, first.IDs(), again.IDs())
	}
	after, _, _ := f.store.Calls()
	assert.Equal(t, queries, after)
}

func TestCompose_RenameKeepsSelection(t *testing.T) {
	f := newEngineFixture(mathBank()...)
	rule := model.SectionRule{ID: uuid.New(), Name: "Algebra", Course: "MATH101", Tags: []string{"algebra"}, Count: ptr(4)}
	s := newSession(t, rule)

	first, err := f.engine.Compose(context.Background(), s, false)
	require.NoError(t, err)
	queries, _, _ := f.store.Calls()
	deletes := f.states.deletes

	renamed := rule
	renamed.Name = "Linear algebra"
	require.NoError(t, f.engine.UpdateSection(context.Background(), s, renamed))

	second, err := f.engine.Compose(context.Background(), s, false)
	require.NoError(t, err)
	assert.Equal(t, first.IDs(), second.IDs())
	for _, q := range second.Questions {
		assert.Equal(t, "Linear algebra", q.Section)
	}
	after, _, _ := f.store.Calls()
	assert.Equal(t, queries, after)
	assert.Equal(t, deletes, f.states.deletes, "a rename must keep the persisted id-list")
}

func TestCompose_FilterChangeInvalidatesOnlyThatSection(t *testing.T) {
	f := newEngineFixture(mathBank()...)
	keep := model.SectionRule{ID: uuid.New(), Name: "Keep", Course: "MATH101", Type: model.QuestionTypeMultipleChoice, Count: ptr(3)}
	change := model.SectionRule{ID: uuid.New(), Name: "Change", Course: "MATH101", Type: model.QuestionTypeShortAnswer, Count: ptr(3)}
	s := newSession(t, keep, change)

	first, err := f.engine.Compose(context.Background(), s, false)
	require.NoError(t, err)
	keptIDs := sectionIDs(first, keep.ID)
	queries, _, _ := f.store.Calls()

	changed := change
	changed.Course = "PHYS101"
	changed.Type = ""
	require.NoError(t, f.engine.UpdateSection(context.Background(), s, changed))
	_, persisted := f.states.get(s.TemplateID())
	assert.False(t, persisted, "filter change must drop the persisted id-list")

	second, err := f.engine.Compose(context.Background(), s, false)
	require.NoError(t, err)
	assert.Equal(t, keptIDs, sectionIDs(second, keep.ID))
	for _, q := range second.Questions {
		if q.SectionID == change.ID {
			assert.Equal(t, "PHYS101", q.CourseCode)
		}
	}

	after, _, _ := f.store.Calls()
	assert.Equal(t, queries+1, after, "only the changed section is fetched again")
	assert.Contains(t, f.notifier.types(), model.EventCompositionInvalidated)
}

func sectionIDs(res model.CompositionResult, section uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	for _, q := range res.Questions {
		if q.SectionID == section {
			out = append(out, q.ID)
		}
	}
	return out
}

func TestCompose_ForceReshufflesEverything(t *testing.T) {
	f := newEngineFixture(mathBank()...)
	s := newSession(t,
		model.SectionRule{ID: uuid.New(), Name: "A", Course: "MATH101"},
		model.SectionRule{ID: uuid.New(), Name: "B", Course: "PHYS101"},
	)

	_, err := f.engine.Compose(context.Background(), s, false)
	require.NoError(t, err)
	before, _, _ := f.store.Calls()

	res, err := f.engine.Compose(context.Background(), s, true)
	require.NoError(t, err)
	assert.Equal(t, model.SourceComputed, res.Source)
	after, _, _ := f.store.Calls()
	assert.Equal(t, before+2, after)
}

func TestCompose_FetchFailureKeepsPreviousReady(t *testing.T) {
	f := newEngineFixture(mathBank()...)
	rule := model.SectionRule{ID: uuid.New(), Name: "MC", Course: "MATH101", Count: ptr(5)}
	s := newSession(t, rule)

	first, err := f.engine.Compose(context.Background(), s, false)
	require.NoError(t, err)

	f.store.FailQueries(errors.New("bank offline"))
	_, err = f.engine.Compose(context.Background(), s, true)
	require.Error(t, err)
	assert.True(t, IsFetchError(err))
	assert.Equal(t, StateReady, s.State())
	assert.Contains(t, f.notifier.types(), model.EventCompositionFetchFailed)

	f.store.FailQueries(nil)
	st, ok := f.states.get(s.TemplateID())
	require.True(t, ok)
	assert.Equal(t, first.IDs(), st.QuestionIDs, "persisted state must not be overwritten by a failed fetch")
}

func TestCompose_FetchFailureWithoutPriorState(t *testing.T) {
	f := newEngineFixture(mathBank()...)
	f.store.FailQueries(errors.New("bank offline"))
	s := newSession(t, model.SectionRule{ID: uuid.New(), Name: "MC"})

	_, err := f.engine.Compose(context.Background(), s, false)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, StateSectionsDefined, s.State())
}

func TestCompose_EmptyPoolIsReady(t *testing.T) {
	f := newEngineFixture(mathBank()...)
	s := newSession(t, model.SectionRule{ID: uuid.New(), Name: "Nothing", Course: "CHEM101"})

	res, err := f.engine.Compose(context.Background(), s, false)
	require.NoError(t, err)
	assert.Empty(t, res.Questions)
	assert.Zero(t, res.TotalPoints)
	assert.Equal(t, StateReady, s.State())
}

func TestCompose_NoSections(t *testing.T) {
	f := newEngineFixture()
	s := newSession(t)
	assert.Equal(t, StateEmpty, s.State())

	_, err := f.engine.Compose(context.Background(), s, false)
	assert.ErrorIs(t, err, ErrNoSections)
}

func TestCompose_TemplateConstraintsApplyAfterSections(t *testing.T) {
	f := newEngineFixture(mathBank()...)
	s := newSession(t,
		model.SectionRule{ID: uuid.New(), Name: "Long", Course: "PHYS101", Count: ptr(2)},
		model.SectionRule{ID: uuid.New(), Name: "MC", Course: "MATH101", Type: model.QuestionTypeMultipleChoice, Count: ptr(8)},
	)
	require.NoError(t, f.engine.SetConstraints(context.Background(), s, model.Ceilings{MaxPoints: ptr(13.0)}))

	res, err := f.engine.Compose(context.Background(), s, false)
	require.NoError(t, err)
	assert.InDelta(t, 13.0, res.TotalPoints, epsilon)
	assert.Len(t, res.Questions, 5)
	assert.Equal(t, "Long", res.Questions[0].Section)
	assert.Equal(t, "Long", res.Questions[1].Section)
	for _, q := range res.Questions {
		assert.True(t, s.Selected(q.ID))
	}
}

func TestCompose_RestoresPersistedState(t *testing.T) {
	bank := mathBank()
	f := newEngineFixture(bank...)
	algebra := model.SectionRule{ID: uuid.New(), Name: "Algebra", Tags: []string{"algebra"}}
	s := newSession(t, algebra)

	stray := bank[20] // mechanics, matched by no section
	missing := uuid.New()
	f.states.states[s.TemplateID()] = model.PersistedState{
		TemplateID:  s.TemplateID(),
		QuestionIDs: []uuid.UUID{bank[0].ID, missing, stray.ID, bank[1].ID},
		Overrides:   map[uuid.UUID]model.AnswerFormat{bank[0].ID: {LineLength: "long"}},
	}

	res, err := f.engine.Compose(context.Background(), s, false)
	require.NoError(t, err)
	assert.Equal(t, model.SourceRestored, res.Source)
	assert.Equal(t, []uuid.UUID{bank[0].ID, stray.ID, bank[1].ID}, res.IDs())
	assert.Equal(t, "Algebra", res.Questions[0].Section)
	assert.Equal(t, model.UnknownSection, res.Questions[1].Section)
	assert.Equal(t, "long", res.Overrides[bank[0].ID].LineLength)

	queries, _, _ := f.store.Calls()
	assert.Zero(t, queries, "restore must not run selection")
}

func TestCompose_RestoreFetchFailureCommitsNothing(t *testing.T) {
	bank := mathBank()
	f := newEngineFixture(bank...)
	s := newSession(t, model.SectionRule{ID: uuid.New(), Name: "Algebra", Tags: []string{"algebra"}})
	saved := []uuid.UUID{bank[0].ID, bank[1].ID, bank[2].ID}
	f.states.states[s.TemplateID()] = model.PersistedState{TemplateID: s.TemplateID(), QuestionIDs: saved}

	f.store.FailGet(bank[1].ID, errors.New("connection refused"))
	f.store.FailGet(bank[2].ID, errors.New("connection refused"))

	_, err := f.engine.Compose(context.Background(), s, false)
	require.Error(t, err)
	assert.True(t, IsFetchError(err))
	assert.Equal(t, StateSectionsDefined, s.State())
	assert.False(t, s.Selected(bank[0].ID), "a partial restore must not be committed")
	assert.Contains(t, f.notifier.types(), model.EventCompositionFetchFailed)
	queries, _, _ := f.store.Calls()
	assert.Zero(t, queries)

	st, ok := f.states.get(s.TemplateID())
	require.True(t, ok)
	assert.Equal(t, saved, st.QuestionIDs)

	f.store.FailGet(bank[1].ID, nil)
	f.store.FailGet(bank[2].ID, nil)
	res, err := f.engine.Compose(context.Background(), s, false)
	require.NoError(t, err)
	assert.Equal(t, model.SourceRestored, res.Source)
	assert.Equal(t, saved, res.IDs())
}

func TestCompose_SupersededFetchIsDiscarded(t *testing.T) {
	f := newEngineFixture(mathBank()...)
	src := f.withInterleaving()
	s := newSession(t, model.SectionRule{ID: uuid.New(), Name: "Math", Course: "MATH101", Count: ptr(3)})
	physics := model.SectionRule{ID: uuid.New(), Name: "Physics", Course: "PHYS101", Count: ptr(3)}

	src.arm(func() {
		assert.NoError(t, f.engine.UpdateSections(context.Background(), s, []model.SectionRule{physics}))
	})
	_, err := f.engine.Compose(context.Background(), s, false)
	require.ErrorIs(t, err, ErrSuperseded)
	assert.Zero(t, s.cache.Len(), "a superseded draw must not reach the cache")
	assert.Equal(t, StateSectionsDefined, s.State())
	_, saved := f.states.get(s.TemplateID())
	assert.False(t, saved)

	res, err := f.engine.Compose(context.Background(), s, false)
	require.NoError(t, err)
	require.Len(t, res.Questions, 3)
	for _, q := range res.Questions {
		assert.Equal(t, "PHYS101", q.CourseCode)
		assert.Equal(t, "Physics", q.Section)
	}
}

func TestCompose_RenameDuringFetchUsesCurrentName(t *testing.T) {
	f := newEngineFixture(mathBank()...)
	src := f.withInterleaving()
	rule := model.SectionRule{ID: uuid.New(), Name: "Old", Course: "MATH101", Count: ptr(3)}
	s := newSession(t, rule)

	renamed := rule
	renamed.Name = "New"
	src.arm(func() {
		assert.NoError(t, f.engine.UpdateSection(context.Background(), s, renamed))
	})
	res, err := f.engine.Compose(context.Background(), s, false)
	require.NoError(t, err)
	for _, q := range res.Questions {
		assert.Equal(t, "New", q.Section)
	}

	replayed, err := f.engine.Compose(context.Background(), s, false)
	require.NoError(t, err)
	assert.Equal(t, res.IDs(), replayed.IDs())
	for _, q := range replayed.Questions {
		assert.Equal(t, "New", q.Section)
	}
}

func TestCompose_EditDuringRestoreRecomputes(t *testing.T) {
	bank := mathBank()
	f := newEngineFixture(bank...)
	src := f.withInterleaving()
	s := newSession(t, model.SectionRule{ID: uuid.New(), Name: "Algebra", Tags: []string{"algebra"}})
	f.states.states[s.TemplateID()] = model.PersistedState{
		TemplateID:  s.TemplateID(),
		QuestionIDs: []uuid.UUID{bank[0].ID, bank[1].ID},
	}
	physics := model.SectionRule{ID: uuid.New(), Name: "Physics", Course: "PHYS101", Count: ptr(2)}

	src.arm(func() {
		assert.NoError(t, f.engine.UpdateSections(context.Background(), s, []model.SectionRule{physics}))
	})
	res, err := f.engine.Compose(context.Background(), s, false)
	require.NoError(t, err)
	assert.Equal(t, model.SourceComputed, res.Source)
	require.Len(t, res.Questions, 2)
	for _, q := range res.Questions {
		assert.Equal(t, "PHYS101", q.CourseCode)
	}
}

func TestCompose_RestoreFallsBackToCompute(t *testing.T) {
	f := newEngineFixture(mathBank()...)
	s := newSession(t, model.SectionRule{ID: uuid.New(), Name: "All", Course: "MATH101", Count: ptr(2)})
	f.states.loadErr = errors.New("redis down")

	res, err := f.engine.Compose(context.Background(), s, false)
	require.NoError(t, err)
	assert.Equal(t, model.SourceComputed, res.Source)
	assert.Len(t, res.Questions, 2)
}

func TestCompose_DuplicateSectionsDoNotRepeatQuestions(t *testing.T) {
	f := newEngineFixture(mathBank()...)
	s := newSession(t,
		model.SectionRule{ID: uuid.New(), Name: "First", Course: "PHYS101", Count: ptr(3)},
		model.SectionRule{ID: uuid.New(), Name: "Second", Course: "PHYS101", Count: ptr(3)},
	)

	res, err := f.engine.Compose(context.Background(), s, false)
	require.NoError(t, err)
	assert.Len(t, res.Questions, 3)
	queries, _, _ := f.store.Calls()
	assert.Equal(t, 1, queries)
}

func TestUpdateSections_RejectsInvalidRule(t *testing.T) {
	f := newEngineFixture()
	s := newSession(t)
	err := f.engine.UpdateSections(context.Background(), s, []model.SectionRule{{Name: "bad", Count: ptr(0)}})
	assert.ErrorIs(t, err, ErrInvalidCount)
	assert.Empty(t, s.Sections())

	err = f.engine.UpdateSection(context.Background(), s, model.SectionRule{ID: uuid.New(), Name: "ghost"})
	assert.ErrorIs(t, err, ErrUnknownSection)
}

func TestRemoveQuestion(t *testing.T) {
	f := newEngineFixture(mathBank()...)
	s := newSession(t, model.SectionRule{ID: uuid.New(), Name: "MC", Course: "MATH101", Type: model.QuestionTypeMultipleChoice, Count: ptr(4)})

	res, err := f.engine.Compose(context.Background(), s, false)
	require.NoError(t, err)
	victim := res.Questions[1].ID

	after, err := f.engine.RemoveQuestion(context.Background(), s, victim)
	require.NoError(t, err)
	assert.Len(t, after.Questions, 3)
	assert.NotContains(t, after.IDs(), victim)
	assert.InDelta(t, 3.0, after.TotalPoints, epsilon)

	st, _ := f.states.get(s.TemplateID())
	assert.Equal(t, after.IDs(), st.QuestionIDs)

	_, err = f.engine.RemoveQuestion(context.Background(), s, victim)
	assert.ErrorIs(t, err, ErrQuestionNotInComposition)
}

func TestSetAnswerFormat_ResetOnFreshCompute(t *testing.T) {
	f := newEngineFixture(mathBank()...)
	s := newSession(t, model.SectionRule{ID: uuid.New(), Name: "SA", Course: "MATH101", Type: model.QuestionTypeShortAnswer, Count: ptr(2)})

	res, err := f.engine.Compose(context.Background(), s, false)
	require.NoError(t, err)
	qid := res.Questions[0].ID

	withOverride, err := f.engine.SetAnswerFormat(context.Background(), s, qid, model.AnswerFormat{SolutionSpace: "half"})
	require.NoError(t, err)
	assert.Equal(t, "half", withOverride.Overrides[qid].SolutionSpace)

	st, _ := f.states.get(s.TemplateID())
	assert.Equal(t, "half", st.Overrides[qid].SolutionSpace)

	replayed, err := f.engine.Compose(context.Background(), s, false)
	require.NoError(t, err)
	assert.Equal(t, "half", replayed.Overrides[qid].SolutionSpace)

	fresh, err := f.engine.Compose(context.Background(), s, true)
	require.NoError(t, err)
	assert.Empty(t, fresh.Overrides)

	_, err = f.engine.SetAnswerFormat(context.Background(), s, uuid.New(), model.AnswerFormat{LineLength: "short"})
	assert.ErrorIs(t, err, ErrQuestionNotInComposition)
}

func TestSetAnswerFormat_ResetWhenEverySectionIsCached(t *testing.T) {
	f := newEngineFixture(mathBank()...)
	s := newSession(t, model.SectionRule{ID: uuid.New(), Name: "SA", Course: "MATH101", Type: model.QuestionTypeShortAnswer, Count: ptr(2)})

	res, err := f.engine.Compose(context.Background(), s, false)
	require.NoError(t, err)
	qid := res.Questions[0].ID
	_, err = f.engine.SetAnswerFormat(context.Background(), s, qid, model.AnswerFormat{LineLength: "long"})
	require.NoError(t, err)

	// A template ceiling change keeps every section draw cached.
	require.NoError(t, f.engine.SetConstraints(context.Background(), s, model.Ceilings{MaxPoints: ptr(100.0)}))
	again, err := f.engine.Compose(context.Background(), s, false)
	require.NoError(t, err)
	assert.Equal(t, res.IDs(), again.IDs())
	assert.Empty(t, again.Overrides)
	queries, _, _ := f.store.Calls()
	assert.Equal(t, 1, queries)
}

func TestBalance(t *testing.T) {
	t.Run("trims above target", func(t *testing.T) {
		f := newEngineFixture(mathBank()...)
		s := newSession(t, model.SectionRule{ID: uuid.New(), Name: "All math", Course: "MATH101"})
		res, err := f.engine.Compose(context.Background(), s, false)
		require.NoError(t, err)
		require.InDelta(t, 24.0, res.TotalPoints, epsilon)

		balanced, err := f.engine.Balance(context.Background(), s, 10)
		require.NoError(t, err)
		assert.LessOrEqual(t, balanced.TotalPoints, 11.0+epsilon)
		assert.GreaterOrEqual(t, balanced.TotalPoints, 10.0-epsilon)
	})

	t.Run("fills below target", func(t *testing.T) {
		f := newEngineFixture(mathBank()...)
		s := newSession(t, model.SectionRule{ID: uuid.New(), Name: "Few", Course: "MATH101", Type: model.QuestionTypeShortAnswer, Count: ptr(1)})
		res, err := f.engine.Compose(context.Background(), s, false)
		require.NoError(t, err)

		balanced, err := f.engine.Balance(context.Background(), s, 9)
		require.NoError(t, err)
		assert.InDelta(t, 10.0, balanced.TotalPoints, epsilon)
		assert.Equal(t, res.Questions[0].ID, balanced.Questions[0].ID)

		seen := map[uuid.UUID]bool{}
		for _, q := range balanced.Questions {
			assert.False(t, seen[q.ID])
			seen[q.ID] = true
			assert.Equal(t, "Few", q.Section)
		}
	})

	t.Run("superseded fill is discarded", func(t *testing.T) {
		f := newEngineFixture(mathBank()...)
		src := f.withInterleaving()
		s := newSession(t, model.SectionRule{ID: uuid.New(), Name: "Few", Course: "MATH101", Type: model.QuestionTypeShortAnswer, Count: ptr(1)})
		_, err := f.engine.Compose(context.Background(), s, false)
		require.NoError(t, err)
		before, _ := f.states.get(s.TemplateID())

		src.arm(func() {
			assert.NoError(t, f.engine.SetConstraints(context.Background(), s, model.Ceilings{MaxPoints: ptr(4.0)}))
		})
		_, err = f.engine.Balance(context.Background(), s, 9)
		require.ErrorIs(t, err, ErrSuperseded)

		_, saved := f.states.get(s.TemplateID())
		assert.False(t, saved, "the constraint change dropped the stored list; a discarded fill must not restore it")
		assert.NotEmpty(t, before.QuestionIDs)
	})

	t.Run("rejects non-positive target", func(t *testing.T) {
		f := newEngineFixture()
		_, err := f.engine.Balance(context.Background(), newSession(t), 0)
		assert.ErrorIs(t, err, ErrInvalidTarget)
	})
}

func TestCountAvailable(t *testing.T) {
	f := newEngineFixture(mathBank()...)
	n, err := f.engine.CountAvailable(context.Background(), model.SectionRule{Course: "MATH101", Tags: []string{"geometry"}})
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	_, err = f.engine.CountAvailable(context.Background(), model.SectionRule{Count: ptr(-1)})
	assert.ErrorIs(t, err, ErrInvalidCount)
}

func TestEnginePartition_RequiresReady(t *testing.T) {
	f := newEngineFixture(mathBank()...)
	s := newSession(t, model.SectionRule{ID: uuid.New(), Name: "MC", Course: "MATH101", Count: ptr(2)})

	_, err := f.engine.Partition(context.Background(), s, 2, PartitionOptions{})
	assert.ErrorIs(t, err, ErrNotReady)

	_, err = f.engine.Compose(context.Background(), s, false)
	require.NoError(t, err)
	set, err := f.engine.Partition(context.Background(), s, 2, PartitionOptions{})
	require.NoError(t, err)
	assert.Len(t, set.Versions, 2)
	assert.True(t, set.PointsEqual)
}
