package composer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-composer/internal/model"
	"golang.org/x/sync/errgroup"
)

// QuestionSource is the question-query collaborator. GetQuestion reports a
// missing id as pgx.ErrNoRows; any other error is a fetch failure.
type QuestionSource interface {
	QueryQuestions(ctx context.Context, q model.QuestionQuery) (model.QuestionPage, error)
	GetQuestion(ctx context.Context, id uuid.UUID) (model.Question, error)
	GetBlockVariants(ctx context.Context, blockID uuid.UUID) ([]model.Question, error)
}

// StateStore persists the final id-list of a composition per template.
// Load returns nil, nil when nothing is stored.
type StateStore interface {
	Load(ctx context.Context, templateID uuid.UUID) (*model.PersistedState, error)
	Save(ctx context.Context, st model.PersistedState) error
	Delete(ctx context.Context, templateID uuid.UUID) error
}

// Notifier receives composition lifecycle events.
type Notifier interface {
	Publish(ctx context.Context, ev model.CompositionEvent) error
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, model.CompositionEvent) error { return nil }

type Options struct {
	// PageSize bounds each candidate-pool query.
	PageSize int
	// Concurrency bounds parallel rehydration and variant fetches.
	Concurrency int
}

// Engine runs the composition pipeline over sessions.
type Engine struct {
	source      QuestionSource
	states      StateStore
	notifier    Notifier
	selector    *Selector
	partitioner *Partitioner
	pageSize    int
	concurrency int
	log         zerolog.Logger
}

func NewEngine(source QuestionSource, states StateStore, notifier Notifier, selector *Selector, opts Options, log zerolog.Logger) *Engine {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if selector == nil {
		selector = NewSelector()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 200
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	return &Engine{
		source:      source,
		states:      states,
		notifier:    notifier,
		selector:    selector,
		partitioner: NewPartitioner(source, selector, opts.Concurrency, log),
		pageSize:    opts.PageSize,
		concurrency: opts.Concurrency,
		log:         log.With().Str("component", "composition_engine").Logger(),
	}
}

// ─── Compose ────────────────────────────────────────────────────────

// Compose returns the session's composition. A Ready, unchanged session is
// replayed without any fetch. Otherwise the persisted id-list is restored
// once per session, and failing that every section is selected again, each
// served from the cache when its configuration is unchanged. force drops
// every cached draw first.
func (e *Engine) Compose(ctx context.Context, s *Session, force bool) (model.CompositionResult, error) {
	s.mu.Lock()
	s.touch()
	if force {
		s.cache.InvalidateAll()
		s.invalidate()
	}
	if s.state == StateReady && !s.stale {
		res := s.snapshot(model.SourceReplayed)
		s.mu.Unlock()
		e.log.Debug().Str("template_id", s.templateID.String()).Msg("composition replayed")
		return res, nil
	}
	if len(s.sections) == 0 {
		s.mu.Unlock()
		return model.CompositionResult{}, ErrNoSections
	}
	tryRestore := !s.restored
	s.restored = true
	s.mu.Unlock()

	if tryRestore {
		res, ok, err := e.restore(ctx, s)
		if err != nil {
			return model.CompositionResult{}, err
		}
		if ok {
			return res, nil
		}
	}
	return e.compute(ctx, s)
}

// restore rebuilds the composition from the persisted id-list. ok is false
// when there is nothing usable to restore.
func (e *Engine) restore(ctx context.Context, s *Session) (model.CompositionResult, bool, error) {
	log := e.log.With().Str("template_id", s.templateID.String()).Logger()

	st, err := e.states.Load(ctx, s.templateID)
	if err != nil {
		log.Warn().Err(err).Msg("persisted composition unavailable, recomputing")
		return model.CompositionResult{}, false, nil
	}
	if st == nil || len(st.QuestionIDs) == 0 {
		return model.CompositionResult{}, false, nil
	}

	s.mu.Lock()
	rev := s.revision
	sections := append([]model.SectionRule(nil), s.sections...)
	s.mu.Unlock()

	questions := make([]*model.Question, len(st.QuestionIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, id := range st.QuestionIDs {
		g.Go(func() error {
			q, err := e.source.GetQuestion(gctx, id)
			if errors.Is(err, pgx.ErrNoRows) {
				log.Debug().Str("question_id", id.String()).Msg("persisted question no longer exists")
				return nil
			}
			if err != nil {
				return &FetchError{Op: fmt.Sprintf("question %s", id), Err: err}
			}
			if q.DeletedAt == nil {
				questions[i] = &q
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Leave the stored list for the next attempt.
		s.mu.Lock()
		s.restored = false
		s.mu.Unlock()
		log.Warn().Err(err).Msg("restore failed, nothing committed")
		e.publish(ctx, model.CompositionEvent{
			Type:       model.EventCompositionFetchFailed,
			TemplateID: s.templateID,
			Message:    err.Error(),
		})
		return model.CompositionResult{}, false, err
	}

	restored := make([]model.SelectedQuestion, 0, len(questions))
	for _, q := range questions {
		if q == nil {
			continue
		}
		restored = append(restored, attribute(*q, sections))
	}
	if len(restored) == 0 {
		log.Info().Msg("no persisted question could be restored, recomputing")
		return model.CompositionResult{}, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revision != rev {
		return model.CompositionResult{}, false, nil
	}
	for id, f := range st.Overrides {
		s.overrides[id] = f
	}
	s.commit(BuildResult(restored, model.SourceRestored))
	e.relabel(s)
	log.Info().Int("questions", len(restored)).Msg("composition restored from persisted state")
	return s.snapshot(model.SourceRestored), true, nil
}

// attribute tags a restored question with the first section that would
// have drawn it.
func attribute(q model.Question, sections []model.SectionRule) model.SelectedQuestion {
	for _, r := range sections {
		if r.Matches(q) {
			return model.SelectedQuestion{Question: q, SectionID: r.ID, Section: r.Name}
		}
	}
	return model.SelectedQuestion{Question: q, Section: model.UnknownSection}
}

func (e *Engine) compute(ctx context.Context, s *Session) (model.CompositionResult, error) {
	log := e.log.With().Str("template_id", s.templateID.String()).Logger()

	s.mu.Lock()
	rev := s.revision
	sections := append([]model.SectionRule(nil), s.sections...)
	constraints := s.constraints
	var misses []model.SectionRule
	for _, r := range sections {
		if _, ok := s.cache.Lookup(r); !ok {
			misses = append(misses, r)
		}
	}
	s.state = StateComputing
	s.mu.Unlock()

	log.Debug().Int("sections", len(sections)).Int("cache_misses", len(misses)).Msg("computing composition")

	staged := NewCache()
	for _, r := range misses {
		_, _, err := staged.GetOrCompute(r, func(r model.SectionRule) (model.SelectedQuestions, error) {
			page, err := e.source.QueryQuestions(ctx, r.Query(e.pageSize))
			if err != nil {
				return model.SelectedQuestions{}, err
			}
			return e.selector.SelectForSection(r, page.Results), nil
		})
		if err != nil {
			s.mu.Lock()
			s.state = s.settledState()
			s.mu.Unlock()
			log.Warn().Err(err).Str("section", r.Name).Msg("candidate fetch failed, keeping previous composition")
			e.publish(ctx, model.CompositionEvent{
				Type:       model.EventCompositionFetchFailed,
				TemplateID: s.templateID,
				Message:    err.Error(),
			})
			return model.CompositionResult{}, &FetchError{Op: fmt.Sprintf("candidates for section %q", r.Name), Err: err}
		}
	}

	s.mu.Lock()
	if s.revision != rev {
		s.state = s.settledState()
		s.mu.Unlock()
		log.Debug().Msg("discarding superseded composition")
		return model.CompositionResult{}, ErrSuperseded
	}
	s.cache.MergeMissing(staged)

	var all []model.SelectedQuestion
	taken := make(map[uuid.UUID]bool)
	for _, r := range sections {
		sel, _ := s.cache.Lookup(r)
		for _, q := range sel.Questions {
			if taken[q.ID] {
				continue
			}
			taken[q.ID] = true
			all = append(all, q)
		}
	}
	filtered := ApplyTemplateConstraints(all, constraints)
	clear(s.overrides)
	s.commit(BuildResult(filtered.Kept, model.SourceComputed))
	// Renames do not bump the revision; take the names current at commit.
	e.relabel(s)
	res := s.snapshot(model.SourceComputed)
	st := s.persisted()
	s.mu.Unlock()

	if len(filtered.Dropped) > 0 {
		log.Debug().Int("dropped", len(filtered.Dropped)).Msg("template constraints dropped questions")
	}
	e.save(ctx, st)
	e.publish(ctx, model.CompositionEvent{
		Type:          model.EventCompositionReady,
		TemplateID:    s.templateID,
		QuestionCount: len(res.Questions),
		TotalPoints:   res.TotalPoints,
	})
	return res, nil
}

// ─── Mutations ──────────────────────────────────────────────────────

// UpdateSections replaces the session's rules. Sections whose filterable
// configuration changed lose their cached draw and the persisted id-list is
// dropped. A rename only relabels the current composition.
func (e *Engine) UpdateSections(ctx context.Context, s *Session, rules []model.SectionRule) error {
	if err := ValidateRules(rules); err != nil {
		return err
	}

	s.mu.Lock()
	s.touch()
	old := s.sections
	s.sections = append([]model.SectionRule(nil), rules...)

	structural := len(old) != len(rules)
	stillUsed := make(map[SectionKey]bool, len(rules))
	for i, r := range rules {
		stillUsed[KeyOf(r)] = true
		if i < len(old) && (old[i].ID != r.ID || KeyOf(old[i]) != KeyOf(r)) {
			structural = true
		}
	}
	for _, r := range old {
		if !stillUsed[KeyOf(r)] {
			s.cache.Invalidate(r)
		}
	}

	if !structural {
		e.relabel(s)
		if s.state == StateEmpty {
			s.state = s.idleState()
		}
		s.mu.Unlock()
		return nil
	}
	s.invalidate()
	s.mu.Unlock()

	e.dropPersisted(ctx, s.templateID)
	return nil
}

// UpdateSection replaces a single rule identified by its id.
func (e *Engine) UpdateSection(ctx context.Context, s *Session, rule model.SectionRule) error {
	rules := s.Sections()
	i := indexOfSection(rules, rule.ID)
	if i < 0 {
		return fmt.Errorf("section %s: %w", rule.ID, ErrUnknownSection)
	}
	rules[i] = rule
	return e.UpdateSections(ctx, s, rules)
}

// SetConstraints changes the template-level ceilings. Section draws stay cached.
func (e *Engine) SetConstraints(ctx context.Context, s *Session, c model.Ceilings) error {
	if err := ValidateCeilings(c); err != nil {
		return err
	}

	s.mu.Lock()
	s.touch()
	if sameCeilings(s.constraints, c) {
		s.mu.Unlock()
		return nil
	}
	s.constraints = c
	s.invalidate()
	s.mu.Unlock()

	e.dropPersisted(ctx, s.templateID)
	return nil
}

// RemoveQuestion drops one question from the Ready composition without reselecting.
func (e *Engine) RemoveQuestion(ctx context.Context, s *Session, questionID uuid.UUID) (model.CompositionResult, error) {
	s.mu.Lock()
	s.touch()
	if s.result == nil {
		s.mu.Unlock()
		return model.CompositionResult{}, ErrNotReady
	}
	if !s.selected[questionID] {
		s.mu.Unlock()
		return model.CompositionResult{}, ErrQuestionNotInComposition
	}
	kept := make([]model.SelectedQuestion, 0, len(s.result.Questions))
	for _, q := range s.result.Questions {
		if q.ID != questionID {
			kept = append(kept, q)
		}
	}
	delete(s.overrides, questionID)
	s.commit(BuildResult(kept, s.result.Source))
	res := s.snapshot(s.result.Source)
	st := s.persisted()
	s.mu.Unlock()

	e.save(ctx, st)
	return res, nil
}

// SetAnswerFormat overrides the answer area of one composed question.
// A zero format clears the override.
func (e *Engine) SetAnswerFormat(ctx context.Context, s *Session, questionID uuid.UUID, f model.AnswerFormat) (model.CompositionResult, error) {
	s.mu.Lock()
	s.touch()
	if s.result == nil {
		s.mu.Unlock()
		return model.CompositionResult{}, ErrNotReady
	}
	if !s.selected[questionID] {
		s.mu.Unlock()
		return model.CompositionResult{}, ErrQuestionNotInComposition
	}
	if f.IsZero() {
		delete(s.overrides, questionID)
	} else {
		s.overrides[questionID] = f
	}
	res := s.snapshot(s.result.Source)
	st := s.persisted()
	s.mu.Unlock()

	e.save(ctx, st)
	return res, nil
}

// CountAvailable returns how many questions match a rule's filters.
func (e *Engine) CountAvailable(ctx context.Context, rule model.SectionRule) (int, error) {
	if err := ValidateRule(rule); err != nil {
		return 0, err
	}
	page, err := e.source.QueryQuestions(ctx, rule.Query(1))
	if err != nil {
		return 0, &FetchError{Op: "available count", Err: err}
	}
	return page.Count, nil
}

// Partition splits the Ready composition into n versions.
func (e *Engine) Partition(ctx context.Context, s *Session, n int, opts PartitionOptions) (model.VersionSet, error) {
	s.mu.Lock()
	s.touch()
	if s.result == nil || s.stale {
		s.mu.Unlock()
		return model.VersionSet{}, ErrNotReady
	}
	questions := append([]model.SelectedQuestion(nil), s.result.Questions...)
	s.mu.Unlock()

	return e.partitioner.Partition(ctx, questions, n, opts)
}

// ─── Helpers ────────────────────────────────────────────────────────

// relabel refreshes section names on the current composition. Caller holds s.mu.
func (e *Engine) relabel(s *Session) {
	if s.result == nil {
		return
	}
	names := make(map[uuid.UUID]string, len(s.sections))
	for _, r := range s.sections {
		names[r.ID] = r.Name
	}
	for i, q := range s.result.Questions {
		if name, ok := names[q.SectionID]; ok {
			s.result.Questions[i].Section = name
		}
	}
}

func (e *Engine) save(ctx context.Context, st model.PersistedState) {
	if err := e.states.Save(ctx, st); err != nil {
		e.log.Warn().Err(err).Str("template_id", st.TemplateID.String()).Msg("failed to persist composition state")
	}
}

func (e *Engine) dropPersisted(ctx context.Context, templateID uuid.UUID) {
	if err := e.states.Delete(ctx, templateID); err != nil {
		e.log.Warn().Err(err).Str("template_id", templateID.String()).Msg("failed to drop persisted composition state")
	}
	e.publish(ctx, model.CompositionEvent{
		Type:       model.EventCompositionInvalidated,
		TemplateID: templateID,
	})
}

func (e *Engine) publish(ctx context.Context, ev model.CompositionEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := e.notifier.Publish(ctx, ev); err != nil {
		e.log.Warn().Err(err).Str("event", string(ev.Type)).Msg("failed to publish composition event")
	}
}

func indexOfSection(rules []model.SectionRule, id uuid.UUID) int {
	for i, r := range rules {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func sameCeilings(a, b model.Ceilings) bool {
	ka, kb := a.All(), b.All()
	for i := range ka {
		if keyOfCeiling(ka[i]) != keyOfCeiling(kb[i]) {
			return false
		}
	}
	return true
}
