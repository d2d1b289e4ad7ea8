package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-composer/internal/composer"
	"github.com/stemsi/qbank-composer/internal/model"
)

var ErrTemplateNotFound = errors.New("template not found")

// TemplateStore loads and saves exam templates.
type TemplateStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamTemplate, error)
	UpdateSections(ctx context.Context, id uuid.UUID, sections []model.SectionRule) error
	UpdateConstraints(ctx context.Context, id uuid.UUID, c model.Ceilings) error
}

// UsageRecorder receives every generated version set.
type UsageRecorder interface {
	Enqueue(ctx context.Context, templateID uuid.UUID, set model.VersionSet) error
}

// CompositionService keeps one composition session per template and runs
// authoring actions against the engine.
type CompositionService struct {
	templates   TemplateStore
	engine      *composer.Engine
	usage       UsageRecorder
	maxVersions int
	idleTimeout time.Duration
	log         zerolog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*composer.Session
}

func NewCompositionService(
	templates TemplateStore,
	engine *composer.Engine,
	usage UsageRecorder,
	maxVersions int,
	idleTimeout time.Duration,
	log zerolog.Logger,
) *CompositionService {
	return &CompositionService{
		templates:   templates,
		engine:      engine,
		usage:       usage,
		maxVersions: maxVersions,
		idleTimeout: idleTimeout,
		log:         log.With().Str("component", "composition_service").Logger(),
		sessions:    make(map[uuid.UUID]*composer.Session),
	}
}

// session returns the live session of a template, loading it on first use.
func (s *CompositionService) session(ctx context.Context, templateID uuid.UUID) (*composer.Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[templateID]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}

	tpl, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("load template: %w", err)
	}
	sess, err = composer.NewSession(tpl.ID, tpl.Sections, tpl.Constraints)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", tpl.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[templateID]; ok {
		return existing, nil
	}
	s.sessions[templateID] = sess
	s.log.Debug().Str("template_id", templateID.String()).Int("sections", len(tpl.Sections)).Msg("composition session opened")
	return sess, nil
}

// ready composes the template and returns its session.
func (s *CompositionService) ready(ctx context.Context, templateID uuid.UUID) (*composer.Session, error) {
	sess, err := s.session(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if _, err := s.engine.Compose(ctx, sess, false); err != nil {
		return nil, err
	}
	return sess, nil
}

// ─── Composition ────────────────────────────────────────────────────

func (s *CompositionService) GetComposition(ctx context.Context, templateID uuid.UUID) (model.CompositionResult, error) {
	sess, err := s.session(ctx, templateID)
	if err != nil {
		return model.CompositionResult{}, err
	}
	return s.engine.Compose(ctx, sess, false)
}

func (s *CompositionService) Shuffle(ctx context.Context, templateID uuid.UUID) (model.CompositionResult, error) {
	sess, err := s.session(ctx, templateID)
	if err != nil {
		return model.CompositionResult{}, err
	}
	return s.engine.Compose(ctx, sess, true)
}

func (s *CompositionService) Sections(ctx context.Context, templateID uuid.UUID) ([]model.SectionRule, model.Ceilings, error) {
	sess, err := s.session(ctx, templateID)
	if err != nil {
		return nil, model.Ceilings{}, err
	}
	return sess.Sections(), sess.Constraints(), nil
}

// ReplaceSections stores the new rules on the template, then applies them
// to the live session.
func (s *CompositionService) ReplaceSections(ctx context.Context, templateID uuid.UUID, rules []model.SectionRule) ([]model.SectionRule, error) {
	if err := composer.ValidateRules(rules); err != nil {
		return nil, err
	}
	sess, err := s.session(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if err := s.templates.UpdateSections(ctx, templateID, rules); err != nil {
		return nil, fmt.Errorf("save sections: %w", err)
	}
	if err := s.engine.UpdateSections(ctx, sess, rules); err != nil {
		return nil, err
	}
	return sess.Sections(), nil
}

// UpdateSection replaces one rule by id.
func (s *CompositionService) UpdateSection(ctx context.Context, templateID uuid.UUID, rule model.SectionRule) ([]model.SectionRule, error) {
	sess, err := s.session(ctx, templateID)
	if err != nil {
		return nil, err
	}
	rules := sess.Sections()
	found := false
	for i := range rules {
		if rules[i].ID == rule.ID {
			rules[i] = rule
			found = true
		}
	}
	if !found {
		return nil, composer.ErrUnknownSection
	}
	return s.ReplaceSections(ctx, templateID, rules)
}

func (s *CompositionService) SetConstraints(ctx context.Context, templateID uuid.UUID, c model.Ceilings) error {
	if err := composer.ValidateCeilings(c); err != nil {
		return err
	}
	sess, err := s.session(ctx, templateID)
	if err != nil {
		return err
	}
	if err := s.templates.UpdateConstraints(ctx, templateID, c); err != nil {
		return fmt.Errorf("save constraints: %w", err)
	}
	return s.engine.SetConstraints(ctx, sess, c)
}

func (s *CompositionService) Balance(ctx context.Context, templateID uuid.UUID, target float64) (model.CompositionResult, error) {
	if target <= 0 {
		return model.CompositionResult{}, composer.ErrInvalidTarget
	}
	sess, err := s.ready(ctx, templateID)
	if err != nil {
		return model.CompositionResult{}, err
	}
	return s.engine.Balance(ctx, sess, target)
}

func (s *CompositionService) RemoveQuestion(ctx context.Context, templateID, questionID uuid.UUID) (model.CompositionResult, error) {
	sess, err := s.ready(ctx, templateID)
	if err != nil {
		return model.CompositionResult{}, err
	}
	return s.engine.RemoveQuestion(ctx, sess, questionID)
}

func (s *CompositionService) SetAnswerFormat(ctx context.Context, templateID, questionID uuid.UUID, f model.AnswerFormat) (model.CompositionResult, error) {
	sess, err := s.ready(ctx, templateID)
	if err != nil {
		return model.CompositionResult{}, err
	}
	return s.engine.SetAnswerFormat(ctx, sess, questionID, f)
}

// GenerateVersions partitions the composition into count versions and
// queues one history record per version.
func (s *CompositionService) GenerateVersions(ctx context.Context, templateID uuid.UUID, count int, shuffle bool) (model.VersionSet, error) {
	if count < 0 || count > s.maxVersions {
		return model.VersionSet{}, fmt.Errorf("%d versions, max %d: %w", count, s.maxVersions, composer.ErrInvalidVersionCount)
	}
	sess, err := s.ready(ctx, templateID)
	if err != nil {
		return model.VersionSet{}, err
	}
	set, err := s.engine.Partition(ctx, sess, count, composer.PartitionOptions{Shuffle: shuffle})
	if err != nil {
		return model.VersionSet{}, err
	}

	if len(set.Fallbacks) > 0 {
		s.log.Warn().Str("template_id", templateID.String()).Int("blocks", len(set.Fallbacks)).Msg("versions generated with repeated block variants")
	}
	if s.usage != nil {
		if err := s.usage.Enqueue(ctx, templateID, set); err != nil {
			s.log.Error().Err(err).Str("template_id", templateID.String()).Msg("failed to queue usage records")
		}
	}
	return set, nil
}

func (s *CompositionService) CountAvailable(ctx context.Context, rule model.SectionRule) (int, error) {
	return s.engine.CountAvailable(ctx, rule)
}

// ─── Session lifecycle ──────────────────────────────────────────────

// EvictIdle closes sessions unused since before cutoff and returns how many were closed.
func (s *CompositionService) EvictIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, sess := range s.sessions {
		if sess.LastUsed().Before(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// StartJanitor evicts idle sessions until ctx is done.
func (s *CompositionService) StartJanitor(ctx context.Context, interval time.Duration) {
	if s.idleTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.EvictIdle(now.Add(-s.idleTimeout)); n > 0 {
				s.log.Info().Int("evicted", n).Msg("idle composition sessions closed")
			}
		}
	}
}

// SessionCount returns the number of open sessions.
func (s *CompositionService) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
