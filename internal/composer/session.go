package composer

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/qbank-composer/internal/model"
)

// State is the lifecycle position of a composition.
type State string

const (
	StateEmpty           State = "empty"
	StateSectionsDefined State = "sections_defined"
	StateComputing       State = "computing"
	StateReady           State = "ready"
)

// Session holds the authoring state of one exam template: its rules, the
// per-section cache and the last Ready composition. Engine methods are the
// only writers.
type Session struct {
	mu sync.Mutex

	templateID  uuid.UUID
	sections    []model.SectionRule
	constraints model.Ceilings
	cache       *Cache

	state    State
	stale    bool
	revision uint64
	// restored is set once the persisted id-list has been consulted, so a
	// reload restores at most once per session.
	restored bool

	result    *model.CompositionResult
	selected  map[uuid.UUID]bool
	overrides map[uuid.UUID]model.AnswerFormat

	lastUsed time.Time
}

// NewSession creates a session for a template. The rules are validated.
func NewSession(templateID uuid.UUID, sections []model.SectionRule, constraints model.Ceilings) (*Session, error) {
	if err := ValidateRules(sections); err != nil {
		return nil, err
	}
	if err := ValidateCeilings(constraints); err != nil {
		return nil, err
	}
	s := &Session{
		templateID:  templateID,
		sections:    slices.Clone(sections),
		constraints: constraints,
		cache:       NewCache(),
		selected:    make(map[uuid.UUID]bool),
		overrides:   make(map[uuid.UUID]model.AnswerFormat),
		lastUsed:    time.Now(),
	}
	s.state = s.idleState()
	return s, nil
}

func (s *Session) TemplateID() uuid.UUID {
	return s.templateID
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Sections returns a copy of the current rules.
func (s *Session) Sections() []model.SectionRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.sections)
}

func (s *Session) Constraints() model.Ceilings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.constraints
}

// Selected reports whether id is part of the current composition.
func (s *Session) Selected(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected[id]
}

// LastUsed returns the time of the last engine call on the session.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) touch() {
	s.lastUsed = time.Now()
}

func (s *Session) idleState() State {
	if len(s.sections) == 0 {
		return StateEmpty
	}
	return StateSectionsDefined
}

// settledState is where a failed or superseded computation returns to.
func (s *Session) settledState() State {
	if s.result != nil {
		return StateReady
	}
	return s.idleState()
}

// invalidate marks the composition for recomputation and supersedes any
// computation in flight.
func (s *Session) invalidate() {
	s.stale = true
	s.restored = true
	s.revision++
	if len(s.sections) == 0 {
		s.result = nil
		clear(s.selected)
		clear(s.overrides)
	}
	if s.state != StateComputing {
		s.state = s.settledState()
	}
}

// commit installs a new Ready composition.
func (s *Session) commit(res model.CompositionResult) {
	s.result = &res
	s.selected = make(map[uuid.UUID]bool, len(res.Questions))
	for _, q := range res.Questions {
		s.selected[q.ID] = true
	}
	for id := range s.overrides {
		if !s.selected[id] {
			delete(s.overrides, id)
		}
	}
	s.stale = false
	s.state = StateReady
}

// snapshot returns the Ready composition with the current overrides attached.
func (s *Session) snapshot(source model.CompositionSource) model.CompositionResult {
	res := *s.result
	res.Questions = slices.Clone(res.Questions)
	res.Source = source
	if len(s.overrides) > 0 {
		res.Overrides = make(map[uuid.UUID]model.AnswerFormat, len(s.overrides))
		for id, f := range s.overrides {
			res.Overrides[id] = f
		}
	}
	return res
}

func (s *Session) persisted() model.PersistedState {
	st := model.PersistedState{
		TemplateID: s.templateID,
		SavedAt:    time.Now().UTC(),
	}
	if s.result != nil {
		st.QuestionIDs = s.result.IDs()
	}
	if len(s.overrides) > 0 {
		st.Overrides = make(map[uuid.UUID]model.AnswerFormat, len(s.overrides))
		for id, f := range s.overrides {
			st.Overrides[id] = f
		}
	}
	return st
}
