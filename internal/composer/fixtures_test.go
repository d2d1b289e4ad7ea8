package composer

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/qbank-composer/internal/model"
)

func ptr[T any](v T) *T { return &v }

func question(course string, t model.QuestionType, pts float64, tags ...string) model.Question {
	return model.Question{
		ID:         uuid.New(),
		CourseCode: course,
		Type:       t,
		Points:     pts,
		Tags:       tags,
	}
}

func variant(block uuid.UUID, number int, pts float64) model.Question {
	q := question("MATH101", model.QuestionTypeShortAnswer, pts, "algebra")
	q.BlockID = &block
	q.VariantNumber = number
	return q
}

func selected(qs ...model.Question) []model.SelectedQuestion {
	out := make([]model.SelectedQuestion, len(qs))
	for i, q := range qs {
		out[i] = model.SelectedQuestion{Question: q, Section: "S"}
	}
	return out
}

func ids(qs []model.SelectedQuestion) []uuid.UUID {
	out := make([]uuid.UUID, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}

func sum(qs []model.SelectedQuestion) (total float64, byType model.PointBreakdown) {
	for _, q := range qs {
		total += q.Points
		byType.Add(q.Type, q.Points)
	}
	return total, byType
}

// memoryStates is an in-process StateStore.
type memoryStates struct {
	mu      sync.Mutex
	states  map[uuid.UUID]model.PersistedState
	saves   int
	deletes int
	loadErr error
}

func newMemoryStates() *memoryStates {
	return &memoryStates{states: make(map[uuid.UUID]model.PersistedState)}
}

func (m *memoryStates) Load(_ context.Context, id uuid.UUID) (*model.PersistedState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	st, ok := m.states[id]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *memoryStates) Save(_ context.Context, st model.PersistedState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.states[st.TemplateID] = st
	return nil
}

func (m *memoryStates) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.states, id)
	return nil
}

func (m *memoryStates) get(id uuid.UUID) (model.PersistedState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[id]
	return st, ok
}

// recordingNotifier keeps every published event.
type recordingNotifier struct {
	mu     sync.Mutex
	events []model.CompositionEvent
}

func (n *recordingNotifier) Publish(_ context.Context, ev model.CompositionEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) types() []model.CompositionEventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.CompositionEventType, len(n.events))
	for i, ev := range n.events {
		out[i] = ev.Type
	}
	return out
}

// interleavingSource runs hook once, on the first query or get after it is
// armed, before delegating. It stands in for an edit landing mid-fetch.
type interleavingSource struct {
	QuestionSource
	mu   sync.Mutex
	hook func()
}

func (s *interleavingSource) arm(hook func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

func (s *interleavingSource) fire() {
	s.mu.Lock()
	hook := s.hook
	s.hook = nil
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (s *interleavingSource) QueryQuestions(ctx context.Context, q model.QuestionQuery) (model.QuestionPage, error) {
	s.fire()
	return s.QuestionSource.QueryQuestions(ctx, q)
}

func (s *interleavingSource) GetQuestion(ctx context.Context, id uuid.UUID) (model.Question, error) {
	s.fire()
	return s.QuestionSource.GetQuestion(ctx, id)
}
