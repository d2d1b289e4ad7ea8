package model

import (
	"time"

	"github.com/google/uuid"
)

// UnknownSection labels restored questions no current section claims.
const UnknownSection = "Unknown"

// SelectedQuestion is a question annotated with the section that selected it.
type SelectedQuestion struct {
	Question
	SectionID uuid.UUID `json:"section_id"`
	Section   string    `json:"section"`
}

// SelectedQuestions is the outcome of selecting one section.
type SelectedQuestions struct {
	Questions []SelectedQuestion `json:"questions"`
	IDs       map[uuid.UUID]bool `json:"-"`
}

// Clone returns a copy whose slice and id set can be mutated independently.
func (s SelectedQuestions) Clone() SelectedQuestions {
	out := SelectedQuestions{
		Questions: make([]SelectedQuestion, len(s.Questions)),
		IDs:       make(map[uuid.UUID]bool, len(s.IDs)),
	}
	copy(out.Questions, s.Questions)
	for id := range s.IDs {
		out.IDs[id] = true
	}
	return out
}

// PointBreakdown sums points per question type.
type PointBreakdown struct {
	MultipleChoice float64 `json:"multipleChoice"`
	TrueFalse      float64 `json:"trueFalse"`
	ShortAnswer    float64 `json:"shortAnswer"`
	LongAnswer     float64 `json:"longAnswer"`
}

// Add accumulates pts under type t.
func (b *PointBreakdown) Add(t QuestionType, pts float64) {
	switch t {
	case QuestionTypeMultipleChoice:
		b.MultipleChoice += pts
	case QuestionTypeTrueFalse:
		b.TrueFalse += pts
	case QuestionTypeShortAnswer:
		b.ShortAnswer += pts
	case QuestionTypeLongAnswer:
		b.LongAnswer += pts
	}
}

// Get returns the running total for type t.
func (b PointBreakdown) Get(t QuestionType) float64 {
	switch t {
	case QuestionTypeMultipleChoice:
		return b.MultipleChoice
	case QuestionTypeTrueFalse:
		return b.TrueFalse
	case QuestionTypeShortAnswer:
		return b.ShortAnswer
	case QuestionTypeLongAnswer:
		return b.LongAnswer
	}
	return 0
}

// CompositionSource tells where a composition came from.
type CompositionSource string

const (
	SourceComputed CompositionSource = "computed"
	SourceReplayed CompositionSource = "replayed"
	SourceRestored CompositionSource = "restored"
)

// CompositionResult is the finalized flat question list of one exam.
type CompositionResult struct {
	Questions    []SelectedQuestion         `json:"questions"`
	TotalPoints  float64                    `json:"total_points"`
	PointsByType PointBreakdown             `json:"points_by_type"`
	Overrides    map[uuid.UUID]AnswerFormat `json:"overrides,omitempty"`
	Source       CompositionSource          `json:"source"`
}

// IDs returns the ordered question ids.
func (r CompositionResult) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(r.Questions))
	for i, q := range r.Questions {
		ids[i] = q.ID
	}
	return ids
}

// AnswerFormat overrides the printed answer area of one question.
type AnswerFormat struct {
	LineLength    string `json:"line_length,omitempty"`
	SolutionSpace string `json:"solution_space,omitempty"`
}

// IsZero reports whether no override is set.
func (f AnswerFormat) IsZero() bool {
	return f.LineLength == "" && f.SolutionSpace == ""
}

// PersistedState is what survives a reload of the authoring page.
type PersistedState struct {
	TemplateID  uuid.UUID                  `json:"template_id"`
	QuestionIDs []uuid.UUID                `json:"question_ids"`
	Overrides   map[uuid.UUID]AnswerFormat `json:"overrides,omitempty"`
	SavedAt     time.Time                  `json:"saved_at"`
}
