package model

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates the question kinds an exam can draw from.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multipleChoice"
	QuestionTypeTrueFalse      QuestionType = "trueFalse"
	QuestionTypeShortAnswer    QuestionType = "shortAnswer"
	QuestionTypeLongAnswer     QuestionType = "longAnswer"
)

// QuestionTypes lists every supported type in display order.
var QuestionTypes = []QuestionType{
	QuestionTypeMultipleChoice,
	QuestionTypeTrueFalse,
	QuestionTypeShortAnswer,
	QuestionTypeLongAnswer,
}

// Valid reports whether t is one of the supported question types.
func (t QuestionType) Valid() bool {
	return slices.Contains(QuestionTypes, t)
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question represents a single bank question as served by the question store.
type Question struct {
	ID            uuid.UUID       `json:"id"`
	CourseCode    string          `json:"course"`
	BankID        uuid.UUID       `json:"bank_id"`
	Type          QuestionType    `json:"question_type"`
	Text          string          `json:"text"`
	Points        float64         `json:"points"`
	Difficulty    Difficulty      `json:"difficulty"`
	Tags          []string        `json:"tags"`
	BlockID       *uuid.UUID      `json:"block_id,omitempty"`
	VariantNumber int             `json:"variant_number"`
	AnswerData    json.RawMessage `json:"answer_data,omitempty"`
	LineLength    string          `json:"line_length,omitempty"`
	SolutionSpace string          `json:"solution_space,omitempty"`
	TimesUsed     int             `json:"times_used"`
	LastUsed      *time.Time      `json:"last_used,omitempty"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
}

// InBlock reports whether the question is one variant of an interchangeable block.
func (q Question) InBlock() bool {
	return q.BlockID != nil && *q.BlockID != uuid.Nil
}

// HasTag reports whether the question carries any of the given tags.
// An empty tag list matches every question.
func (q Question) HasTag(tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, t := range q.Tags {
		if slices.Contains(tags, t) {
			return true
		}
	}
	return false
}

// Block groups interchangeable question variants.
type Block struct {
	ID           uuid.UUID `json:"id"`
	BankID       uuid.UUID `json:"bank_id"`
	Name         string    `json:"name"`
	MaxQuestions int       `json:"max_questions"`
	Description  string    `json:"description"`
}

// QuestionQuery is the filter accepted by the question store.
// Filters compose as course AND type AND (tag1 OR tag2 OR ...).
type QuestionQuery struct {
	Course   string       `form:"course" json:"course,omitempty"`
	Type     QuestionType `form:"type" json:"type,omitempty" binding:"omitempty,qtype"`
	Tags     []string     `form:"tags" json:"tags,omitempty"`
	PageSize int          `form:"page_size" json:"page_size,omitempty" binding:"omitempty,min=1,max=1000"`
}

// Matches applies the query semantics to a single question.
func (qq QuestionQuery) Matches(q Question) bool {
	if qq.Course != "" && q.CourseCode != qq.Course {
		return false
	}
	if qq.Type != "" && q.Type != qq.Type {
		return false
	}
	return q.HasTag(qq.Tags)
}

// QuestionPage is one page of query results plus the total match count.
type QuestionPage struct {
	Results []Question `json:"results"`
	Count   int        `json:"count"`
}
