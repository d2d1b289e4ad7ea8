package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamTemplate is the saved configuration an exam is composed from.
type ExamTemplate struct {
	ID                   uuid.UUID     `json:"id"`
	Name                 string        `json:"name"`
	CourseCode           string        `json:"course"`
	IsQuiz               bool          `json:"is_quiz"`
	Sections             []SectionRule `json:"sections"`
	Constraints          Ceilings      `json:"constraints"`
	DefaultLineLength    string        `json:"default_line_length"`
	DefaultSolutionSpace string        `json:"default_solution_space"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// GeneratedExam is a history record of one produced exam version.
type GeneratedExam struct {
	ID          int64       `json:"id"`
	TemplateID  uuid.UUID   `json:"template_id"`
	ExamUUID    uuid.UUID   `json:"exam_uuid"`
	Version     string      `json:"version"`
	TotalPoints float64     `json:"total_points"`
	QuestionIDs []uuid.UUID `json:"question_ids"`
	CreatedAt   time.Time   `json:"created_at"`
}
