package model

import (
	"github.com/google/uuid"
)

// Ceilings caps point totals, in aggregate and per question type.
// A nil or zero ceiling means "no limit".
type Ceilings struct {
	MaxPoints      *float64 `json:"max_points,omitempty" binding:"omitempty,ceiling"`
	MaxMCPoints    *float64 `json:"max_mc_points,omitempty" binding:"omitempty,ceiling"`
	MaxTFPoints    *float64 `json:"max_tf_points,omitempty" binding:"omitempty,ceiling"`
	MaxShortPoints *float64 `json:"max_short_points,omitempty" binding:"omitempty,ceiling"`
	MaxLongPoints  *float64 `json:"max_long_points,omitempty" binding:"omitempty,ceiling"`
}

// ForType returns the per-type ceiling for t, or nil when unset.
func (c Ceilings) ForType(t QuestionType) *float64 {
	var v *float64
	switch t {
	case QuestionTypeMultipleChoice:
		v = c.MaxMCPoints
	case QuestionTypeTrueFalse:
		v = c.MaxTFPoints
	case QuestionTypeShortAnswer:
		v = c.MaxShortPoints
	case QuestionTypeLongAnswer:
		v = c.MaxLongPoints
	}
	return active(v)
}

// Total returns the aggregate ceiling, or nil when unset.
func (c Ceilings) Total() *float64 {
	return active(c.MaxPoints)
}

// Any reports whether at least one ceiling is in effect.
func (c Ceilings) Any() bool {
	if c.Total() != nil {
		return true
	}
	for _, t := range QuestionTypes {
		if c.ForType(t) != nil {
			return true
		}
	}
	return false
}

// All returns the five ceilings in a fixed order: aggregate, MC, TF, short, long.
func (c Ceilings) All() [5]*float64 {
	return [5]*float64{c.MaxPoints, c.MaxMCPoints, c.MaxTFPoints, c.MaxShortPoints, c.MaxLongPoints}
}

func active(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	return v
}

// SectionRule is one declarative selection rule of an exam template.
type SectionRule struct {
	ID     uuid.UUID    `json:"id"`
	Name   string       `json:"name"`
	Course string       `json:"course,omitempty"`
	Tags   []string     `json:"tags"`
	Type   QuestionType `json:"type,omitempty"`
	// Count is the number of questions to draw. Nil means "all available".
	Count *int `json:"count,omitempty"`
	Ceilings
}

// Query builds the candidate-pool query for the rule.
func (r SectionRule) Query(pageSize int) QuestionQuery {
	return QuestionQuery{
		Course:   r.Course,
		Type:     r.Type,
		Tags:     r.Tags,
		PageSize: pageSize,
	}
}

// Matches reports whether q would be part of the rule's candidate pool.
func (r SectionRule) Matches(q Question) bool {
	return r.Query(0).Matches(q)
}
