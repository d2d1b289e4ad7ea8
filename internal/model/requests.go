package model

import (
	"github.com/google/uuid"
)

// ─── Composition Requests ───────────────────────────────────────────

type SectionRuleRequest struct {
	ID     *uuid.UUID   `json:"id"`
	Name   string       `json:"name" binding:"required,max=255"`
	Course string       `json:"course" binding:"omitempty,max=64"`
	Tags   []string     `json:"tags" binding:"omitempty,dive,required,max=128"`
	Type   QuestionType `json:"type" binding:"omitempty,qtype"`
	Count  *int         `json:"count" binding:"omitempty,min=1"`
	Ceilings
}

// Rule converts the request into a section rule, assigning a fresh id
// when none was supplied.
func (r SectionRuleRequest) Rule() SectionRule {
	id := uuid.New()
	if r.ID != nil && *r.ID != uuid.Nil {
		id = *r.ID
	}
	return SectionRule{
		ID:       id,
		Name:     r.Name,
		Course:   r.Course,
		Tags:     r.Tags,
		Type:     r.Type,
		Count:    r.Count,
		Ceilings: r.Ceilings,
	}
}

type UpdateSectionsRequest struct {
	Sections []SectionRuleRequest `json:"sections" binding:"required,max=50,dive"`
}

type UpdateConstraintsRequest struct {
	Ceilings
}

type BalanceRequest struct {
	TargetPoints float64 `json:"target_points" binding:"required,gt=0"`
}

type AnswerFormatRequest struct {
	LineLength    string `json:"line_length" binding:"omitempty,max=32"`
	SolutionSpace string `json:"solution_space" binding:"omitempty,max=32"`
}

// GenerateVersionsRequest asks for Count versions. 0 and 1 both return the
// composition as the single version A.
type GenerateVersionsRequest struct {
	Count   int  `json:"count" binding:"min=0"`
	Shuffle bool `json:"shuffle"`
}

type AvailableCountRequest struct {
	Course string       `form:"course" json:"course" binding:"omitempty,max=64"`
	Type   QuestionType `form:"type" json:"type" binding:"omitempty,qtype"`
	Tags   []string     `form:"tags" json:"tags"`
}

// Rule builds a throwaway rule for availability counting.
func (r AvailableCountRequest) Rule() SectionRule {
	return SectionRule{Course: r.Course, Type: r.Type, Tags: r.Tags}
}
