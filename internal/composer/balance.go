package composer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/qbank-composer/internal/model"
)

// overshoot is how far above the target a balanced composition may stay.
const overshoot = 1.1

// Balance nudges the Ready composition toward target points. Above target,
// the highest-point question is removed while the total exceeds
// target*1.1. Below target, unused candidates of each section, in section
// order, are appended until the target is reached.
func (e *Engine) Balance(ctx context.Context, s *Session, target float64) (model.CompositionResult, error) {
	if target <= 0 {
		return model.CompositionResult{}, ErrInvalidTarget
	}

	s.mu.Lock()
	s.touch()
	if s.result == nil || s.stale {
		s.mu.Unlock()
		return model.CompositionResult{}, ErrNotReady
	}
	rev := s.revision
	questions := append([]model.SelectedQuestion(nil), s.result.Questions...)
	total := s.result.TotalPoints
	sections := append([]model.SectionRule(nil), s.sections...)
	s.mu.Unlock()

	if total >= target-epsilon {
		questions = trimToTarget(questions, total, target)
	} else {
		var err error
		questions, err = e.fillToTarget(ctx, questions, total, target, sections)
		if err != nil {
			return model.CompositionResult{}, err
		}
	}

	s.mu.Lock()
	if s.revision != rev {
		s.mu.Unlock()
		return model.CompositionResult{}, ErrSuperseded
	}
	s.commit(BuildResult(questions, model.SourceComputed))
	e.relabel(s)
	res := s.snapshot(model.SourceComputed)
	st := s.persisted()
	s.mu.Unlock()

	e.save(ctx, st)
	e.publish(ctx, model.CompositionEvent{
		Type:          model.EventCompositionReady,
		TemplateID:    s.templateID,
		QuestionCount: len(res.Questions),
		TotalPoints:   res.TotalPoints,
	})
	return res, nil
}

func trimToTarget(questions []model.SelectedQuestion, total, target float64) []model.SelectedQuestion {
	for len(questions) > 0 && total > target*overshoot+epsilon {
		hi := 0
		for i, q := range questions {
			if q.Points > questions[hi].Points {
				hi = i
			}
		}
		total -= questions[hi].Points
		questions = append(questions[:hi], questions[hi+1:]...)
	}
	return questions
}

func (e *Engine) fillToTarget(ctx context.Context, questions []model.SelectedQuestion, total, target float64, sections []model.SectionRule) ([]model.SelectedQuestion, error) {
	taken := make(map[uuid.UUID]bool, len(questions))
	for _, q := range questions {
		taken[q.ID] = true
	}

	for _, r := range sections {
		if total >= target-epsilon {
			break
		}
		page, err := e.source.QueryQuestions(ctx, r.Query(e.pageSize))
		if err != nil {
			return nil, &FetchError{Op: fmt.Sprintf("balance candidates for section %q", r.Name), Err: err}
		}

		var extra []model.Question
		for _, q := range page.Results {
			if !taken[q.ID] {
				extra = append(extra, q)
			}
		}
		Shuffle(e.selector, extra)

		for _, q := range extra {
			if total >= target-epsilon {
				break
			}
			if taken[q.ID] {
				continue
			}
			taken[q.ID] = true
			questions = append(questions, model.SelectedQuestion{Question: q, SectionID: r.ID, Section: r.Name})
			total += q.Points
		}
	}
	return questions, nil
}
