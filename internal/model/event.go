package model

import (
	"time"

	"github.com/google/uuid"
)

type CompositionEventType string

const (
	EventCompositionReady       CompositionEventType = "composition_ready"
	EventCompositionFetchFailed CompositionEventType = "fetch_failed"
	EventCompositionInvalidated CompositionEventType = "invalidated"
	EventVersionsGenerated      CompositionEventType = "versions_generated"
)

// CompositionEvent is pushed to authoring clients watching a template.
type CompositionEvent struct {
	Type          CompositionEventType `json:"event"`
	TemplateID    uuid.UUID            `json:"template_id"`
	QuestionCount int                  `json:"question_count,omitempty"`
	TotalPoints   float64              `json:"total_points,omitempty"`
	Message       string               `json:"message,omitempty"`
	At            time.Time            `json:"at"`
}
