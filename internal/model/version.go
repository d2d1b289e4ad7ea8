package model

import (
	"github.com/google/uuid"
)

// Version is one of N parallel exams built from the same composition.
type Version struct {
	Label        string             `json:"label"`
	Questions    []SelectedQuestion `json:"questions"`
	TotalPoints  float64            `json:"total_points"`
	PointsByType PointBreakdown     `json:"points_by_type"`
}

// BlockFallback records a block whose variants could not be used, so it
// repeats the already-selected variant in every version.
type BlockFallback struct {
	BlockID    uuid.UUID `json:"block_id"`
	QuestionID uuid.UUID `json:"question_id"`
	Reason     string    `json:"reason"`
}

// VersionSet holds the generated versions and their point parity.
type VersionSet struct {
	Versions    []Version       `json:"versions"`
	PointSpread float64         `json:"point_spread"`
	PointsEqual bool            `json:"points_equal"`
	Fallbacks   []BlockFallback `json:"fallbacks,omitempty"`
	// Collapsed lists extra selected questions dropped because an earlier
	// question already occupies their block.
	Collapsed []uuid.UUID `json:"collapsed,omitempty"`
}
