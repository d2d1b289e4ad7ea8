package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/qbank-composer/internal/config"
	"github.com/stemsi/qbank-composer/internal/model"
)

// usagePayload is one generated exam version waiting to be recorded.
type usagePayload struct {
	TemplateID  string   `json:"template_id"`
	ExamUUID    string   `json:"exam_uuid"`
	Version     string   `json:"version"`
	TotalPoints float64  `json:"total_points"`
	QuestionIDs []string `json:"question_ids"`
	// Attempts counts failed single inserts of this payload.
	Attempts int `json:"attempts,omitempty"`
}

func (p *usagePayload) exam() (model.GeneratedExam, error) {
	templateID, err := uuid.Parse(p.TemplateID)
	if err != nil {
		return model.GeneratedExam{}, err
	}
	examUUID, err := uuid.Parse(p.ExamUUID)
	if err != nil {
		return model.GeneratedExam{}, err
	}
	ids := make([]uuid.UUID, 0, len(p.QuestionIDs))
	for _, raw := range p.QuestionIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return model.GeneratedExam{}, err
		}
		ids = append(ids, id)
	}
	return model.GeneratedExam{
		TemplateID:  templateID,
		ExamUUID:    examUUID,
		Version:     p.Version,
		TotalPoints: p.TotalPoints,
		QuestionIDs: ids,
	}, nil
}

// UsageQueue pushes generated exam versions onto the usage queue.
type UsageQueue struct {
	rdb *redis.Client
}

func NewUsageQueue(rdb *redis.Client) *UsageQueue {
	return &UsageQueue{rdb: rdb}
}

// Enqueue records one history entry per version of the set.
func (q *UsageQueue) Enqueue(ctx context.Context, templateID uuid.UUID, set model.VersionSet) error {
	if len(set.Versions) == 0 {
		return nil
	}

	raws := make([]any, 0, len(set.Versions))
	for _, v := range set.Versions {
		p := usagePayload{
			TemplateID:  templateID.String(),
			ExamUUID:    uuid.New().String(),
			Version:     v.Label,
			TotalPoints: v.TotalPoints,
			QuestionIDs: make([]string, len(v.Questions)),
		}
		for i, qq := range v.Questions {
			p.QuestionIDs[i] = qq.ID.String()
		}
		raw, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal usage payload: %w", err)
		}
		raws = append(raws, raw)
	}

	return q.rdb.RPush(ctx, config.WorkerKey.PersistUsageQueue, raws...).Err()
}
