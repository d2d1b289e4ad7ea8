package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/qbank-composer/internal/model"
)

const defaultHistoryLimit = 50

type HistoryReader interface {
	ListByTemplate(ctx context.Context, templateID uuid.UUID, limit int) ([]model.GeneratedExam, error)
}

// HistoryService lists the exam versions produced from a template.
type HistoryService struct {
	reader HistoryReader
}

func NewHistoryService(reader HistoryReader) *HistoryService {
	return &HistoryService{reader: reader}
}

func (s *HistoryService) List(ctx context.Context, templateID uuid.UUID, limit int) ([]model.GeneratedExam, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultHistoryLimit
	}
	return s.reader.ListByTemplate(ctx, templateID, limit)
}
