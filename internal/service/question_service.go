package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-composer/internal/composer"
	"github.com/stemsi/qbank-composer/internal/model"
)

var ErrQuestionNotFound = errors.New("question not found")

// QuestionService exposes the question-query collaborator over HTTP.
type QuestionService struct {
	source composer.QuestionSource
	log    zerolog.Logger
}

func NewQuestionService(source composer.QuestionSource, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		source: source,
		log:    log.With().Str("component", "question_service").Logger(),
	}
}

func (s *QuestionService) Query(ctx context.Context, q model.QuestionQuery) (model.QuestionPage, error) {
	return s.source.QueryQuestions(ctx, q)
}

func (s *QuestionService) Get(ctx context.Context, id uuid.UUID) (model.Question, error) {
	q, err := s.source.GetQuestion(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Question{}, ErrQuestionNotFound
	}
	return q, err
}

func (s *QuestionService) Variants(ctx context.Context, blockID uuid.UUID) ([]model.Question, error) {
	return s.source.GetBlockVariants(ctx, blockID)
}
