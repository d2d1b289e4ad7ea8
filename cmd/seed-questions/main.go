package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/qbank-composer/internal/config"
	"github.com/stemsi/qbank-composer/internal/database"
	"github.com/stemsi/qbank-composer/internal/logger"
	"github.com/stemsi/qbank-composer/internal/model"
	"github.com/stemsi/qbank-composer/internal/repository"
)

type course struct {
	code   string
	topics []string
}

var courses = []course{
	{code: "MATH101", topics: []string{"algebra", "geometry", "calculus", "statistics"}},
	{code: "PHYS101", topics: []string{"kinematics", "dynamics", "waves", "optics"}},
}

// pointsByType keeps seeded points in the ranges authors typically use.
var pointsByType = map[model.QuestionType][]float64{
	model.QuestionTypeMultipleChoice: {1, 2},
	model.QuestionTypeTrueFalse:      {1},
	model.QuestionTypeShortAnswer:    {3, 4, 5},
	model.QuestionTypeLongAnswer:     {8, 10, 12},
}

const perTypeAndTopic = 6

func main() {
	cfg := config.Load()
	log := logger.Component(logger.Setup(cfg.LogLevel, cfg.LogFormat), "seed")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 42))
	templateRepo := repository.NewTemplateRepository(pool)

	for _, c := range courses {
		bankID := uuid.New()
		n, err := seedCourse(ctx, pool, rng, bankID, c)
		if err != nil {
			log.Fatal().Err(err).Str("course", c.code).Msg("Failed to seed course")
		}
		log.Info().Str("course", c.code).Int("questions", n).Msg("Seeded question bank")

		tpl := sampleTemplate(c)
		if err := templateRepo.Create(ctx, &tpl); err != nil {
			log.Fatal().Err(err).Str("course", c.code).Msg("Failed to create template")
		}
		log.Info().Str("course", c.code).Str("template_id", tpl.ID.String()).Msg("Created sample template")
	}

	fmt.Println("Seed completed.")
}

// seedCourse writes one course's bank in a single transaction: tags, loose
// questions and two blocks of interchangeable variants.
func seedCourse(ctx context.Context, pool *pgxpool.Pool, rng *rand.Rand, bankID uuid.UUID, c course) (int, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, topic := range c.topics {
		batch.Queue(`INSERT INTO tags (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, topic)
	}

	count := 0
	for _, topic := range c.topics {
		for _, qt := range model.QuestionTypes {
			for i := range perTypeAndTopic {
				id := uuid.New()
				pts := pointsByType[qt][rng.IntN(len(pointsByType[qt]))]
				queueQuestion(batch, id, bankID, c.code, qt, pts, fmt.Sprintf("%s %s question %d", topic, qt, i+1), nil, 0)
				queueTag(batch, id, topic)
				count++
			}
		}
	}

	// Blocks hold variants of the same long-answer problem at different weights.
	for b, topic := range c.topics[:2] {
		blockID := uuid.New()
		batch.Queue(
			`INSERT INTO blocks (id, bank_id, name, max_questions, description) VALUES ($1, $2, $3, 1, $4)`,
			blockID, bankID, fmt.Sprintf("%s block %d", c.code, b+1), "Interchangeable "+topic+" problem",
		)
		for v, pts := range []float64{8, 10, 12} {
			id := uuid.New()
			queueQuestion(batch, id, bankID, c.code, model.QuestionTypeLongAnswer, pts,
				fmt.Sprintf("%s block problem, variant %d", topic, v+1), &blockID, v+1)
			queueTag(batch, id, topic)
			count++
		}
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, err
	}
	return count, tx.Commit(ctx)
}

func queueQuestion(batch *pgx.Batch, id, bankID uuid.UUID, courseCode string, qt model.QuestionType, pts float64, text string, blockID *uuid.UUID, variant int) {
	batch.Queue(
		`INSERT INTO questions (id, course_code, bank_id, question_type, text, points, difficulty, block_id, variant_number)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, courseCode, bankID, qt, text, pts, difficultyFor(pts), blockID, variant,
	)
}

func queueTag(batch *pgx.Batch, questionID uuid.UUID, tag string) {
	batch.Queue(
		`INSERT INTO question_tags (question_id, tag_id) SELECT $1, id FROM tags WHERE name = $2`,
		questionID, tag,
	)
}

func difficultyFor(pts float64) model.Difficulty {
	switch {
	case pts >= 10:
		return model.DifficultyHard
	case pts >= 3:
		return model.DifficultyMedium
	default:
		return model.DifficultyEasy
	}
}

func sampleTemplate(c course) model.ExamTemplate {
	count := func(n int) *int { return &n }
	limit := func(v float64) *float64 { return &v }

	return model.ExamTemplate{
		Name:       c.code + " midterm",
		CourseCode: c.code,
		Sections: []model.SectionRule{
			{
				ID: uuid.New(), Name: "Part A", Course: c.code,
				Type: model.QuestionTypeMultipleChoice, Count: count(10),
			},
			{
				ID: uuid.New(), Name: "Part B", Course: c.code, Tags: c.topics[:2],
				Type: model.QuestionTypeShortAnswer, Count: count(4),
			},
			{
				ID: uuid.New(), Name: "Part C", Course: c.code,
				Type:     model.QuestionTypeLongAnswer,
				Ceilings: model.Ceilings{MaxPoints: limit(30)},
			},
		},
		Constraints: model.Ceilings{MaxPoints: limit(60)},
	}
}
