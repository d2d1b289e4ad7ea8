package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/qbank-composer/internal/model"
)

// GeneratedExamRepository records produced exam versions and bumps the
// usage counters of the questions they contain.
type GeneratedExamRepository struct {
	pool *pgxpool.Pool
}

func NewGeneratedExamRepository(pool *pgxpool.Pool) *GeneratedExamRepository {
	return &GeneratedExamRepository{pool: pool}
}

// InsertBatch writes all exams in one transaction. Exams whose exam_uuid
// already exists are skipped, counters included.
func (r *GeneratedExamRepository) InsertBatch(ctx context.Context, exams []model.GeneratedExam) error {
	if len(exams) == 0 {
		return nil
	}

	n := len(exams)
	templateIDs := make([]uuid.UUID, 0, n)
	examUUIDs := make([]uuid.UUID, 0, n)
	versions := make([]string, 0, n)
	totals := make([]float64, 0, n)
	idLists := make([][]byte, 0, n)

	for _, e := range exams {
		ids, err := json.Marshal(e.QuestionIDs)
		if err != nil {
			return err
		}
		templateIDs = append(templateIDs, e.TemplateID)
		examUUIDs = append(examUUIDs, e.ExamUUID)
		versions = append(versions, e.Version)
		totals = append(totals, e.TotalPoints)
		idLists = append(idLists, ids)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		INSERT INTO generated_exams (template_id, exam_uuid, version, total_points, question_ids)
		SELECT u.template_id, u.exam_uuid, u.version, u.total_points, u.question_ids
		FROM UNNEST(
			$1::uuid[],
			$2::uuid[],
			$3::text[],
			$4::float8[],
			$5::jsonb[]
		) AS u (template_id, exam_uuid, version, total_points, question_ids)
		ON CONFLICT (exam_uuid) DO NOTHING
		RETURNING exam_uuid`,
		templateIDs, examUUIDs, versions, totals, idLists,
	)
	if err != nil {
		return err
	}
	inserted, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return err
	}

	isNew := make(map[uuid.UUID]bool, len(inserted))
	for _, id := range inserted {
		isNew[id] = true
	}

	var (
		linkExams     []uuid.UUID
		linkQuestions []uuid.UUID
		linkPositions []int
	)
	for _, e := range exams {
		if !isNew[e.ExamUUID] {
			continue
		}
		for pos, qid := range e.QuestionIDs {
			linkExams = append(linkExams, e.ExamUUID)
			linkQuestions = append(linkQuestions, qid)
			linkPositions = append(linkPositions, pos+1)
		}
	}
	if len(linkQuestions) == 0 {
		return tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO exam_questions (generated_exam_id, question_id, position)
		SELECT g.id, u.question_id, u.position
		FROM UNNEST($1::uuid[], $2::uuid[], $3::int[]) AS u (exam_uuid, question_id, position)
		JOIN generated_exams g ON g.exam_uuid = u.exam_uuid`,
		linkExams, linkQuestions, linkPositions,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE questions AS q
		SET times_used = q.times_used + t.uses,
		    last_used = NOW()
		FROM (
			SELECT u.question_id, COUNT(*) AS uses
			FROM UNNEST($1::uuid[]) AS u (question_id)
			GROUP BY u.question_id
		) AS t
		WHERE q.id = t.question_id`,
		linkQuestions,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListByTemplate returns the history of a template, newest first.
func (r *GeneratedExamRepository) ListByTemplate(ctx context.Context, templateID uuid.UUID, limit int) ([]model.GeneratedExam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, template_id, exam_uuid, version, total_points, question_ids, created_at
		 FROM generated_exams WHERE template_id = $1
		 ORDER BY created_at DESC, version ASC
		 LIMIT $2`, templateID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.GeneratedExam
	for rows.Next() {
		var (
			e   model.GeneratedExam
			ids []byte
		)
		if err := rows.Scan(&e.ID, &e.TemplateID, &e.ExamUUID, &e.Version, &e.TotalPoints, &ids, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(ids, &e.QuestionIDs); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}
