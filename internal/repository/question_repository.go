package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/qbank-composer/internal/model"
)

// DefaultPageSize caps candidate queries that do not specify a page size.
const DefaultPageSize = 200

// QuestionRepository serves the question-query contract from PostgreSQL.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionColumns = `
	q.id, q.course_code, q.bank_id, q.question_type, q.text, q.points, q.difficulty,
	ARRAY(
		SELECT t.name FROM question_tags qt
		JOIN tags t ON t.id = qt.tag_id
		WHERE qt.question_id = q.id
		ORDER BY t.name
	) AS tags,
	q.block_id, q.variant_number, q.answer_data, q.line_length, q.solution_space,
	q.times_used, q.last_used, q.deleted_at`

func scanQuestion(row pgx.Row) (model.Question, error) {
	var q model.Question
	err := row.Scan(
		&q.ID, &q.CourseCode, &q.BankID, &q.Type, &q.Text, &q.Points, &q.Difficulty,
		&q.Tags,
		&q.BlockID, &q.VariantNumber, &q.AnswerData, &q.LineLength, &q.SolutionSpace,
		&q.TimesUsed, &q.LastUsed, &q.DeletedAt,
	)
	return q, err
}

// QueryQuestions lists live canonical questions matching course AND type AND
// any of the tags. Only the first variant of each block is listed.
func (r *QuestionRepository) QueryQuestions(ctx context.Context, qq model.QuestionQuery) (model.QuestionPage, error) {
	baseQuery := `
		FROM questions q
		WHERE q.deleted_at IS NULL
		  AND q.canonical_id IS NULL
		  AND (q.block_id IS NULL OR q.variant_number <= 1)
	`
	args := []any{}

	if qq.Course != "" {
		args = append(args, qq.Course)
		baseQuery += fmt.Sprintf(" AND q.course_code = $%d", len(args))
	}
	if qq.Type != "" {
		args = append(args, qq.Type)
		baseQuery += fmt.Sprintf(" AND q.question_type = $%d", len(args))
	}
	if len(qq.Tags) > 0 {
		args = append(args, qq.Tags)
		baseQuery += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM question_tags qt
			JOIN tags t ON t.id = qt.tag_id
			WHERE qt.question_id = q.id AND t.name = ANY($%d)
		)`, len(args))
	}

	var page model.QuestionPage
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&page.Count); err != nil {
		return model.QuestionPage{}, err
	}

	pageSize := qq.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	query := `SELECT ` + questionColumns + baseQuery +
		fmt.Sprintf(" ORDER BY q.created_at, q.id LIMIT $%d", len(args)+1)
	args = append(args, pageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return model.QuestionPage{}, err
	}
	defer rows.Close()

	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return model.QuestionPage{}, err
		}
		page.Results = append(page.Results, q)
	}
	return page, rows.Err()
}

// GetQuestion fetches a single question by id, deleted or not.
func (r *QuestionRepository) GetQuestion(ctx context.Context, id uuid.UUID) (model.Question, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions q WHERE q.id = $1`, id)
	return scanQuestion(row)
}

// GetBlockVariants lists the live variants of a block ordered by variant number.
func (r *QuestionRepository) GetBlockVariants(ctx context.Context, blockID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+`
		 FROM questions q
		 WHERE q.block_id = $1 AND q.deleted_at IS NULL
		 ORDER BY q.variant_number, q.id`, blockID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var variants []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, q)
	}
	return variants, rows.Err()
}

// GetBlock fetches block metadata.
func (r *QuestionRepository) GetBlock(ctx context.Context, id uuid.UUID) (model.Block, error) {
	var b model.Block
	err := r.pool.QueryRow(ctx,
		`SELECT id, bank_id, name, max_questions, description FROM blocks WHERE id = $1`, id,
	).Scan(&b.ID, &b.BankID, &b.Name, &b.MaxQuestions, &b.Description)
	return b, err
}
