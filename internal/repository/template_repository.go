package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/qbank-composer/internal/model"
)

// TemplateRepository stores exam templates with their section rules.
type TemplateRepository struct {
	pool *pgxpool.Pool
}

func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

func (r *TemplateRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamTemplate, error) {
	var (
		t           model.ExamTemplate
		sections    []byte
		constraints []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, course_code, is_quiz, sections, constraints,
		        default_line_length, default_solution_space, created_at, updated_at
		 FROM exam_templates WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.CourseCode, &t.IsQuiz, &sections, &constraints,
		&t.DefaultLineLength, &t.DefaultSolutionSpace, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(sections, &t.Sections); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(constraints, &t.Constraints); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TemplateRepository) Create(ctx context.Context, t *model.ExamTemplate) error {
	if t.Sections == nil {
		t.Sections = []model.SectionRule{}
	}
	sections, err := json.Marshal(t.Sections)
	if err != nil {
		return err
	}
	constraints, err := json.Marshal(t.Constraints)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_templates (name, course_code, is_quiz, sections, constraints, default_line_length, default_solution_space)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		t.Name, t.CourseCode, t.IsQuiz, sections, constraints, t.DefaultLineLength, t.DefaultSolutionSpace,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (r *TemplateRepository) UpdateSections(ctx context.Context, id uuid.UUID, sections []model.SectionRule) error {
	raw, err := json.Marshal(sections)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `UPDATE exam_templates SET sections = $1, updated_at = NOW() WHERE id = $2`, raw, id)
	return err
}

func (r *TemplateRepository) UpdateConstraints(ctx context.Context, id uuid.UUID, c model.Ceilings) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `UPDATE exam_templates SET constraints = $1, updated_at = NOW() WHERE id = $2`, raw, id)
	return err
}
