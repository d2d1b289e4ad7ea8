package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/qbank-composer/internal/model"
)

// MemoryQuestionStore is an in-process question store with the same
// query semantics as QuestionRepository. Failures can be injected per call
// kind, and every call is counted.
type MemoryQuestionStore struct {
	mu        sync.RWMutex
	questions []model.Question

	queryErr   error
	getErr     map[uuid.UUID]error
	variantErr map[uuid.UUID]error

	queries  int
	gets     int
	variants int
}

func NewMemoryQuestionStore(questions ...model.Question) *MemoryQuestionStore {
	return &MemoryQuestionStore{
		questions:  slices.Clone(questions),
		getErr:     make(map[uuid.UUID]error),
		variantErr: make(map[uuid.UUID]error),
	}
}

// Add appends questions to the store.
func (m *MemoryQuestionStore) Add(questions ...model.Question) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions = append(m.questions, questions...)
}

// Delete soft-deletes a question.
func (m *MemoryQuestionStore) Delete(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.questions {
		if m.questions[i].ID == id {
			now := time.Now().UTC()
			m.questions[i].DeletedAt = &now
		}
	}
}

// FailQueries makes every QueryQuestions call return err until reset with nil.
func (m *MemoryQuestionStore) FailQueries(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryErr = err
}

// FailGet makes GetQuestion(id) return err.
func (m *MemoryQuestionStore) FailGet(id uuid.UUID, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr[id] = err
}

// FailVariants makes GetBlockVariants(blockID) return err.
func (m *MemoryQuestionStore) FailVariants(blockID uuid.UUID, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.variantErr[blockID] = err
}

// Calls returns how many query, get and variant calls were made.
func (m *MemoryQuestionStore) Calls() (queries, gets, variants int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queries, m.gets, m.variants
}

func (m *MemoryQuestionStore) QueryQuestions(_ context.Context, qq model.QuestionQuery) (model.QuestionPage, error) {
	m.mu.Lock()
	m.queries++
	err := m.queryErr
	m.mu.Unlock()
	if err != nil {
		return model.QuestionPage{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var page model.QuestionPage
	for _, q := range m.questions {
		if q.DeletedAt != nil || (q.InBlock() && q.VariantNumber > 1) {
			continue
		}
		if !qq.Matches(q) {
			continue
		}
		page.Count++
		page.Results = append(page.Results, q)
	}

	pageSize := qq.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if len(page.Results) > pageSize {
		page.Results = page.Results[:pageSize]
	}
	return page, nil
}

func (m *MemoryQuestionStore) GetQuestion(_ context.Context, id uuid.UUID) (model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if err := m.getErr[id]; err != nil {
		return model.Question{}, err
	}
	for _, q := range m.questions {
		if q.ID == id {
			return q, nil
		}
	}
	return model.Question{}, pgx.ErrNoRows
}

func (m *MemoryQuestionStore) GetBlockVariants(_ context.Context, blockID uuid.UUID) ([]model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.variants++
	if err := m.variantErr[blockID]; err != nil {
		return nil, err
	}
	var out []model.Question
	for _, q := range m.questions {
		if q.InBlock() && *q.BlockID == blockID && q.DeletedAt == nil {
			out = append(out, q)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Question) int {
		return cmp.Compare(a.VariantNumber, b.VariantNumber)
	})
	return out, nil
}
