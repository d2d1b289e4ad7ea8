package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/qbank-composer/internal/model"
)

// MemoryTemplateStore keeps templates in process, mirroring TemplateRepository.
type MemoryTemplateStore struct {
	mu        sync.RWMutex
	templates map[uuid.UUID]model.ExamTemplate
}

func NewMemoryTemplateStore(templates ...model.ExamTemplate) *MemoryTemplateStore {
	m := &MemoryTemplateStore{templates: make(map[uuid.UUID]model.ExamTemplate)}
	for _, t := range templates {
		m.templates[t.ID] = t
	}
	return m
}

func (m *MemoryTemplateStore) GetByID(_ context.Context, id uuid.UUID) (*model.ExamTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	t.Sections = slices.Clone(t.Sections)
	return &t, nil
}

func (m *MemoryTemplateStore) UpdateSections(_ context.Context, id uuid.UUID, sections []model.SectionRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.Sections = slices.Clone(sections)
	t.UpdatedAt = time.Now()
	m.templates[id] = t
	return nil
}

func (m *MemoryTemplateStore) UpdateConstraints(_ context.Context, id uuid.UUID, c model.Ceilings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.Constraints = c
	t.UpdatedAt = time.Now()
	m.templates[id] = t
	return nil
}
