package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/qbank-composer/internal/config"
	"github.com/stemsi/qbank-composer/internal/model"
)

// StateStore keeps the final composition of each template in Redis so a
// page reload restores the same questions.
type StateStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStateStore creates a StateStore. A zero ttl keeps states forever.
func NewStateStore(rdb *redis.Client, ttl time.Duration) *StateStore {
	return &StateStore{rdb: rdb, ttl: ttl}
}

// Load returns nil, nil when the template has no persisted state.
func (s *StateStore) Load(ctx context.Context, templateID uuid.UUID) (*model.PersistedState, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.CompositionStateKey(templateID.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get composition state: %w", err)
	}

	var st model.PersistedState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal composition state: %w", err)
	}
	return &st, nil
}

func (s *StateStore) Save(ctx context.Context, st model.PersistedState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal composition state: %w", err)
	}
	key := config.CacheKey.CompositionStateKey(st.TemplateID.String())
	if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set composition state: %w", err)
	}
	return nil
}

func (s *StateStore) Delete(ctx context.Context, templateID uuid.UUID) error {
	return s.rdb.Del(ctx, config.CacheKey.CompositionStateKey(templateID.String())).Err()
}
