package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/qbank-composer/internal/config"
	"github.com/stemsi/qbank-composer/internal/model"
)

// EventBus fans composition events out over Redis Pub/Sub, one channel
// per template, so every API instance can stream them to its clients.
type EventBus struct {
	rdb *redis.Client
}

func NewEventBus(rdb *redis.Client) *EventBus {
	return &EventBus{rdb: rdb}
}

func (b *EventBus) Publish(ctx context.Context, ev model.CompositionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	channel := config.CacheKey.CompositionEventsChannel(ev.TemplateID.String())
	return b.rdb.Publish(ctx, channel, payload).Err()
}

// Subscribe opens a subscription to one template's events. The caller closes it.
func (b *EventBus) Subscribe(ctx context.Context, templateID uuid.UUID) *redis.PubSub {
	return b.rdb.Subscribe(ctx, config.CacheKey.CompositionEventsChannel(templateID.String()))
}
