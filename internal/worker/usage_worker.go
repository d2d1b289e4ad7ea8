package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-composer/internal/config"
	"github.com/stemsi/qbank-composer/internal/model"
)

const (
	UsageBatchSize    = 50
	UsageBatchTimeout = 2 * time.Second
	UsagePollTimeout  = 1 * time.Second
	// UsageMaxAttempts is how many single inserts a payload gets before it
	// moves to the dead-letter list.
	UsageMaxAttempts = 5
)

// UsageWriter persists generated exams and their question usage.
type UsageWriter interface {
	InsertBatch(ctx context.Context, exams []model.GeneratedExam) error
}

// UsageWorker drains the usage queue into PostgreSQL in batches.
type UsageWorker struct {
	writer UsageWriter
	rdb    *redis.Client
	log    zerolog.Logger
}

func NewUsageWorker(writer UsageWriter, rdb *redis.Client, log zerolog.Logger) *UsageWorker {
	return &UsageWorker{
		writer: writer,
		rdb:    rdb,
		log:    log.With().Str("component", "usage_worker").Logger(),
	}
}

func (w *UsageWorker) Start(ctx context.Context) {
	w.log.Info().Msg("UsageWorker started")

	batch := make([]*usagePayload, 0, UsageBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= UsageBatchSize || time.Since(lastFlush) >= UsageBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, UsagePollTimeout, config.WorkerKey.PersistUsageQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p usagePayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				w.deadLetter(ctx, []byte(item[1]))
				continue
			}

			if len(batch) == 0 {
				lastFlush = time.Now()
			}
			batch = append(batch, &p)
		}
	}
}

func (w *UsageWorker) flushSafe(ctx context.Context, batch []*usagePayload) {
	if len(batch) == 0 {
		return
	}

	exams := make([]model.GeneratedExam, 0, len(batch))
	valid := make([]*usagePayload, 0, len(batch))
	for _, p := range batch {
		e, err := p.exam()
		if err != nil {
			w.log.Error().Err(err).Str("exam_uuid", p.ExamUUID).Msg("Dropping malformed usage payload")
			raw, _ := json.Marshal(p)
			w.deadLetter(ctx, raw)
			continue
		}
		exams = append(exams, e)
		valid = append(valid, p)
	}

	if err := w.writer.InsertBatch(ctx, exams); err != nil {
		w.log.Warn().Err(err).Msg("bulk usage insert failed, using fallback")

		for i, e := range exams {
			if err := w.writer.InsertBatch(ctx, []model.GeneratedExam{e}); err != nil {
				p := valid[i]
				p.Attempts++
				raw, _ := json.Marshal(p)
				if p.Attempts >= UsageMaxAttempts {
					w.log.Error().Err(err).Str("exam_uuid", p.ExamUUID).Int("attempts", p.Attempts).Msg("single insert keeps failing, dead-lettering")
					w.deadLetter(ctx, raw)
					continue
				}
				w.log.Error().Err(err).Str("exam_uuid", p.ExamUUID).Int("attempts", p.Attempts).Msg("single insert failed, requeueing")
				w.rdb.RPush(ctx, config.WorkerKey.PersistUsageQueue, raw)
			}
		}
		return
	}

	w.log.Debug().Int("exams", len(exams)).Msg("usage batch persisted")
}

func (w *UsageWorker) deadLetter(ctx context.Context, raw []byte) {
	if err := w.rdb.RPush(ctx, config.WorkerKey.UsageDeadLetter, raw).Err(); err != nil {
		w.log.Error().Err(err).Msg("dead letter push failed")
	}
}
