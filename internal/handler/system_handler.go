package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-composer/internal/config"
	"github.com/stemsi/qbank-composer/internal/response"
	"github.com/stemsi/qbank-composer/internal/service"
)

const healthTimeout = 2 * time.Second

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler reports dependency health and runtime stats.
type SystemHandler struct {
	db                 Pinger
	rdb                *redis.Client
	compositionService *service.CompositionService
	startTime          time.Time
	log                zerolog.Logger
}

func NewSystemHandler(db Pinger, rdb *redis.Client, compositionService *service.CompositionService, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		db:                 db,
		rdb:                rdb,
		compositionService: compositionService,
		startTime:          time.Now(),
		log:                log.With().Str("component", "system_handler").Logger(),
	}
}

// Health godoc
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	checks := gin.H{"postgres": "ok", "redis": "ok"}
	status := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("PostgreSQL health check failed")
		checks["postgres"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		h.log.Warn().Err(err).Msg("Redis health check failed")
		checks["redis"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	response.Success(c, status, gin.H{"status": state, "checks": checks})
}

type systemStats struct {
	Uptime     string `json:"uptime"`
	GoVersion  string `json:"go_version"`
	NumCPU     int    `json:"num_cpu"`
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	HeapSys    uint64 `json:"heap_sys"`
	NumGC      uint32 `json:"num_gc"`
	Sessions   int    `json:"sessions"`
	QueueUsage int64  `json:"queue_usage"`
}

// Stats godoc
// GET /api/v1/system/stats
func (h *SystemHandler) Stats(c *gin.Context) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats := systemStats{
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		GoVersion:  runtime.Version(),
		NumCPU:     runtime.NumCPU(),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  ms.HeapAlloc,
		HeapSys:    ms.Sys,
		NumGC:      ms.NumGC,
		Sessions:   h.compositionService.SessionCount(),
	}
	stats.QueueUsage, _ = h.rdb.LLen(c.Request.Context(), config.WorkerKey.PersistUsageQueue).Result()

	response.Success(c, http.StatusOK, stats)
}
