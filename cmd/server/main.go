package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-composer/internal/composer"
	"github.com/stemsi/qbank-composer/internal/config"
	"github.com/stemsi/qbank-composer/internal/database"
	"github.com/stemsi/qbank-composer/internal/handler"
	"github.com/stemsi/qbank-composer/internal/logger"
	"github.com/stemsi/qbank-composer/internal/repository"
	"github.com/stemsi/qbank-composer/internal/router"
	"github.com/stemsi/qbank-composer/internal/service"
	"github.com/stemsi/qbank-composer/internal/store"
	"github.com/stemsi/qbank-composer/internal/validator"
	"github.com/stemsi/qbank-composer/internal/worker"
)

const janitorInterval = 5 * time.Minute

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Int("max_versions", cfg.MaxVersions).
		Msg("Starting qbank composer")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	questionRepo := repository.NewQuestionRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)
	examRepo := repository.NewGeneratedExamRepository(pool)

	stateStore := store.NewStateStore(rdb, cfg.CompositionStateTTL)
	eventBus := store.NewEventBus(rdb)
	usageQueue := worker.NewUsageQueue(rdb)

	// ─── Initialize Engine & Services ──────────────────────────────────
	engine := composer.NewEngine(questionRepo, stateStore, eventBus, composer.NewSelector(), composer.Options{
		PageSize: cfg.CandidatePageSize,
	}, log)

	compositionService := service.NewCompositionService(templateRepo, engine, usageQueue, cfg.MaxVersions, cfg.SessionIdleTimeout, log)
	questionService := service.NewQuestionService(questionRepo, log)
	historyService := service.NewHistoryService(examRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Question:    handler.NewQuestionHandler(questionService, log),
		Composition: handler.NewCompositionHandler(compositionService, historyService, log),
		WS:          handler.NewWSHandler(eventBus, compositionService, log, cfg.AllowedOrigins),
		System:      handler.NewSystemHandler(pool, rdb, compositionService, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	usageWorker := worker.NewUsageWorker(examRepo, rdb, log)
	usageDone := make(chan struct{})
	go func() {
		defer close(usageDone)
		usageWorker.Start(workerCtx)
	}()

	go compositionService.StartJanitor(workerCtx, janitorInterval)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(workerCtx, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers; the usage worker flushes its last batch.
	workerCancel()
	select {
	case <-usageDone:
	case <-time.After(5 * time.Second):
		log.Warn().Msg("Usage worker did not drain in time")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
