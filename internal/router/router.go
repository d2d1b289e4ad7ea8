package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-composer/internal/config"
	"github.com/stemsi/qbank-composer/internal/handler"
	"github.com/stemsi/qbank-composer/internal/middleware"
)

// questionCacheSeconds is how long clients may cache question bank reads.
const questionCacheSeconds = 30

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Question    *handler.QuestionHandler
	Composition *handler.CompositionHandler
	WS          *handler.WSHandler
	System      *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background goroutines owned by middleware.
func SetupRouter(ctx context.Context, handlers *Handlers, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// Empty AllowedOrigins allows all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(log))
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	// Shuffle and version generation each trigger a full store round trip.
	heavyLimiter := middleware.NewRateLimiter(ctx, cfg.RateLimitPerMinute, time.Minute)

	api := router.Group("/api/v1")

	// ─── 1. Question bank ──────────────────────────────────────────────
	bank := api.Group("", middleware.CacheControl(questionCacheSeconds))
	{
		bank.GET("/questions", handlers.Question.List)
		bank.GET("/questions/:id", handlers.Question.Get)
		bank.GET("/blocks/:id/variants", handlers.Question.Variants)
	}

	// ─── 2. Templates and composition ──────────────────────────────────
	templates := api.Group("/templates/:id", middleware.NoStore())
	{
		templates.GET("/sections", handlers.Composition.GetSections)
		templates.PUT("/sections", handlers.Composition.ReplaceSections)
		templates.PATCH("/sections/:section_id", handlers.Composition.UpdateSection)
		templates.PUT("/constraints", handlers.Composition.SetConstraints)

		templates.GET("/composition", handlers.Composition.GetComposition)
		templates.POST("/composition/shuffle", heavyLimiter.Middleware(), handlers.Composition.Shuffle)
		templates.POST("/composition/balance", handlers.Composition.Balance)
		templates.DELETE("/composition/questions/:qid", handlers.Composition.RemoveQuestion)
		templates.PUT("/composition/overrides/:qid", handlers.Composition.SetAnswerFormat)

		templates.POST("/versions", heavyLimiter.Middleware(), handlers.Composition.GenerateVersions)
		templates.GET("/history", handlers.Composition.History)
	}

	api.GET("/sections/available", middleware.NoStore(), handlers.Composition.AvailableCount)

	// ─── 3. System ─────────────────────────────────────────────────────
	api.GET("/system/stats", handlers.System.Stats)

	// ─── 4. WebSocket ──────────────────────────────────────────────────
	router.GET("/ws/v1/templates/:id/events", handlers.WS.CompositionEvents)

	return router
}
