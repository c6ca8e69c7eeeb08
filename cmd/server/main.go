package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"interviewprep/ai/internal/config"
	"interviewprep/ai/internal/handlers"
	"interviewprep/ai/internal/jobs"
	"interviewprep/ai/internal/llm"
	_ "interviewprep/ai/internal/llm/gemini"
	_ "interviewprep/ai/internal/llm/openai"
	"interviewprep/ai/internal/lock"
	"interviewprep/ai/internal/metrics"
	"interviewprep/ai/internal/models"
	"interviewprep/ai/internal/pipeline"
	"interviewprep/ai/internal/prompts"
	"interviewprep/ai/internal/routers"
	"interviewprep/ai/internal/store"
	"interviewprep/ai/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func registerRoutes(router *chi.Mux, interviewHandler *handlers.InterviewHandler, healthHandler *handlers.HealthHandler) {
	routers.HealthRoutes(router, healthHandler)
	routers.InterviewRoutes(router, interviewHandler)
}

func newRouter(cfg *config.Config, interviewHandler *handlers.InterviewHandler, healthHandler *handlers.HealthHandler) *chi.Mux {
	router := chi.NewRouter()

	// cors middleware
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	// no global timeout: event streams stay open for the whole generation
	router.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer, metrics.Middleware("ai"))

	registerRoutes(router, interviewHandler, healthHandler)
	return router
}

// initDatabase opens the configured database and migrates the interview tables
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		dialector = postgres.Open(cfg.Postgres.DSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// initLocker builds the generation lock backend. The returned func releases its connections.
func initLocker(cfg *config.Config, logger *zap.Logger) (lock.Locker, func(), error) {
	switch cfg.LockBackend {
	case config.LockRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return lock.NewRedis(rdb, cfg.LockTTL, logger), func() { rdb.Close() }, nil
	case config.LockNone:
		return lock.Noop{}, func() {}, nil
	default:
		return lock.NewLocal(), func() {}, nil
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.GetLogger().Fatal("Failed to load configuration", zap.Error(err))
	}

	utils.InitLogger(cfg.Env)
	logger := utils.GetLogger()
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("provider", cfg.Provider),
		zap.String("db_driver", cfg.DBDriver),
		zap.String("generation_lock", cfg.LockBackend))

	// prompt manager
	promptManager, err := prompts.NewPromptManager()
	if err != nil {
		logger.Fatal("Failed to initialize prompt manager", zap.Error(err))
	}

	// AI provider based on configuration
	aiProvider, err := llm.NewProvider(cfg.Provider)
	if err != nil {
		logger.Fatal("Failed to initialize AI provider", zap.Error(err), zap.Strings("registered", llm.RegisteredProviders()))
	}
	gateway := llm.NewGateway(aiProvider, cfg.ModelTimeout, logger)

	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	interviewStore := store.New(db)

	locker, closeLocker, err := initLocker(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize generation lock", zap.Error(err))
	}
	defer closeLocker()

	stageCache := pipeline.NewStageCache(cfg.StageCacheTTL)
	defer stageCache.Close()

	orchestrator := pipeline.New(gateway, promptManager, interviewStore, locker, stageCache, logger)

	backfillJob := jobs.NewReportBackfillJob(orchestrator, interviewStore, &jobs.BackfillConfig{
		Schedule: cfg.BackfillSchedule,
		Enabled:  cfg.BackfillEnabled,
	}, logger)
	if err := backfillJob.Start(); err != nil {
		logger.Error("Failed to start report backfill job", zap.Error(err))
	}

	interviewHandler := handlers.NewInterviewHandler(orchestrator, interviewStore, logger)
	healthHandler := handlers.NewHealthHandler(aiProvider, promptManager, interviewStore, cfg)

	router := newRouter(cfg, interviewHandler, healthHandler)

	serverAddr := ":" + cfg.Port

	// http server with timeouts; no write timeout since streams outlive any fixed deadline
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// starting server in a goroutine
	go func() {
		logger.Info("AI service starting", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// wait for interrupt signal to gracefully shutdown the server
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	logger.Info("AI service shutting down...")

	backfillJob.Stop()

	// graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("AI service exited")
}
