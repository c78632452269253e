package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-exam-results/api/swagger"
	"github.com/noah-isme/sma-exam-results/internal/handler"
	"github.com/noah-isme/sma-exam-results/internal/repository"
	"github.com/noah-isme/sma-exam-results/internal/service"
	"github.com/noah-isme/sma-exam-results/pkg/cache"
	"github.com/noah-isme/sma-exam-results/pkg/config"
	"github.com/noah-isme/sma-exam-results/pkg/database"
	"github.com/noah-isme/sma-exam-results/pkg/jobs"
	"github.com/noah-isme/sma-exam-results/pkg/logger"
)

// @title School Examination Results API
// @version 1.0.0
// @description Marks entry, results processing and publication for multi-tenant schools.
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Results.CacheEnabled || cfg.Notifications.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching and notifications disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}
	validate := validator.New()

	exams := repository.NewExaminationRepository(db)
	students := repository.NewStudentRepository(db)
	marks := repository.NewMarkRepository(db)
	scales := repository.NewGradeScaleRepository(db)
	results := repository.NewResultRepository(db)
	publications := repository.NewPublicationRepository(db)
	locks := repository.NewLockRepository()

	cacheSvc := service.NewResultCache(repository.NewCacheRepository(redisClient, cfg.Redis.KeyPrefix, logr), metrics, cfg.Results.CacheTTL, logr, cfg.Results.CacheEnabled && redisClient != nil)

	var notifier *service.Notifier
	if cfg.Notifications.Enabled && redisClient != nil {
		events := repository.NewEventRepository(redisClient, cfg.Notifications.Channel)
		queue := jobs.NewQueue("publication-events", service.PublicationEventHandler(events, logr), jobs.QueueConfig{
			Workers:    cfg.Notifications.Workers,
			MaxRetries: cfg.Notifications.Retries,
			RetryDelay: cfg.Notifications.RetryDelay,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
		notifier = service.NewNotifier(queue, logr)
	}

	completeness := service.NewCompletenessService(db, exams, students, marks, scales, logr)
	deps := routerDeps{
		cfg:          cfg,
		logger:       logr,
		metrics:      metrics,
		gradeScales:  handler.NewGradeScaleHandler(service.NewGradeScaleService(db, scales, locks, validate, logr)),
		marks:        handler.NewMarkHandler(service.NewMarkService(db, exams, students, marks, validate, logr)),
		publications: handler.NewPublicationHandler(
			service.NewPublicationService(db, exams, results, marks, publications, notifier, cacheSvc, metrics, validate, logr),
		),
		results: handler.NewResultHandler(
			completeness,
			service.NewProcessingService(db, locks, exams, completeness, marks, results, cacheSvc, metrics, validate, logr, service.ProcessingConfig{
				PassPercentageFallback: cfg.Results.DefaultPassPercentage,
				LockWait:               cfg.Results.LockWait,
			}),
			service.NewResultQueryService(db, exams, results, marks, cacheSvc, logr),
			service.NewExportService(db, exams, results, nil, nil, logr),
		),
		checks: map[string]handler.Pinger{"postgres": db},
	}
	if redisClient != nil {
		deps.checks["redis"] = redisPinger{client: redisClient}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
