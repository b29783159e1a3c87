package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_sync/internal/cache"
	"github.com/GTDGit/catalog_sync/internal/config"
	"github.com/GTDGit/catalog_sync/internal/database"
	"github.com/GTDGit/catalog_sync/internal/handler"
	"github.com/GTDGit/catalog_sync/internal/lock"
	"github.com/GTDGit/catalog_sync/internal/metrics"
	"github.com/GTDGit/catalog_sync/internal/middleware"
	"github.com/GTDGit/catalog_sync/internal/models"
	"github.com/GTDGit/catalog_sync/internal/notify"
	"github.com/GTDGit/catalog_sync/internal/repository"
	"github.com/GTDGit/catalog_sync/internal/rules"
	"github.com/GTDGit/catalog_sync/internal/service"
	"github.com/GTDGit/catalog_sync/internal/sse"
	"github.com/GTDGit/catalog_sync/internal/worker"
	"github.com/GTDGit/catalog_sync/pkg/classifier"
	"github.com/GTDGit/catalog_sync/pkg/metacatalog"
	"github.com/GTDGit/catalog_sync/pkg/ratelimit"
	"github.com/GTDGit/catalog_sync/pkg/vtex"
)

// main is the entrypoint of the catalog sync service.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting catalog sync")

	// 3. Context for startup, workers, background runs and graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3a. Connect database
	db, err := database.Connect(ctx, &cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3b. Run migrations
	if err := database.Migrate(db.DB, cfg.DB.MigrationsPath); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	// 3c. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// 5. Outbound clients share one limiter and retry policy
	limiter := ratelimit.NewLimiter(ratelimit.LimiterConfig{
		CallsPerSecond: cfg.RateLimit.CallsPerSecond,
		CallsPerMinute: cfg.RateLimit.CallsPerMinute,
		SecondSleep:    cfg.RateLimit.SecondSleep,
		MinuteSleep:    cfg.RateLimit.MinuteSleep,
	})
	limiter.OnWait = func(id, window string) {
		metrics.LimiterWaits.WithLabelValues(id, window).Inc()
	}
	guard := &ratelimit.Guard{
		Limiter: limiter,
		Retrier: ratelimit.NewRetrier(ratelimit.RetryConfig{
			MaxAttempts: cfg.RateLimit.MaxAttempts,
			BaseDelay:   cfg.RateLimit.BaseDelay,
			MaxDelay:    cfg.RateLimit.MaxDelay,
			MinAttempts: cfg.RateLimit.MinAttempts,
		}),
	}

	source := vtex.NewClient(vtex.Config{
		AppKey:   cfg.VTEX.AppKey,
		AppToken: cfg.VTEX.AppToken,
		Scheme:   cfg.VTEX.Scheme,
	}, guard)
	uploader := metacatalog.NewClient(cfg.Meta.BaseURL, guard)

	var policy service.PolicyClassifier
	if cfg.Classifier.APIKey != "" {
		policy = classifier.NewClient(classifier.Config{
			BaseURL: cfg.Classifier.BaseURL,
			APIKey:  cfg.Classifier.APIKey,
			Model:   cfg.Classifier.Model,
		}, guard)
	} else {
		log.Warn().Msg("GROQ_API_KEY not set - policy classification disabled")
	}

	// 6. Verdict cache
	var verdictCache cache.VerdictCache
	if cfg.Sync.CacheBackend == "memory" {
		verdictCache = cache.NewMemoryVerdictCache(cfg.Sync.ValidationTTL)
	} else {
		verdictCache = cache.NewRedisVerdictCache(redisClient, cfg.Sync.ValidationTTL)
	}

	// 7. Initialize repositories
	catalogRepo := repository.NewCatalogRepository(db)
	verdictRepo := repository.NewVerdictRepository(db)
	pendingRepo := repository.NewPendingRepository(db)
	uploadLogRepo := repository.NewUploadLogRepository(db)
	runRepo := repository.NewSyncRunRepository(db)
	adminRepo := repository.NewAdminUserRepository(db)

	// 8. Notifications
	notifier := buildNotifier(ctx, cfg)

	// 9. Initialize services
	uploadSvc := service.NewUploadService(catalogRepo, pendingRepo, uploadLogRepo, uploader, notifier, service.UploadOptions{
		BatchSize:         cfg.Upload.BatchSize,
		ProcessingTimeout: cfg.Upload.ProcessingTimeout,
		DefaultToken:      cfg.Meta.DefaultToken,
	})

	validator := service.NewSKUValidator(source, policy, verdictCache, verdictRepo, service.ValidatorOptions{
		InputLimit:     cfg.Classifier.InputLimit,
		SkipClassifier: cfg.Sync.SkipClassifier,
	})
	processor := service.NewProductProcessor(source, validator)

	syncSvc := service.NewSyncService(
		catalogRepo,
		runRepo,
		pendingRepo,
		source,
		processor,
		rules.NewRegistry(),
		lock.NewManager(redisClient, cfg.Sync.LockTTL),
		service.RedisQueues(redisClient, cfg.Sync.QueueTTL),
		uploadSvc.Kick,
		service.SyncOptions{
			Workers:        cfg.Sync.Workers,
			BatchSize:      cfg.Sync.BatchSize,
			DefaultMode:    models.SyncMode(cfg.Sync.Mode),
			DefaultRules:   cfg.Sync.DefaultRules,
			LockRenewEvery: cfg.Sync.LockRenewEvery,
		},
	)

	// Live admin event stream
	hub := sse.NewHub()
	events := sse.NewHubNotifier(hub)
	syncSvc.SetEvents(events)
	uploadSvc.SetEvents(events)

	adminAuthSvc := service.NewAdminAuthService(adminRepo, cfg.JWTSecret, cfg.Admin.TokenTTL)
	if cfg.Admin.Email != "" {
		if err := adminAuthSvc.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			log.Error().Err(err).Msg("failed to create bootstrap admin")
		}
	}

	// 10. Initialize handlers
	handlers := &Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"database": db.PingContext,
			"redis":    redisClient.Ping,
		}),
		Sync: handler.NewSyncHandler(ctx, syncSvc, uploadSvc),
		Auth: handler.NewAuthHandler(adminAuthSvc),
		SSE:  handler.NewSSEHandler(hub, cfg.JWTSecret, service.AdminRole),
	}

	// 11. Setup router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, middleware.NewJWTMiddleware(cfg.JWTSecret, service.AdminRole), middleware.NewLoginThrottle(5, time.Minute))

	// 12. Start workers
	go worker.NewSyncWorker(syncSvc, cfg.Sync.Interval).Start(ctx)
	go worker.NewUploadWorker(uploadSvc, cfg.Upload.Interval).Start(ctx)
	go worker.NewCleanupWorker(uploadSvc, cfg.Upload.CleanupInterval).Start(ctx)

	// 13. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 14. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 15. Cancel context to stop workers and in-flight runs
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Runs flush their saver and release their lock on cancellation.
	syncSvc.Wait()
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health *handler.HealthHandler
	Sync   *handler.SyncHandler
	Auth   *handler.AuthHandler
	SSE    *handler.SSEHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, jwtMiddleware *middleware.JWTMiddleware, throttle *middleware.LoginThrottle) {
	router.GET("/v1/health", handlers.Health.GetHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	admin := router.Group("/v1/admin")
	admin.POST("/auth/login", throttle.Handle(), handlers.Auth.Login)
	admin.GET("/events", handlers.SSE.Stream)
	admin.Use(jwtMiddleware.Handle())
	{
		admin.POST("/catalogs/:id/sync", handlers.Sync.TriggerSync)
		admin.GET("/catalogs/:id/runs", handlers.Sync.ListRuns)
		admin.POST("/catalogs/:id/upload", handlers.Sync.Upload)
	}
}

// buildNotifier combines every configured notification backend.
func buildNotifier(ctx context.Context, cfg *config.Config) service.Notifier {
	var backends notify.Multi
	if cfg.Notify.WebhookURL != "" {
		backends = append(backends, notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.WebhookSecret))
	}
	if cfg.Notify.SNSTopicARN != "" {
		sns, err := notify.NewSNS(ctx, cfg.Notify.SNSRegion, cfg.Notify.SNSTopicARN)
		if err != nil {
			log.Warn().Err(err).Msg("SNS notifier initialization failed - SNS alerts will be disabled")
		} else {
			backends = append(backends, sns)
		}
	}
	if len(backends) == 0 {
		return notify.Nop{}
	}
	return backends
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
