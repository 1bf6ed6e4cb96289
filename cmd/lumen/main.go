package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/lumen-cms/lumen-cms/internal/app"
	"github.com/lumen-cms/lumen-cms/internal/articles"
	"github.com/lumen-cms/lumen-cms/internal/auth"
	"github.com/lumen-cms/lumen-cms/internal/images"
	"github.com/lumen-cms/lumen-cms/internal/observability"
	"github.com/lumen-cms/lumen-cms/internal/platform/cache"
	"github.com/lumen-cms/lumen-cms/internal/platform/db"
	"github.com/lumen-cms/lumen-cms/internal/rbac"
	"github.com/lumen-cms/lumen-cms/internal/shared"
	"github.com/lumen-cms/lumen-cms/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	// The role and permission catalog converges on every boot. Concurrent
	// replicas racing on the same database settle on identical rows.
	rbacRepo := rbac.NewRepository(dbpool)
	seeder := rbac.NewSeeder(rbacRepo, logger, rbac.DefaultCatalog())
	if err := seeder.Seed(ctx); err != nil {
		logger.Error("seed rbac catalog", slog.Any("error", err))
		os.Exit(1)
	}

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("asynq client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)

	tokens := auth.NewIssuer([]byte(cfg.JWTSecret), cfg.JWTTTL)
	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, tokens, logger, jobClient, cfg.BcryptCost)
	authMW := auth.Middleware{Tokens: tokens, Store: authRepo, Logger: logger}

	rbacService := rbac.NewService(rbacRepo, auditLogger)
	rbacHandler := rbac.NewHandler(logger, rbacService)

	authHandler := auth.NewHandler(logger, authService, rbacService, authMW, metrics)
	authHandler.PublicLimiter = app.CredentialRateLimiter()

	articleRepo := articles.NewRepository(dbpool)
	articleCache := articles.NewCache(redisClient, cfg.ArticleCacheTTL)
	articleService := articles.NewService(articleRepo, articleCache)
	articleHandler := articles.NewHandler(logger, articleService)

	var imageHandler *images.Handler
	if cfg.S3Bucket != "" {
		store, err := images.NewS3Store(ctx, images.StorageConfig{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		})
		if err != nil {
			logger.Error("object storage", slog.Any("error", err))
			os.Exit(1)
		}
		imageService := images.NewService(images.NewRepository(dbpool), store)
		imageHandler = images.NewHandler(logger, imageService)
	} else {
		logger.Warn("object storage not configured, image routes disabled")
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AuthHandler:     authHandler,
		AuthMiddleware:  authMW,
		RBACHandler:     rbacHandler,
		ArticlesHandler: articleHandler,
		ImagesHandler:   imageHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
