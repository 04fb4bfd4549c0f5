package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"drobe-backend/internal/config"
	aiAdapters "drobe-backend/internal/infra/adapters/ai"
	"drobe-backend/internal/infra/api"
	pg "drobe-backend/internal/infra/db/postgres"
	"drobe-backend/internal/infra/logging"
	"drobe-backend/internal/infra/metrics"
	red "drobe-backend/internal/infra/redis"
	"drobe-backend/internal/infra/sched"
	"drobe-backend/internal/infra/storage"
	"drobe-backend/internal/infra/worker"
	"drobe-backend/internal/infra/ws"
	"drobe-backend/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (relaxed origin checks, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, int32(cfg.Database.MaxConns))
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	sessionCache := red.NewSessionCache(redisClient, cfg.Redis.TTL)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	sessionRepo := pg.NewSessionRepo(pool, sessionCache)
	messageRepo := pg.NewMessageRepo(pool)
	curriculumRepo := pg.NewCurriculumRepo(pool)
	labelRepo := pg.NewLabelRepo(pool)
	topicRepo := pg.NewTopicRepo(pool)
	txm := pg.NewTxManager(pool)

	// ---- Media store ----
	mediaStore, err := storage.NewFSStore(cfg.Media.Root, cfg.Media.BaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("media store")
	}

	// ---- Upstream AI ----
	dialer, err := aiAdapters.NewGenAIDialer(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("gemini dialer")
	}
	liveSettings := aiAdapters.LiveSettings{
		Model:                    cfg.AI.Model,
		Voice:                    cfg.AI.Voice,
		CompressionTriggerTokens: cfg.AI.CompressionTriggerTokens,
		CompressionTargetTokens:  cfg.AI.CompressionTargetTokens,
	}

	// ---- Use cases ----
	sessionUC := usecase.NewSessionUseCase(sessionRepo, messageRepo)
	curriculumUC := usecase.NewCurriculumUseCase(curriculumRepo, labelRepo, topicRepo, txm)
	screenshotUC := usecase.NewScreenshotUseCase(sessionUC, mediaStore, dialer, usecase.LiveParams{
		Model:                    cfg.AI.Model,
		Voice:                    cfg.AI.Voice,
		CompressionTriggerTokens: cfg.AI.CompressionTriggerTokens,
		CompressionTargetTokens:  cfg.AI.CompressionTargetTokens,
		Timeout:                  cfg.Relay.ScreenshotTimeout,
	}, logger)

	// ---- Transcript worker pool ----
	pool2 := worker.NewPool(cfg.Relay.Workers, logger)
	pool2.Start(ctx)
	defer pool2.Stop()

	// ---- Relay + REST ----
	relay := ws.NewHandler(sessionUC, dialer, liveSettings, cfg.Relay, pool2,
		cfg.Server.AllowedOrigin, cfg.Runtime.Dev, logger)
	srv := api.NewServer(sessionUC, curriculumUC, screenshotUC, mediaStore, rateLimiter,
		api.ScreenshotLimit{Limit: cfg.Relay.ScreenshotLimit, Window: cfg.Relay.ScreenshotWindow},
		relay, cfg.Media.Root, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Idle session cleanup ----
	cleanup := sched.NewCleanupWorker(cfg.Cleanup.Interval, cfg.Cleanup.IdleDays, sessionRepo, logger)
	go func() { _ = cleanup.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
}
