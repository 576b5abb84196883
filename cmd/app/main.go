// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gds-ingestion/internal/config"
	"gds-ingestion/internal/domain/ports/adapter"
	extr "gds-ingestion/internal/infra/adapters/extraction"
	"gds-ingestion/internal/infra/adapters/upload"
	"gds-ingestion/internal/infra/adapters/workflow"
	pg "gds-ingestion/internal/infra/db/postgres"
	"gds-ingestion/internal/infra/logging"
	"gds-ingestion/internal/infra/metrics"
	red "gds-ingestion/internal/infra/redis"
	"gds-ingestion/internal/infra/sched"
	"gds-ingestion/internal/infra/telegram"
	"gds-ingestion/internal/infra/throttle"
	"gds-ingestion/internal/infra/web"
	"gds-ingestion/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, debug level)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 30*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	dedupe := red.NewDedupeCache(redisClient, cfg.Redis.TTL)

	// ---- Repositories ----
	txm := pg.NewTxManager(pool)
	ticketRepo := pg.NewTicketRepo(pool)
	clientRepo := pg.NewClientRepo(pool)
	bookingRepo := pg.NewBookingRepo(pool)
	invoiceRepo := pg.NewInvoiceRepo(pool)
	syncedRepo := pg.NewSyncedFileRepo(pool)

	// ---- Throttle stack ----
	clock := throttle.RealClock()
	retrier := throttle.NewRetrier(throttle.RetryPolicy{
		MaxAttempts: cfg.Throttle.RetryMax,
		Base:        cfg.Throttle.RetryBase,
		Cap:         cfg.Throttle.RetryCap,
		Jitter:      cfg.Throttle.RetryJitter,
	}, clock, logger)
	executor := throttle.NewExecutor(throttle.ExecutorConfig{
		BaseInterval:  cfg.Throttle.BaseInterval,
		SuccessDelay:  cfg.Throttle.SuccessDelay,
		FailureDelay:  cfg.Throttle.FailureDelay,
		MaxMultiplier: cfg.Throttle.MaxMultiplier,
	}, clock, retrier, logger)
	executor.Start(ctx)
	guard := throttle.NewCooldownGuard(clock, logger)

	// ---- Extraction adapter (OpenAI -> Gemini) ----
	var ai adapter.ExtractionAdapter
	provider := "openai"
	if cfg.AI.OpenAIKey != "" {
		ai, err = extr.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.DefaultModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("extraction adapter: OpenAI")
	} else {
		provider = "gemini"
		ai, err = extr.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("extraction adapter: Gemini")
	}

	// ---- Workflow + upload collaborators ----
	wf, err := workflow.NewHTTPWorkflow(cfg.Workflow.URL, cfg.Workflow.APIKey, cfg.Workflow.Timeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("workflow adapter")
	}
	up, err := upload.NewHTTPUpload(cfg.Upload.URL, cfg.Upload.APIKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("upload adapter")
	}

	// ---- Ops notifications ----
	var notifier adapter.OpsNotifier = telegram.NoopNotifier{}
	if cfg.Telegram.Token != "" {
		tn, err := telegram.NewNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("telegram notifier unavailable, using noop")
		} else {
			notifier = tn
		}
	}

	// ---- Use cases ----
	truncate := func(text string) (string, bool) {
		return extr.Truncate(text, cfg.AI.DefaultModel, cfg.Ingestion.ContentTokenCap)
	}
	stage := usecase.NewExtractionStage(executor, ai, truncate, provider, cfg.AI.DefaultModel, logger)
	chain := usecase.NewChainBuilder(txm, ticketRepo, clientRepo, bookingRepo, invoiceRepo, wf, executor, logger)
	ingestor := usecase.NewIngestor(usecase.IngestorConfig{
		AgencyID:      cfg.Ingestion.AgencyID,
		MaxDocuments:  cfg.Ingestion.MaxDocuments,
		DocumentDelay: cfg.Ingestion.DocumentDelay,
		TicketDelay:   cfg.Ingestion.TicketDelay,
		FileCooldown:  cfg.Ingestion.FileCooldown,
		BatchCooldown: cfg.Ingestion.BatchCooldown,
	}, clock, executor, guard, locker, dedupe, syncedRepo, up, stage, chain, notifier, logger)

	// ---- Chain repair worker ----
	repair := sched.NewRepairWorker(cfg.Ingestion.RepairInterval, cfg.Ingestion.RepairBatchSize, ticketRepo, chain, guard, logger)
	go func() { _ = repair.Run(ctx) }()

	// ---- HTTP API ----
	auth := web.NewAuthManager(cfg.Web.JWTSecret, 30*time.Minute)
	srv := web.NewServer(ingestor, auth, logger)
	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Web.Port), Handler: srv.Router()}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	cancel()
	<-executor.Done()
}
