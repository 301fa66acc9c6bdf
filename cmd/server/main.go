package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"lexilingua-backend/config"
	"lexilingua-backend/extraction"
	"lexilingua-backend/handlers"
	"lexilingua-backend/llm"
	"lexilingua-backend/logger"
	"lexilingua-backend/observability"
	"lexilingua-backend/repository"
	"lexilingua-backend/service"
	"lexilingua-backend/speech"
	"lexilingua-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, log, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		log.Fatal("failed to initialize tracing", "error", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	// Initialize storage
	fileStorage, err := storage.NewStorage(ctx, storage.StorageConfig{
		Type:         storage.StorageType(cfg.Storage.Type),
		LocalPath:    cfg.Storage.LocalPath,
		S3Bucket:     cfg.Storage.S3Bucket,
		S3Region:     cfg.Storage.S3Region,
		AWSAccessKey: cfg.Storage.AWSAccessKey,
		AWSSecretKey: cfg.Storage.AWSSecretKey,
	})
	if err != nil {
		log.Fatal("failed to initialize storage", "error", err)
	}
	log.Info("storage initialized", "type", cfg.Storage.Type)

	// The audit log is optional
	var auditRepo *repository.CompletionAuditRepository
	if cfg.Database.URL != "" {
		pool, err := initPostgres(ctx, cfg.Database.URL)
		if err != nil {
			log.Fatal("failed to initialize postgres", "error", err)
		}
		defer pool.Close()
		auditRepo = repository.NewCompletionAuditRepository(pool)
		log.Info("completion audit enabled")
	}

	resultCache, closeCache := initCache(ctx, cfg.Cache, log)
	defer closeCache()

	completer, closeCompleter, err := llm.New(ctx, llm.Config{
		Provider: cfg.LLM.Provider,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		Timeout:  cfg.LLM.Timeout,
	})
	if err != nil {
		log.Fatal("failed to initialize completion client", "error", err)
	}
	defer closeCompleter()
	log.Info("completion client ready", "provider", cfg.LLM.Provider)

	var transcriber speech.Transcriber = speech.Disabled{}
	if cfg.Speech.Enabled {
		g, err := speech.NewGoogleTranscriber(ctx, cfg.Speech.CredentialsFile, cfg.Speech.SampleRateHertz)
		if err != nil {
			log.Fatal("failed to initialize speech client", "error", err)
		}
		defer g.Close()
		transcriber = g
	}

	analysisOpts := []service.AnalysisServiceOption{
		service.WithCompleter(completer),
		service.WithResultCache(resultCache),
		service.WithAnalysisLogger(log),
		service.WithStatuteHints(cfg.Features.IPCHints),
	}
	if auditRepo != nil {
		analysisOpts = append(analysisOpts, service.WithAuditRecorder(auditRepo))
	}
	analysisService := service.NewAnalysisService(analysisOpts...)

	sessionService := service.NewSessionService(
		service.WithAnalysisService(analysisService),
		service.WithExtractor(extraction.NewPDFExtractor()),
		service.WithTranscriber(transcriber),
		service.WithStorage(fileStorage),
		service.WithFeatures(service.Features{
			LegalityCheck: cfg.Features.LegalityCheck,
			Summary:       cfg.Features.Summary,
			Entities:      cfg.Features.Entities,
		}),
		service.WithHistory(cfg.Session.HistoryLimit, cfg.Session.PromptHistory),
		service.WithQueueWait(cfg.Session.QueueWait),
		service.WithIdleTTL(cfg.Session.IdleTTL),
		service.WithSessionLogger(log),
	)
	go sessionService.RunSweeper(ctx, cfg.Session.SweepInterval)

	// Initialize handlers
	routerCfg := handlers.RouterConfig{
		SessionHandler:  handlers.NewSessionHandler(sessionService, log, cfg.Server.MaxUploadSize),
		AnalysisHandler: handlers.NewAnalysisHandler(sessionService),
		ChatHandler:     handlers.NewChatHandler(sessionService, cfg.Server.MaxUploadSize),
		Sessions:        sessionService,
		Log:             log,
		CORSOrigins:     cfg.Server.CORSOrigins,
		ServiceName:     cfg.Tracing.ServiceName,
	}
	if auditRepo != nil {
		routerCfg.AuditHandler = handlers.NewAuditHandler(sessionService, auditRepo)
	}

	gin.SetMode(cfg.Server.Mode)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handlers.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

func initPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, repository.Schema); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// initCache falls back to the in-memory cache when redis is unreachable.
func initCache(ctx context.Context, cfg config.CacheConfig, log *logger.Logger) (service.ResultCache, func()) {
	noop := func() {}
	switch cfg.Backend {
	case "none":
		return service.NoopCache(), noop
	case "redis":
		rc, err := service.NewRedisCache(ctx, cfg.RedisAddr, cfg.TTL, log)
		if err == nil {
			log.Info("result cache ready", "backend", "redis", "addr", cfg.RedisAddr)
			return rc, func() { _ = rc.Close() }
		}
		log.Warn("redis unavailable, using in-memory cache", "error", err)
	}
	lc, err := service.NewLRUCache(cfg.Size)
	if err != nil {
		log.Warn("result cache disabled", "error", err)
		return service.NoopCache(), noop
	}
	log.Info("result cache ready", "backend", "memory", "size", cfg.Size)
	return lc, noop
}
