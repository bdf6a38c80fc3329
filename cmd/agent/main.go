// File: cmd/agent/main.go
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

	"whatsapp-ai-agent/internal/config"
	"whatsapp-ai-agent/internal/domain/ports/adapter"
	"whatsapp-ai-agent/internal/event"
	aiAdapters "whatsapp-ai-agent/internal/infra/adapters/ai"
	"whatsapp-ai-agent/internal/infra/api"
	pg "whatsapp-ai-agent/internal/infra/db/postgres"
	"whatsapp-ai-agent/internal/infra/logging"
	"whatsapp-ai-agent/internal/infra/metrics"
	red "whatsapp-ai-agent/internal/infra/redis"
	"whatsapp-ai-agent/internal/infra/sched"
	"whatsapp-ai-agent/internal/infra/security"
	"whatsapp-ai-agent/internal/infra/worker"
	"whatsapp-ai-agent/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLog.Fatal().Err(err).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
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

	// ---- Encryption ----
	var cipher usecase.Cipher
	if cfg.Security.EncryptionKey != "" {
		encSvc, err := security.NewEncryptionService(cfg.Security.EncryptionKey, cfg.Security.PreviousKeys...)
		if err != nil {
			logger.Fatal().Err(err).Msg("encryption")
		}
		cipher = encSvc
	} else {
		logger.Warn().Msg("security.encryption_key not set; message bodies are stored in clear text")
	}

	// ---- Repositories ----
	accountRepo := pg.NewAccountRepo(pool)
	convRepo := pg.NewConversationRepo(pool)
	modelRepo := pg.NewAIModelRepoCacheDecorator(pg.NewAIModelRepo(pool), redisClient, cfg.Redis.TTL, logger)
	usageRepo := pg.NewUsageLogRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- AI adapters ----
	ai := buildAI(ctx, cfg.AI, logger)

	// ---- Events ----
	workers := worker.NewPool(cfg.Events.Workers, cfg.Events.Queue, logger)
	workers.Start(ctx)
	dispatcher := event.NewDispatcher(workers, cfg.Events.ListenerTimeout, logger)

	store := usecase.NewMessageStore(txManager, convRepo, cipher, logger)
	usecase.RegisterListeners(dispatcher,
		usecase.NewStoreExchangeListener(store, cfg.Agent.StoreUnanswered, logger),
		usecase.NewUsageTracker(convRepo, usageRepo, logger),
		usecase.NewResponseCounterListener(accountRepo, logger),
	)

	// ---- Use cases ----
	resolver := usecase.NewModelResolver(modelRepo, cfg.AI, logger)
	orchestrator := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Accounts: accountRepo,
		Store:    store,
		Prompts:  usecase.NewPromptBuilder(cfg.Agent.MaxPromptChars, cfg.Agent.MaxHistoryEntries),
		AI:       usecase.NewAIProcessor(ai, resolver, cfg.AI, cfg.Billing, logger),
		Events:   dispatcher,
		Guard:    red.NewMessageGuard(redisClient, cfg.Agent.DedupWindow),
		Limiter:  red.NewRateLimiter(redisClient),
	}, cfg.Agent, logger)

	// ---- HTTP ----
	srv := api.NewServer(orchestrator, modelRepo, api.Options{
		JWTSecret:      cfg.Bridge.JWTSecret,
		JWTIssuer:      cfg.Bridge.Issuer,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Checks: map[string]api.Pinger{
			"postgres": pool,
			"redis":    redisClient,
		},
	}, logger)
	if cfg.Bridge.JWTSecret == "" {
		logger.Warn().Msg("bridge.jwt_secret not set; webhook endpoints are unauthenticated")
	}
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Daily counter reset ----
	resetWorker := sched.NewCounterResetWorker(cfg.Scheduler.CounterResetInterval, accountRepo, logger)
	go func() { _ = resetWorker.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	// drain queued listeners before the pool and redis close
	workers.Stop()
	cancel()
}

// buildAI wires every configured provider behind the multi adapter.
func buildAI(ctx context.Context, cfg config.AIConfig, logger *zerolog.Logger) adapter.AIServiceAdapter {
	tokens := aiAdapters.NewTokenCounter()
	providers := map[string]adapter.AIServiceAdapter{}

	if cfg.OpenAI.APIKey != "" {
		a, err := aiAdapters.NewOpenAIAdapter("openai", cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.FallbackModel, cfg.RequestTimeout, tokens)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		providers["openai"] = a
	}
	if cfg.DeepSeek.APIKey != "" {
		a, err := aiAdapters.NewOpenAIAdapter("deepseek", cfg.DeepSeek.APIKey, cfg.DeepSeek.BaseURL, "deepseek-chat", cfg.RequestTimeout, tokens)
		if err != nil {
			logger.Fatal().Err(err).Msg("deepseek adapter")
		}
		providers["deepseek"] = a
	}
	if cfg.Ollama.BaseURL != "" {
		a, err := aiAdapters.NewOpenAIAdapter("ollama", cfg.Ollama.APIKey, cfg.Ollama.BaseURL, "llama3", cfg.RequestTimeout, tokens)
		if err != nil {
			logger.Fatal().Err(err).Msg("ollama adapter")
		}
		providers["ollama"] = a
	}
	if cfg.Gemini.APIKey != "" {
		a, err := aiAdapters.NewGeminiAdapter(ctx, cfg.Gemini.APIKey, cfg.Gemini.BaseURL, "gemini-2.0-flash", tokens)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		providers["gemini"] = a
	}

	if len(providers) == 0 {
		logger.Warn().Msg("no AI provider configured; using noop adapter")
		return aiAdapters.NewNoopAIAdapter(tokens, logger)
	}
	def := cfg.DefaultProvider
	if _, ok := providers[def]; !ok {
		for name := range providers {
			def = name
			break
		}
		logger.Warn().Str("configured", cfg.DefaultProvider).Str("using", def).Msg("default AI provider not configured")
	}
	modelToProvider := map[string]string{}
	if cfg.FallbackModel != "" && cfg.FallbackProvider != "" {
		modelToProvider[cfg.FallbackModel] = cfg.FallbackProvider
	}
	logger.Info().Str("default", def).Int("providers", len(providers)).Msg("AI adapters ready")
	return aiAdapters.NewLimitedAI(aiAdapters.NewMultiAIAdapter(def, providers, modelToProvider), cfg.ConcurrentLimit)
}
