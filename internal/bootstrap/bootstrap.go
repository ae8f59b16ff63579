package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/juristcu/juristcu-api/internal/config"
	"github.com/juristcu/juristcu-api/internal/core/domain"
	"github.com/juristcu/juristcu-api/internal/core/ports"
	"github.com/juristcu/juristcu-api/internal/core/taxonomy"
	"github.com/juristcu/juristcu-api/internal/core/usecase"
	"github.com/juristcu/juristcu-api/internal/infrastructure/llm/chatgpt"
	"github.com/juristcu/juristcu-api/internal/infrastructure/llm/claude"
	"github.com/juristcu/juristcu-api/internal/infrastructure/llm/gemini"
	"github.com/juristcu/juristcu-api/internal/infrastructure/queue/nats"
	"github.com/juristcu/juristcu-api/internal/infrastructure/repository/postgres"
	"github.com/juristcu/juristcu-api/internal/infrastructure/resilience"
)

type Options struct {
	Service  string
	Logger   *slog.Logger
	Observer ports.ScanObserver
}

type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Taxonomy domain.Taxonomy

	Store    *postgres.AcordaoRepository
	ScanRuns *postgres.ScanRunRepository
	// Queue is nil when NATS_URL is empty.
	Queue *nats.Queue

	AnalyzeUC *usecase.AnalyzeCaseUseCase
	StatsUC   *usecase.CorpusStatsUseCase
	RecordUC  *usecase.RecordScanUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tax, err := taxonomy.Default()
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}

	db, err := postgres.OpenDB(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	dbExecutor := resilience.NewExecutor(resilience.PostgresConfig()).WithLogger(logger.With("dependency", "postgres"))
	store := postgres.NewAcordaoRepository(db, dbExecutor)
	scanRuns := postgres.NewScanRunRepository(db, dbExecutor)

	var (
		queue     *nats.Queue
		publisher ports.ScanEventPublisher
	)
	if cfg.NATSURL != "" {
		queue, err = nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			Name:               opts.Service,
			ResilienceExecutor: resilience.NewExecutor(resilience.NATSConfig()).WithLogger(logger.With("dependency", "nats")),
			Logger:             logger,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		publisher = queue
	}

	timeout := time.Duration(cfg.ProviderTimeoutSeconds) * time.Second
	clients := map[domain.ProviderID]ports.CompletionClient{
		domain.ProviderGemini: gemini.New(cfg.GeminiBaseURL, cfg.GeminiModel, timeout),
		domain.ProviderClaude: claude.New(claude.Config{Version: cfg.ClaudeVersion, Timeout: timeout}),
		domain.ProviderOpenAI: chatgpt.New(chatgpt.Config{Version: cfg.ChatGPTVersion, Timeout: timeout}),
	}
	creds := domain.ProviderCredentials{
		GeminiKeys: cfg.GeminiKeys,
		ClaudeKey:  cfg.AnthropicAPIKey,
		OpenAIKey:  cfg.OpenAIAPIKey,
	}

	clock := usecase.SystemClock{}
	evaluator := usecase.NewCriterionEvaluator(clients, clock, opts.Observer, logger, usecase.EvaluatorSettings{
		CourtesyDelay:         time.Duration(cfg.CourtesyDelayMS) * time.Millisecond,
		BodyExcerptChars:      cfg.BodyExcerptChars,
		JustificationMaxChars: cfg.JustificationMaxChars,
		Temperature:           cfg.LLMTemperature,
		MaxTokens:             cfg.LLMMaxTokens,
	})
	scanner := usecase.NewCorpusScanner(evaluator, tax, clock, opts.Observer, logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Taxonomy: tax,
		Store:    store,
		ScanRuns: scanRuns,
		Queue:    queue,

		AnalyzeUC: usecase.NewAnalyzeCaseUseCase(store, scanner, creds, publisher, clock, logger),
		StatsUC:   usecase.NewCorpusStatsUseCase(store),
		RecordUC:  usecase.NewRecordScanUseCase(scanRuns),

		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
