package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/juristcu/juristcu-api/internal/adapters/http"
	"github.com/juristcu/juristcu-api/internal/bootstrap"
	"github.com/juristcu/juristcu-api/internal/config"
	"github.com/juristcu/juristcu-api/internal/observability/logging"
	"github.com/juristcu/juristcu-api/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewServiceLogger(httpadapter.ServiceName, cfg.LogLevel, cfg.DebugMode)

	if err := cfg.Validate(); err != nil {
		logger.Error("config_invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiMetrics := metrics.NewHTTPServerMetrics(httpadapter.ServiceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Service:  httpadapter.ServiceName,
		Logger:   logger,
		Observer: apiMetrics,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	logStartup(ctx, app)

	router := httpadapter.NewRouter(cfg, app.AnalyzeUC, app.StatsUC, app.Store, app.Taxonomy).
		WithLogger(logger).
		WithMetrics(apiMetrics).
		Handler()
	// Scans walk the whole corpus sequentially, so the write deadline is left open.
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "addr", server.Addr, "events_enabled", app.Queue != nil)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}

func logStartup(ctx context.Context, app *bootstrap.App) {
	cfg := app.Config
	app.Logger.Info("config_loaded",
		"version", httpadapter.Version,
		"debug_mode", cfg.DebugMode,
		"api_key", cfg.MaskedAPIKey(),
		"gemini_keys", len(cfg.GeminiKeys),
		"claude_configured", cfg.AnthropicAPIKey != "",
		"openai_configured", cfg.OpenAIAPIKey != "",
		"port", cfg.APIPort,
		"categories", len(app.Taxonomy.Categories),
		"criteria", app.Taxonomy.CriteriaCount(),
	)

	statsCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	stats, err := app.StatsUC.Stats(statsCtx)
	if err != nil {
		app.Logger.Warn("corpus_stats_unavailable", "error", err)
		return
	}
	app.Logger.Info("corpus_stats",
		"total", stats.Total,
		"processable", stats.Processable,
		"processable_percent", stats.ProcessablePercent(),
	)
}
