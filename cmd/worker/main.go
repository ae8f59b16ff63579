package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juristcu/juristcu-api/internal/bootstrap"
	"github.com/juristcu/juristcu-api/internal/config"
	"github.com/juristcu/juristcu-api/internal/core/domain"
	"github.com/juristcu/juristcu-api/internal/observability/logging"
	"github.com/juristcu/juristcu-api/internal/observability/metrics"
)

const serviceName = "juristcu-worker"

func main() {
	cfg := config.Load()
	logger := logging.NewServiceLogger(serviceName, cfg.LogLevel, cfg.DebugMode)

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("config_invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: serviceName, Logger: logger})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.ScanRuns.EnsureSchema(ctx); err != nil {
		logger.Error("ensure_schema_failed", "error", err)
		os.Exit(1)
	}

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeScanRecorded(ctx, func(handlerCtx context.Context, record domain.ScanRecord) error {
		workerMetrics.StartRecord()
		workerMetrics.ObserveQueueLag(serviceName, time.Since(record.FinishedAt))
		start := time.Now()

		recordCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()
		err := app.RecordUC.Record(recordCtx, record)
		workerMetrics.FinishRecord(serviceName, time.Since(start), err)
		if err == nil {
			logger.Info("scan_record_saved", "scan_id", record.ID, "halted", record.Halted)
		}
		return err
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
