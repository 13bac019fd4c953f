package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clearledger/taxintake/internal/bootstrap"
	"github.com/clearledger/taxintake/internal/config"
	"github.com/clearledger/taxintake/internal/core/domain"
	"github.com/clearledger/taxintake/internal/observability/logging"
	"github.com/clearledger/taxintake/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	dispatcherMetrics := metrics.NewDispatcherMetrics("worker")
	metricsServer := startMetricsServer(cfg.WorkerMetricsPort, dispatcherMetrics.Handler(), logger)
	defer shutdownMetricsServer(metricsServer, logger)

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Bus.Subscribe(ctx, func(handlerCtx context.Context, ev domain.Event) error {
		dispatchCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		dispatcherMetrics.StartDispatch()
		start := time.Now()
		dispatchErr := app.Dispatcher.Dispatch(dispatchCtx, ev)
		dispatcherMetrics.FinishDispatch("worker", string(ev.Type), time.Since(start), dispatchErr)
		return dispatchErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func startMetricsServer(port string, handler http.Handler, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	server := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics_server_error", "error", err)
		}
	}()
	return server
}

func shutdownMetricsServer(server *http.Server, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics_shutdown_error", "error", err)
	}
}
