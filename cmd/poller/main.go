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

	"github.com/robfig/cron/v3"

	"github.com/clearledger/taxintake/internal/bootstrap"
	"github.com/clearledger/taxintake/internal/config"
	"github.com/clearledger/taxintake/internal/observability/logging"
	"github.com/clearledger/taxintake/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("poller", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	pollerMetrics := metrics.NewPollerMetrics("poller")
	app.PollUC.SetObserver(pollerMetrics)
	metricsServer := startMetricsServer(cfg.PollerMetricsPort, pollerMetrics.Handler(), logger)

	scheduler := cron.New()
	schedule := func(name, spec string, job func(context.Context) error) {
		_, scheduleErr := scheduler.AddFunc(spec, func() {
			jobCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
			defer cancel()

			jobErr := job(jobCtx)
			pollerMetrics.CycleDone(name, jobErr)
			if jobErr != nil {
				logger.Error("cycle_failed", "job", name, "error", jobErr)
				return
			}
			logger.Debug("cycle_done", "job", name)
		})
		if scheduleErr != nil {
			log.Fatalf("schedule %s (%q): %v", name, spec, scheduleErr)
		}
	}

	schedule("poll", cfg.PollSchedule, app.PollUC.PollAll)
	schedule("sweep", cfg.SweepSchedule, app.PollUC.SweepAll)
	schedule("stale", cfg.StaleSchedule, app.PollUC.ScanStale)

	logger.Info("poller_started",
		"poll_schedule", cfg.PollSchedule,
		"sweep_schedule", cfg.SweepSchedule,
		"stale_schedule", cfg.StaleSchedule,
	)
	scheduler.Start()

	<-ctx.Done()
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("poller_stop_timeout")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics_shutdown_error", "error", err)
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
