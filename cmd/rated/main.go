package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bankchain/observability/logging"
	"bankchain/services/rated"
)

func main() {
	configFile := flag.String("config", "./rated.yaml", "Path to the reporter configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("BANKCHAIN_ENV"))
	logger := logging.Setup("rated", env)

	cfg, err := rated.LoadConfig(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddress != "" {
		metricsServer := &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("starting metrics server", slog.String("addr", cfg.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	reporter := rated.NewReporter(cfg, logger)
	logger.Info("reporter started",
		slog.String("node", cfg.NodeURL),
		slog.Duration("pollInterval", cfg.PollInterval))
	if err := reporter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("reporter stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("reporter shut down")
}
