// Command climate-analyze loads the cleaned table written by climate-prepare,
// computes the climate summaries, prints them, and renders the charts.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	httpadapter "github.com/couchcryptid/noaa-climate-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/noaa-climate-etl/internal/adapter/kafka"
	"github.com/couchcryptid/noaa-climate-etl/internal/config"
	"github.com/couchcryptid/noaa-climate-etl/internal/observability"
	"github.com/couchcryptid/noaa-climate-etl/internal/pipeline"
	"github.com/couchcryptid/noaa-climate-etl/internal/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	if err := run(cfg, logger); err != nil {
		if errors.Is(err, pipeline.ErrMissingInput) {
			fmt.Fprintln(os.Stderr, err)
		}
		logger.Error("analysis failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic during analysis", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()

	session, err := pipeline.NewSession(pipeline.NewSessionConfig(cfg), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("session close error", "error", err)
		}
	}()

	var events pipeline.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		events = writer
	}

	charts := report.NewCharts(cfg, metrics, logger)
	a := pipeline.NewAnalyzer(
		cfg.CleanedFile(),
		session,
		[]report.Reporter{report.NewConsole(os.Stdout), charts},
		events, logger, metrics,
	)

	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, pipeline.CommandAnalyze, a, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	if _, err := a.Run(ctx); err != nil {
		return err
	}
	logger.Info("analysis complete", "results_dir", cfg.ResultsDir, "charts", len(charts.Written()))
	return nil
}
