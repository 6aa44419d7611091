// Command climate-prepare downloads the configured GHCN-Daily stations, unifies
// them into one table, and writes the cleaned table read by climate-analyze.
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

	"github.com/dustin/go-humanize"

	httpadapter "github.com/couchcryptid/noaa-climate-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/noaa-climate-etl/internal/adapter/kafka"
	"github.com/couchcryptid/noaa-climate-etl/internal/adapter/noaa"
	"github.com/couchcryptid/noaa-climate-etl/internal/config"
	"github.com/couchcryptid/noaa-climate-etl/internal/observability"
	"github.com/couchcryptid/noaa-climate-etl/internal/pipeline"
	"github.com/couchcryptid/noaa-climate-etl/internal/table"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Error("preparation failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic during preparation", "panic", r, "stack", string(debug.Stack()))
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

	p := pipeline.NewPreparer(
		pipeline.NewPrepareConfig(cfg),
		session,
		noaa.NewClient(cfg, metrics, logger),
		table.NewProcessor(metrics, logger),
		events, logger, metrics,
	)

	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, pipeline.CommandPrepare, p, logger)
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

	summary, err := p.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("cleaned data ready",
		"path", cfg.CleanedFile(),
		"stations", summary.Downloaded,
		"rows", summary.RowsCleaned,
		"dropped", summary.RowsDropped,
		"downloaded", humanize.IBytes(uint64(max(summary.DownloadBytes, 0))),
	)
	return nil
}
