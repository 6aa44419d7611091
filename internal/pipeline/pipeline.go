// Package pipeline orchestrates the two batch commands: preparing the cleaned
// table from remote station files, and analyzing it into reports.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/noaa-climate-etl/internal/domain"
	"github.com/couchcryptid/noaa-climate-etl/internal/observability"
	"github.com/couchcryptid/noaa-climate-etl/internal/table"
)

// Command names carried in run summaries.
const (
	CommandPrepare = "climate-prepare"
	CommandAnalyze = "climate-analyze"
)

// Fetcher downloads station files.
type Fetcher interface {
	FetchAll(ctx context.Context, stationIDs []string) (domain.FetchResult, error)
}

// Tables runs the file-level table stages.
type Tables interface {
	Unify(paths []string, outPath string) (table.UnifyResult, error)
	Clean(inPath, outPath string) (table.CleanResult, error)
	CheckSize(path string, minGB float64) (bool, error)
}

// EventPublisher announces a finished run.
type EventPublisher interface {
	PublishRun(ctx context.Context, summary domain.RunSummary) error
}

// runState is shared by both orchestrators: the readiness flag and summary publication.
type runState struct {
	events  EventPublisher
	metrics *observability.Metrics
	logger  *slog.Logger
	ready   atomic.Bool
	stage   atomic.Value // string
}

// Stage names the step in progress: "idle" before the run, then "done" or
// "failed" after it.
func (s *runState) Stage() string {
	if v, ok := s.stage.Load().(string); ok {
		return v
	}
	return "idle"
}

func newSummary(command string) domain.RunSummary {
	return domain.RunSummary{
		RunID:     uuid.NewString(),
		Command:   command,
		StartedAt: clock.Now().UTC(),
	}
}

// checkReadiness returns nil once a run has completed successfully.
func (s *runState) checkReadiness() error {
	if !s.ready.Load() {
		return errors.New("no run has completed yet")
	}
	return nil
}

// timed runs fn and records its wall time under stage.
func (s *runState) timed(stage string, fn func() error) error {
	s.stage.Store(stage)
	start := clock.Now()
	err := fn()
	elapsed := clock.Since(start)
	s.metrics.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	s.logger.Debug("stage finished", "stage", stage, "elapsed", elapsed.Round(time.Millisecond))
	return err
}

// finish stamps the summary and hands it to the publisher, if any. Publication
// failures are logged and never fail the run.
func (s *runState) finish(ctx context.Context, summary *domain.RunSummary) {
	summary.FinishedAt = clock.Now().UTC()
	s.stage.Store("done")
	s.logger.Info("run complete",
		"run_id", summary.RunID,
		"command", summary.Command,
		"elapsed", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond),
	)
	s.publish(ctx, summary)
}

// fail records err on the summary and publishes it. The summary still goes
// out when ctx was canceled, bounded by publishTimeout.
func (s *runState) fail(ctx context.Context, summary *domain.RunSummary, err error) {
	summary.FinishedAt = clock.Now().UTC()
	summary.Error = err.Error()
	failedAt := s.Stage()
	s.stage.Store("failed")
	s.logger.Error("run failed",
		"run_id", summary.RunID,
		"command", summary.Command,
		"stage", failedAt,
		"error", err,
	)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	s.publish(ctx, summary)
}

const publishTimeout = 10 * time.Second

func (s *runState) publish(ctx context.Context, summary *domain.RunSummary) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishRun(ctx, *summary); err != nil {
		s.logger.Warn("publish run summary failed", "run_id", summary.RunID, "error", err)
	}
}
