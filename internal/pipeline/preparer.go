package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/couchcryptid/noaa-climate-etl/internal/config"
	"github.com/couchcryptid/noaa-climate-etl/internal/domain"
	"github.com/couchcryptid/noaa-climate-etl/internal/observability"
)

// ErrNoDownloads is returned when every station download failed.
var ErrNoDownloads = errors.New("no station files downloaded")

// PrepareConfig names the stations and the files the preparer produces.
type PrepareConfig struct {
	Stations          []string
	UnifiedFile       string
	CleanedFile       string
	MinCombinedSizeGB float64
}

// NewPrepareConfig derives a PrepareConfig from the process configuration.
func NewPrepareConfig(cfg *config.Config) PrepareConfig {
	return PrepareConfig{
		Stations:          cfg.Stations,
		UnifiedFile:       cfg.UnifiedFile(),
		CleanedFile:       cfg.CleanedFile(),
		MinCombinedSizeGB: cfg.MinCombinedSizeGB,
	}
}

// Preparer runs fetch, unify, and clean in sequence.
type Preparer struct {
	runState
	cfg     PrepareConfig
	session *Session
	fetcher Fetcher
	tables  Tables
}

// NewPreparer creates a Preparer. events may be nil.
func NewPreparer(cfg PrepareConfig, session *Session, f Fetcher, t Tables, events EventPublisher, logger *slog.Logger, metrics *observability.Metrics) *Preparer {
	return &Preparer{
		runState: runState{events: events, metrics: metrics, logger: logger},
		cfg:      cfg,
		session:  session,
		fetcher:  f,
		tables:   t,
	}
}

// CheckReadiness returns nil once a preparation run has completed.
func (p *Preparer) CheckReadiness(_ context.Context) error {
	return p.checkReadiness()
}

// Run downloads the configured stations, unifies them, and cleans the result.
// Individual download or parse failures are counted and skipped; the run fails
// only when no input survives or a stage cannot write its output. A failed run
// still publishes its summary with the error set.
func (p *Preparer) Run(ctx context.Context) (domain.RunSummary, error) {
	summary := newSummary(CommandPrepare)
	summary.Stations = len(p.cfg.Stations)

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)
	p.logger.Info("preparation started", "run_id", summary.RunID, "stations", summary.Stations)

	if err := p.run(ctx, &summary); err != nil {
		p.fail(ctx, &summary, err)
		return summary, err
	}

	p.logger.Info("files ready",
		"unified", p.cfg.UnifiedFile,
		"cleaned", p.cfg.CleanedFile,
		"next", "run climate-analyze",
	)
	p.ready.Store(true)
	p.finish(ctx, &summary)
	return summary, nil
}

func (p *Preparer) run(ctx context.Context, summary *domain.RunSummary) error {
	var fetched domain.FetchResult
	err := p.timed("fetch", func() error {
		var err error
		fetched, err = p.fetcher.FetchAll(ctx, p.cfg.Stations)
		return err
	})
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	summary.Downloaded = len(fetched.Paths)
	summary.DownloadFailed = len(fetched.Failed)
	summary.DownloadBytes = fetched.Bytes
	if len(fetched.Paths) == 0 {
		return ErrNoDownloads
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	err = p.timed("unify", func() error {
		scratch := p.session.ScratchPath(filepath.Base(p.cfg.UnifiedFile))
		res, err := p.tables.Unify(fetched.Paths, scratch)
		summary.FilesParsed = len(res.Files)
		summary.FilesSkipped = len(res.Skipped)
		summary.RowsUnified = res.Rows
		if err != nil {
			return err
		}
		return p.session.Publish(scratch, p.cfg.UnifiedFile)
	})
	if err != nil {
		return fmt.Errorf("unify: %w", err)
	}
	if _, err := p.tables.CheckSize(p.cfg.UnifiedFile, p.cfg.MinCombinedSizeGB); err != nil {
		p.logger.Warn("size check failed", "path", p.cfg.UnifiedFile, "error", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	err = p.timed("clean", func() error {
		scratch := p.session.ScratchPath(filepath.Base(p.cfg.CleanedFile))
		res, err := p.tables.Clean(p.cfg.UnifiedFile, scratch)
		if err != nil {
			return err
		}
		summary.RowsCleaned = res.RowsOut
		summary.RowsDropped = res.Dropped()
		if res.RowsOut == 0 {
			p.logger.Warn("every row was dropped, analysis will have no input",
				"rows_in", res.RowsIn,
				"dropped_null", res.DroppedNull,
				"dropped_date", res.DroppedDate,
			)
		}
		return p.session.Publish(scratch, p.cfg.CleanedFile)
	})
	if err != nil {
		return fmt.Errorf("clean: %w", err)
	}
	return nil
}
