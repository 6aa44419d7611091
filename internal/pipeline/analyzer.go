package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/noaa-climate-etl/internal/aggregate"
	"github.com/couchcryptid/noaa-climate-etl/internal/domain"
	"github.com/couchcryptid/noaa-climate-etl/internal/observability"
	"github.com/couchcryptid/noaa-climate-etl/internal/report"
	"github.com/couchcryptid/noaa-climate-etl/internal/table"
)

// ErrMissingInput is returned when the cleaned table is absent or empty.
var ErrMissingInput = errors.New("cleaned data not available, run climate-prepare first")

// chartLister is implemented by reporters that write files.
type chartLister interface {
	Written() []string
}

// Analyzer loads the cleaned table, computes the aggregations, and hands the
// result to each reporter in order.
type Analyzer struct {
	runState
	cleanedFile string
	session     *Session
	reporters   []report.Reporter
}

// NewAnalyzer creates an Analyzer. events may be nil.
func NewAnalyzer(cleanedFile string, session *Session, reporters []report.Reporter, events EventPublisher, logger *slog.Logger, metrics *observability.Metrics) *Analyzer {
	return &Analyzer{
		runState:    runState{events: events, metrics: metrics, logger: logger},
		cleanedFile: cleanedFile,
		session:     session,
		reporters:   reporters,
	}
}

// CheckReadiness returns nil once an analysis run has completed.
func (a *Analyzer) CheckReadiness(_ context.Context) error {
	return a.checkReadiness()
}

// Run performs one analysis. A failed run still publishes its summary with
// the error set.
func (a *Analyzer) Run(ctx context.Context) (domain.Analysis, error) {
	summary := newSummary(CommandAnalyze)

	a.metrics.PipelineRunning.Set(1)
	defer a.metrics.PipelineRunning.Set(0)
	a.logger.Info("analysis started", "run_id", summary.RunID, "input", a.cleanedFile)

	result, err := a.run(ctx, &summary)
	if err != nil {
		a.fail(ctx, &summary, err)
		return result, err
	}

	a.ready.Store(true)
	a.finish(ctx, &summary)
	return result, nil
}

func (a *Analyzer) run(ctx context.Context, summary *domain.RunSummary) (domain.Analysis, error) {
	if _, err := os.Stat(a.cleanedFile); errors.Is(err, fs.ErrNotExist) {
		return domain.Analysis{}, fmt.Errorf("%w: %s not found", ErrMissingInput, a.cleanedFile)
	}

	var records []domain.CleanedRecord
	err := a.timed("load", func() error {
		var err error
		records, err = table.LoadCleaned(a.cleanedFile)
		return err
	})
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("load: %w", err)
	}
	if len(records) == 0 {
		return domain.Analysis{}, fmt.Errorf("%w: %s has no rows", ErrMissingInput, a.cleanedFile)
	}
	summary.RowsCleaned = len(records)
	a.logger.Info("cleaned table loaded", "rows", len(records))

	var result domain.Analysis
	err = a.timed("aggregate", func() error {
		var err error
		result, err = a.aggregate(ctx, records)
		return err
	})
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("aggregate: %w", err)
	}

	err = a.timed("report", func() error {
		for _, r := range a.reporters {
			if err := r.Report(ctx, result); err != nil {
				return err
			}
			if cl, ok := r.(chartLister); ok {
				summary.Charts = append(summary.Charts, cl.Written()...)
			}
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("report: %w", err)
	}
	return result, nil
}

// aggregate runs the aggregations concurrently, bounded by the session's
// worker limit. Each writes a distinct field of the result and only reads records.
func (a *Analyzer) aggregate(ctx context.Context, records []domain.CleanedRecord) (domain.Analysis, error) {
	var out domain.Analysis

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.session.Workers())

	run := func(name string, fn func()) {
		g.Go(func() (err error) {
			if err := ctx.Err(); err != nil {
				return err
			}
			defer func() {
				if r := recover(); r != nil {
					a.logger.Error("aggregation panicked", "aggregation", name, "panic", r, "stack", string(debug.Stack()))
					err = fmt.Errorf("aggregation %s panicked: %v", name, r)
				}
			}()

			start := clock.Now()
			fn()
			a.metrics.AggregationDuration.WithLabelValues(name).Observe(clock.Since(start).Seconds())
			return nil
		})
	}

	run("monthly", func() { out.Monthly = aggregate.MonthlyTemperature(records) })
	run("annual", func() { out.Annual = aggregate.AnnualPrecipitation(records) })
	run("extremes", func() { out.Extremes = aggregate.StationExtremes(records) })
	run("seasonal", func() { out.Seasonal = aggregate.OrderSeasons(aggregate.Seasonal(records)) })
	run("trend", func() { out.Trend = aggregate.AnnualTrend(records) })
	run("overview", func() { out.Overview = aggregate.Summarize(records) })

	if err := g.Wait(); err != nil {
		return domain.Analysis{}, err
	}
	return out, nil
}
