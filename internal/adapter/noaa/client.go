// Package noaa downloads GHCN-Daily per-station CSV files.
package noaa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/couchcryptid/noaa-climate-etl/internal/config"
	"github.com/couchcryptid/noaa-climate-etl/internal/domain"
	"github.com/couchcryptid/noaa-climate-etl/internal/observability"
)

// chunkSize is the copy buffer for streaming a response body to disk.
const chunkSize = 8 << 10

// Client fetches station files from the GHCN-Daily access endpoint.
type Client struct {
	baseURL    string
	rawDir     string
	minGB      float64
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a client that writes into cfg.RawDir().
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		rawDir:  cfg.RawDir(),
		minGB:   cfg.MinDownloadSizeGB,
		httpClient: &http.Client{
			Timeout:   cfg.DownloadTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		metrics: metrics,
		logger:  logger,
	}
}

// FetchAll downloads each station in order. A failed station is logged and
// recorded in the result; it never stops the batch. The returned error is set
// only when the destination directory cannot be created or ctx is done.
func (c *Client) FetchAll(ctx context.Context, stationIDs []string) (domain.FetchResult, error) {
	res := domain.FetchResult{Failed: make(map[string]error)}
	if err := os.MkdirAll(c.rawDir, 0o755); err != nil {
		return res, fmt.Errorf("create raw dir: %w", err)
	}

	c.logger.Info("downloading stations", "count", len(stationIDs), "dest", c.rawDir)

	for i, id := range stationIDs {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("fetch stations: %w", err)
		}

		path, n, err := c.fetch(ctx, id)
		if err != nil {
			res.Failed[id] = err
			c.metrics.Downloads.WithLabelValues("error").Inc()
			c.logger.Warn("station download failed",
				"station", id,
				"index", i+1,
				"total", len(stationIDs),
				"error", err,
			)
			continue
		}

		res.Paths = append(res.Paths, path)
		res.Bytes += n
		c.metrics.Downloads.WithLabelValues("success").Inc()
		c.metrics.DownloadBytes.Add(float64(n))
		c.logger.Info("station downloaded",
			"station", id,
			"index", i+1,
			"total", len(stationIDs),
			"size", humanize.IBytes(uint64(n)), //nolint:gosec // n is a non-negative byte count
		)
	}

	c.logger.Info("download complete",
		"downloaded", len(res.Paths),
		"failed", len(res.Failed),
		"total_size", humanize.IBytes(uint64(res.Bytes)), //nolint:gosec // non-negative byte count
	)
	if gb := domain.SizeGB(res.Bytes); gb < c.minGB {
		c.logger.Warn("download below minimum size, consider adding stations",
			"size_gb", fmt.Sprintf("%.2f", gb),
			"min_gb", c.minGB,
		)
	}
	return res, nil
}

// fetch streams one station file into rawDir. The body is written to a .part
// file that is renamed only after the copy succeeds.
func (c *Client) fetch(ctx context.Context, id string) (string, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+url.PathEscape(id)+".csv", nil)
	if err != nil {
		return "", 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("download %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("download %s: status %d", id, resp.StatusCode)
	}

	dest := filepath.Join(c.rawDir, id+".csv")
	part := dest + ".part"

	f, err := os.Create(part)
	if err != nil {
		return "", 0, fmt.Errorf("create %s: %w", part, err)
	}

	// Hide ReadFrom so the copy goes through the fixed-size buffer.
	n, copyErr := io.CopyBuffer(struct{ io.Writer }{f}, resp.Body, make([]byte, chunkSize))
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(part)
		return "", 0, fmt.Errorf("write %s: %w", id, err)
	}

	if err := os.Rename(part, dest); err != nil {
		_ = os.Remove(part)
		return "", 0, fmt.Errorf("publish %s: %w", id, err)
	}
	return dest, n, nil
}
