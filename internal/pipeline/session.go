package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/couchcryptid/noaa-climate-etl/internal/config"
)

// SessionConfig sizes a Session.
type SessionConfig struct {
	AppName     string
	MemoryLimit int64  // bytes; 0 leaves the runtime limit unchanged
	Workers     int    // aggregation concurrency
	ScratchRoot string // parent of the scratch directory; must share a filesystem with stage outputs
}

// NewSessionConfig derives a SessionConfig from the process configuration.
func NewSessionConfig(cfg *config.Config) SessionConfig {
	return SessionConfig{
		AppName:     cfg.AppName,
		MemoryLimit: cfg.MemoryLimit,
		Workers:     cfg.Workers,
		ScratchRoot: cfg.DataDir,
	}
}

// Session is the run context for one command: it owns the soft memory limit,
// a scratch directory for in-progress stage outputs, and the worker limit.
// Close releases everything and is safe to call more than once.
type Session struct {
	cfg       SessionConfig
	scratch   string
	prevLimit int64
	logger    *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewSession applies the memory limit and creates the scratch directory.
func NewSession(cfg SessionConfig, logger *slog.Logger) (*Session, error) {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if err := os.MkdirAll(cfg.ScratchRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch root: %w", err)
	}
	scratch, err := os.MkdirTemp(cfg.ScratchRoot, "."+cfg.AppName+"-scratch-")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	prev := debug.SetMemoryLimit(-1)
	if cfg.MemoryLimit > 0 {
		debug.SetMemoryLimit(cfg.MemoryLimit)
	}

	s := &Session{cfg: cfg, scratch: scratch, prevLimit: prev, logger: logger}
	logger.Info("session started",
		"memory_limit", humanize.IBytes(uint64(max(cfg.MemoryLimit, 0))), //nolint:gosec // clamped to non-negative
		"workers", cfg.Workers,
		"scratch", scratch,
	)
	return s, nil
}

// Workers is the concurrency limit for aggregations.
func (s *Session) Workers() int { return s.cfg.Workers }

// ScratchPath returns a path inside the scratch directory.
func (s *Session) ScratchPath(name string) string {
	return filepath.Join(s.scratch, name)
}

// Publish moves a finished scratch file to dest, replacing any previous file.
// Readers of dest never see a partially written stage output.
func (s *Session) Publish(scratchPath, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(dest), err)
	}
	if err := os.Rename(scratchPath, dest); err != nil {
		return fmt.Errorf("publish %s: %w", dest, err)
	}
	return nil
}

// Close removes the scratch directory and restores the previous memory limit.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		debug.SetMemoryLimit(s.prevLimit)
		if err := os.RemoveAll(s.scratch); err != nil {
			s.closeErr = fmt.Errorf("remove scratch dir: %w", err)
		}
		s.logger.Info("session closed")
	})
	return s.closeErr
}
