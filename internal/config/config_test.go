package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStations = "USW00094728,USW00023174"

// chdirTemp isolates Load from any .env file in the package directory.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "noaa-climate-etl", cfg.AppName)
	assert.Equal(t, int64(4<<30), cfg.MemoryLimit)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "results", cfg.ResultsDir)
	assert.Equal(t, ChartSize{Width: 12, Height: 6}, cfg.ChartSize)
	assert.Equal(t, ChartSize{Width: 14, Height: 10}, cfg.ChartSizeLarge)
	assert.Equal(t, 150, cfg.ChartDPI)
	assert.InDelta(t, 0.5, cfg.MinCombinedSizeGB, 1e-9)
	assert.InDelta(t, 0.5, cfg.MinDownloadSizeGB, 1e-9)
	assert.Len(t, cfg.Stations, 10)
	assert.Equal(t, "USW00094728", cfg.Stations[0])
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.DownloadTimeout)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Empty(t, cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "climate-etl-runs", cfg.KafkaTopic)

	assert.Equal(t, filepath.Join("data", "stations"), cfg.RawDir())
	assert.Equal(t, filepath.Join("data", "noaa_unified.csv"), cfg.UnifiedFile())
	assert.Equal(t, filepath.Join("data", "noaa_cleaned.csv"), cfg.CleanedFile())
}

func TestLoad_CustomEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("APP_NAME", "climate-test")
	t.Setenv("MEMORY_LIMIT", "512MiB")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("DATA_DIR", "/tmp/noaa")
	t.Setenv("RESULTS_DIR", "/tmp/charts")
	t.Setenv("CHART_SIZE", "8x4.5")
	t.Setenv("CHART_SIZE_LARGE", "10 x 8")
	t.Setenv("CHART_DPI", "300")
	t.Setenv("MIN_COMBINED_SIZE_GB", "0.01")
	t.Setenv("MIN_DOWNLOAD_SIZE_GB", "2")
	t.Setenv("STATIONS", testStations)
	t.Setenv("BASE_URL", "http://mirror.example.com/ghcn")
	t.Setenv("DOWNLOAD_TIMEOUT", "5s")
	t.Setenv("WORKERS", "3")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "runs")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "climate-test", cfg.AppName)
	assert.Equal(t, int64(512<<20), cfg.MemoryLimit)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "/tmp/noaa", cfg.DataDir)
	assert.Equal(t, "/tmp/charts", cfg.ResultsDir)
	assert.Equal(t, ChartSize{Width: 8, Height: 4.5}, cfg.ChartSize)
	assert.Equal(t, ChartSize{Width: 10, Height: 8}, cfg.ChartSizeLarge)
	assert.Equal(t, 300, cfg.ChartDPI)
	assert.InDelta(t, 0.01, cfg.MinCombinedSizeGB, 1e-9)
	assert.InDelta(t, 2.0, cfg.MinDownloadSizeGB, 1e-9)
	assert.Equal(t, []string{"USW00094728", "USW00023174"}, cfg.Stations)
	assert.Equal(t, "http://mirror.example.com/ghcn/", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.DownloadTimeout)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "runs", cfg.KafkaTopic)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := chdirTemp(t)
	// godotenv sets process env directly; drop it so later tests see defaults.
	t.Cleanup(func() { _ = os.Unsetenv("STATIONS") })
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("STATIONS=USC00042319\nCHART_DPI=96\n"), 0o600))
	t.Setenv("CHART_DPI", "200") // real environment wins over .env

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"USC00042319"}, cfg.Stations)
	assert.Equal(t, 200, cfg.ChartDPI)
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{"shutdown timeout", "SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"memory limit", "MEMORY_LIMIT", "lots"},
		{"download timeout", "DOWNLOAD_TIMEOUT", "bad"},
		{"zero download timeout", "DOWNLOAD_TIMEOUT", "0s"},
		{"chart size format", "CHART_SIZE", "12by6"},
		{"chart size negative", "CHART_SIZE_LARGE", "-1x4"},
		{"chart dpi text", "CHART_DPI", "high"},
		{"chart dpi range", "CHART_DPI", "5"},
		{"workers", "WORKERS", "0"},
		{"min combined size", "MIN_COMBINED_SIZE_GB", "-1"},
		{"min download size", "MIN_DOWNLOAD_SIZE_GB", "half"},
		{"log level", "LOG_LEVEL", "verbose"},
		{"log format", "LOG_FORMAT", "xml"},
		{"base url", "BASE_URL", "not a url"},
		{"station id", "STATIONS", "USW00094728,bad-id"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chdirTemp(t)
			t.Setenv(tc.key, tc.val)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}

func TestConfig_SlogLevel(t *testing.T) {
	for level, want := range map[string]string{
		"debug": "DEBUG",
		"info":  "INFO",
		"warn":  "WARN",
		"error": "ERROR",
		"":      "INFO",
	} {
		cfg := &Config{LogLevel: level}
		assert.Equal(t, want, cfg.SlogLevel().String())
	}
}
