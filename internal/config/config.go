package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// DefaultStations are ten long-record US GHCN-Daily stations.
const DefaultStations = "USW00094728,USW00023174,USW00014739,USW00012839,USW00024233," +
	"USW00094846,USW00023183,USW00013874,USW00003017,USW00012960"

// DefaultBaseURL is the NCEI GHCN-Daily per-station CSV endpoint.
const DefaultBaseURL = "https://www.ncei.noaa.gov/data/global-historical-climatology-network-daily/access/"

// ChartSize is a chart's width and height in inches.
type ChartSize struct {
	Width  float64 `validate:"gt=0"`
	Height float64 `validate:"gt=0"`
}

// Config holds all batch settings, populated from environment variables.
type Config struct {
	AppName     string `env:"APP_NAME" validate:"required"`
	MemoryLimit int64  `env:"MEMORY_LIMIT" validate:"gte=0"`
	LogLevel    string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat   string `env:"LOG_FORMAT" validate:"oneof=json text"`

	DataDir    string `env:"DATA_DIR" validate:"required"`
	ResultsDir string `env:"RESULTS_DIR" validate:"required"`

	ChartSize      ChartSize `env:"CHART_SIZE"`
	ChartSizeLarge ChartSize `env:"CHART_SIZE_LARGE"`
	ChartDPI       int       `env:"CHART_DPI" validate:"min=36,max=1200"`

	MinCombinedSizeGB float64 `env:"MIN_COMBINED_SIZE_GB" validate:"gte=0"`
	MinDownloadSizeGB float64 `env:"MIN_DOWNLOAD_SIZE_GB" validate:"gte=0"`

	Stations        []string      `env:"STATIONS" validate:"min=1,dive,required,alphanum"`
	BaseURL         string        `env:"BASE_URL" validate:"required,url"`
	DownloadTimeout time.Duration `env:"DOWNLOAD_TIMEOUT" validate:"gt=0"`
	Workers         int           `env:"WORKERS" validate:"min=1"`

	HTTPAddr        string
	ShutdownTimeout time.Duration

	KafkaBrokers []string
	KafkaTopic   string `env:"KAFKA_TOPIC" validate:"required_with=KafkaBrokers"`
}

// RawDir holds the downloaded per-station files.
func (c *Config) RawDir() string { return filepath.Join(c.DataDir, "stations") }

// UnifiedFile is the concatenated station table.
func (c *Config) UnifiedFile() string { return filepath.Join(c.DataDir, "noaa_unified.csv") }

// CleanedFile is the cleaned, rescaled table read by the analysis.
func (c *Config) CleanedFile() string { return filepath.Join(c.DataDir, "noaa_cleaned.csv") }

// SlogLevel maps LogLevel to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory, when present, seeds variables that are
// not already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	memoryLimit, err := humanize.ParseBytes(sharedcfg.EnvOrDefault("MEMORY_LIMIT", "4GiB"))
	if err != nil {
		return nil, fmt.Errorf("invalid MEMORY_LIMIT: %w", err)
	}

	downloadTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("DOWNLOAD_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid DOWNLOAD_TIMEOUT: %w", err)
	}

	chartSize, err := parseChartSize("CHART_SIZE", "12x6")
	if err != nil {
		return nil, err
	}
	chartSizeLarge, err := parseChartSize("CHART_SIZE_LARGE", "14x10")
	if err != nil {
		return nil, err
	}

	chartDPI, err := parseInt("CHART_DPI", 150)
	if err != nil {
		return nil, err
	}
	workers, err := parseInt("WORKERS", runtime.NumCPU())
	if err != nil {
		return nil, err
	}

	minCombined, err := parseFloat("MIN_COMBINED_SIZE_GB", 0.5)
	if err != nil {
		return nil, err
	}
	minDownload, err := parseFloat("MIN_DOWNLOAD_SIZE_GB", 0.5)
	if err != nil {
		return nil, err
	}

	baseURL := sharedcfg.EnvOrDefault("BASE_URL", DefaultBaseURL)
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	cfg := &Config{
		AppName:     sharedcfg.EnvOrDefault("APP_NAME", "noaa-climate-etl"),
		MemoryLimit: int64(memoryLimit), //nolint:gosec // bounded by humanize parsing of a human-entered size
		LogLevel:    strings.ToLower(sharedcfg.EnvOrDefault("LOG_LEVEL", "info")),
		LogFormat:   strings.ToLower(sharedcfg.EnvOrDefault("LOG_FORMAT", "json")),

		DataDir:    sharedcfg.EnvOrDefault("DATA_DIR", "data"),
		ResultsDir: sharedcfg.EnvOrDefault("RESULTS_DIR", "results"),

		ChartSize:      chartSize,
		ChartSizeLarge: chartSizeLarge,
		ChartDPI:       chartDPI,

		MinCombinedSizeGB: minCombined,
		MinDownloadSizeGB: minDownload,

		Stations:        sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("STATIONS", DefaultStations)),
		BaseURL:         baseURL,
		DownloadTimeout: downloadTimeout,
		Workers:         workers,

		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		ShutdownTimeout: shutdownTimeout,

		KafkaTopic: sharedcfg.EnvOrDefault("KAFKA_TOPIC", "climate-etl-runs"),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks struct constraints and reports the first failure by its
// environment variable name.
func validate(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})

	err := v.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("invalid %s: failed %q check", envName(fe.Namespace()), fe.Tag())
	}
	return err
}

// envName turns a validator namespace such as "Config.CHART_SIZE.Width" or
// "Config.STATIONS[2]" into the variable name.
func envName(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	name := parts[0]
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}

func parseChartSize(key, def string) (ChartSize, error) {
	raw := strings.ToLower(sharedcfg.EnvOrDefault(key, def))
	w, h, ok := strings.Cut(raw, "x")
	if !ok {
		return ChartSize{}, fmt.Errorf("invalid %s: want WIDTHxHEIGHT in inches", key)
	}
	width, errW := strconv.ParseFloat(strings.TrimSpace(w), 64)
	height, errH := strconv.ParseFloat(strings.TrimSpace(h), 64)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return ChartSize{}, fmt.Errorf("invalid %s: want WIDTHxHEIGHT in inches", key)
	}
	return ChartSize{Width: width, Height: height}, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
