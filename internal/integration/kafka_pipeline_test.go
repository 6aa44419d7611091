//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/noaa-climate-etl/internal/adapter/kafka"
	"github.com/couchcryptid/noaa-climate-etl/internal/adapter/noaa"
	"github.com/couchcryptid/noaa-climate-etl/internal/config"
	"github.com/couchcryptid/noaa-climate-etl/internal/domain"
	"github.com/couchcryptid/noaa-climate-etl/internal/observability"
	"github.com/couchcryptid/noaa-climate-etl/internal/pipeline"
	"github.com/couchcryptid/noaa-climate-etl/internal/table"
)

const testTopic = "test-climate-runs"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("climate-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// stationServer serves a small GHCN-Daily file for every station except "MISSING".
func stationServer(t *testing.T, rows int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".csv")
		if id == "MISSING" {
			http.NotFound(w, r)
			return
		}
		var b strings.Builder
		b.WriteString("STATION,DATE,LATITUDE,NAME,TMAX,TMIN,PRCP\n")
		day := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
		for i := range rows {
			fmt.Fprintf(&b, "%s,%s,40.1,\"TEST, US\",%d,%d,%d\n",
				id, day.AddDate(0, 0, i).Format(time.DateOnly), 100+i, 20+i, i%7)
		}
		_, _ = io.WriteString(w, b.String())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func readSummary(ctx context.Context, t *testing.T, consumer *kafkago.Reader) (domain.RunSummary, map[string]string) {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read run topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var summary domain.RunSummary
	require.NoError(t, json.Unmarshal(msg.Value, &summary))
	assert.Equal(t, summary.RunID, string(msg.Key))
	return summary, headers
}

// TestPrepareAndAnalyzePublishSummaries runs both commands against a local
// station mirror and verifies each run summary reaches Kafka.
func TestPrepareAndAnalyzePublishSummaries(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	mirror := stationServer(t, 90)
	cfg := &config.Config{
		AppName:         "climate-it",
		DataDir:         t.TempDir(),
		ResultsDir:      t.TempDir(),
		Stations:        []string{"USW00000001", "MISSING", "USW00000002"},
		BaseURL:         mirror.URL + "/",
		DownloadTimeout: 10 * time.Second,
		Workers:         2,
		KafkaBrokers:    []string{broker},
		KafkaTopic:      testTopic,
	}

	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()
	writer := kafka.NewWriter(cfg, logger)
	t.Cleanup(func() { _ = writer.Close() })

	session, err := pipeline.NewSession(pipeline.NewSessionConfig(cfg), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	preparer := pipeline.NewPreparer(pipeline.NewPrepareConfig(cfg), session,
		noaa.NewClient(cfg, metrics, logger), table.NewProcessor(metrics, logger),
		writer, logger, metrics)
	prepared, err := preparer.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, prepared.Downloaded)
	assert.Equal(t, 1, prepared.DownloadFailed)
	assert.Equal(t, 180, prepared.RowsCleaned)

	analyzer := pipeline.NewAnalyzer(cfg.CleanedFile(), session, nil, writer, logger, metrics)
	analysis, err := analyzer.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 180, analysis.Overview.Records)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-runs-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	first, headers := readSummary(ctx, t, consumer)
	assert.Equal(t, pipeline.CommandPrepare, first.Command)
	assert.Equal(t, pipeline.CommandPrepare, headers["command"])
	_, err = time.Parse(time.RFC3339, headers["finished_at"])
	assert.NoError(t, err, "finished_at should be RFC3339")
	assert.Equal(t, prepared.RunID, first.RunID)
	assert.Equal(t, 180, first.RowsCleaned)

	second, _ := readSummary(ctx, t, consumer)
	assert.Equal(t, pipeline.CommandAnalyze, second.Command)
	assert.NotEqual(t, first.RunID, second.RunID)
}
