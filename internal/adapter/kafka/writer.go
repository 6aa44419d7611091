package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/noaa-climate-etl/internal/config"
	"github.com/couchcryptid/noaa-climate-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes run summaries to a Kafka topic.
// It implements pipeline.EventPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured run topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		Transport:              &kafkago.Transport{ClientID: cfg.AppName},
	}
	return &Writer{writer: w, logger: logger}
}

// PublishRun serializes one run summary, keyed by run ID.
func (w *Writer) PublishRun(ctx context.Context, summary domain.RunSummary) error {
	msg, err := serializeToMessage(summary)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish run %s: %w", summary.RunID, err)
	}
	w.logger.Debug("run summary published", "run_id", summary.RunID, "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func serializeToMessage(summary domain.RunSummary) (kafkago.Message, error) {
	data, err := json.Marshal(summary)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize run summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(summary.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "command", Value: []byte(summary.Command)},
			{Key: "finished_at", Value: []byte(summary.FinishedAt.Format(time.RFC3339))},
		},
	}, nil
}
