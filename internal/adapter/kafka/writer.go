package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/sismos-dashboard/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes cleaned quakes to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the given topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishBatch serializes the quakes and writes them in a single
// WriteMessages call. Messages are keyed by quake ID so a report lands on the
// same partition across refreshes.
func (w *Writer) PublishBatch(ctx context.Context, quakes []domain.Quake) error {
	if len(quakes) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(quakes))
	for i := range quakes {
		msg, err := serializeToMessage(quakes[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages to %s: %w", len(msgs), w.writer.Topic, err)
	}
	w.logger.Debug("published quakes", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Quake into a Kafka message.
func serializeToMessage(q domain.Quake) (kafkago.Message, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize quake: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(q.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "severity", Value: []byte(q.Severity)},
			{Key: "coord_source", Value: []byte(q.CoordSource)},
			{Key: "processed_at", Value: []byte(q.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
