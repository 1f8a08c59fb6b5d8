package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/venue-locator-service/internal/config"
	"github.com/couchcryptid/venue-locator-service/internal/domain"
)

// Writer produces enriched activity venues to the sink topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes venues keyed by activity ID, so every revision of an
// activity lands on the same partition.
func (w *Writer) LoadBatch(ctx context.Context, venues []domain.ActivityVenue) error {
	if len(venues) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(venues))
	for i := range venues {
		msg, err := serializeToMessage(venues[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func serializeToMessage(v domain.ActivityVenue) (kafkago.Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize activity venue: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(v.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "geo_source", Value: []byte(v.GeoSource)},
			{Key: "enriched_at", Value: []byte(v.EnrichedAt.Format(time.RFC3339))},
		},
	}, nil
}
