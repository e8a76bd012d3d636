package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/quake-felt-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	writeTimeout = 3 * time.Second
	maxAttempts  = 3
)

// Writer publishes stored felt reports to a Kafka topic.
// It implements service.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a producer for topic on brokers.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		WriteTimeout:           writeTimeout,
		MaxAttempts:            maxAttempts,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish writes one report keyed by its id, so reports hash to a stable
// partition.
func (w *Writer) Publish(ctx context.Context, r domain.FeltReport) error {
	msg, err := serializeToMessage(r)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish report %d: %w", r.ID, err)
	}
	w.logger.Debug("report published", "id", r.ID, "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a FeltReport into a Kafka message.
func serializeToMessage(r domain.FeltReport) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize felt report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.Itoa(r.ID)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "strategy", Value: []byte(r.Strategy)},
			{Key: "submitted_at", Value: []byte(r.SubmissionTime)},
		},
	}, nil
}
