package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/i474232898/airport-weather-fusion/internal/weather"
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes fused snapshots to a Kafka topic, keyed by airport.
// It implements weather.Publisher.
type Writer struct {
	writer messageWriter
}

// NewWriter creates a Kafka producer for the given brokers and topic.
func NewWriter(brokers []string, topic string) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w}
}

// Publish serializes one fused snapshot. Keying by airport keeps each
// airport's cycles ordered within a partition.
func (w *Writer) Publish(ctx context.Context, snapshot weather.FusedSnapshot) error {
	msg, err := serializeToMessage(snapshot)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func serializeToMessage(snapshot weather.FusedSnapshot) (kafkago.Message, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize fused snapshot: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(snapshot.Airport),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "cycle_id", Value: []byte(snapshot.CycleID)},
			{Key: "aggregated_at", Value: []byte(snapshot.AggregatedAt.Format(time.RFC3339))},
		},
	}, nil
}
