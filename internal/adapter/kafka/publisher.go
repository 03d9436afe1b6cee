package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/sitrep-feeds/internal/observability"
	"github.com/couchcryptid/sitrep-feeds/internal/snapshot"
)

// DefaultWriteTimeout bounds one snapshot publish.
const DefaultWriteTimeout = 10 * time.Second

// Record is anything published one message per item, keyed by RecordKey.
type Record interface {
	RecordKey() string
}

// MessageWriter is the subset of *kafkago.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes live snapshots to a Kafka topic.
type Publisher struct {
	writer       MessageWriter
	writeTimeout time.Duration
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// NewPublisher creates a Kafka producer for the snapshot topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		WriteTimeout: DefaultWriteTimeout,
	}
	return NewPublisherWithWriter(w, logger, metrics)
}

// NewPublisherWithWriter wraps an existing writer.
func NewPublisherWithWriter(w MessageWriter, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	return &Publisher{
		writer:       w,
		writeTimeout: DefaultWriteTimeout,
		logger:       logger.With("component", "kafka_publisher"),
		metrics:      metrics,
	}
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Publish writes every item of the snapshot in a single WriteMessages call.
func Publish[T Record](ctx context.Context, p *Publisher, source string, snap snapshot.Snapshot[T]) error {
	if len(snap.Items) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(snap.Items))
	for i := range snap.Items {
		msg, err := serializeToMessage(source, snap.FetchedAt, snap.Items[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	ctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()
	return p.writer.WriteMessages(ctx, msgs...)
}

// Hook returns a refresh hook publishing each live snapshot of source.
// Failures are logged and counted; they never affect the cache.
func Hook[T Record](p *Publisher, source string) snapshot.RefreshHook[T] {
	return func(ctx context.Context, snap snapshot.Snapshot[T]) {
		if err := Publish(ctx, p, source, snap); err != nil {
			p.metrics.SnapshotsPublished.WithLabelValues(source, "error").Inc()
			p.logger.Warn("publish snapshot failed", "source", source, "records", len(snap.Items), "error", err)
			return
		}
		p.metrics.SnapshotsPublished.WithLabelValues(source, "success").Inc()
		p.logger.Debug("published snapshot", "source", source, "records", len(snap.Items))
	}
}

// serializeToMessage marshals one record into a Kafka message.
func serializeToMessage[T Record](source string, fetchedAt time.Time, record T) (kafkago.Message, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s record: %w", source, err)
	}
	return kafkago.Message{
		Key:   []byte(record.RecordKey()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(source)},
			{Key: "fetched_at", Value: []byte(fetchedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
