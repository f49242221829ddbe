package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/segmentio/kafka-go"

	"projectbeheer/backend/internal/audit/domain"
	"projectbeheer/backend/internal/logging"
)

const writeTimeout = 5 * time.Second

// MessageWriter is the subset of *kafka.Writer used by KafkaProducer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer writes audit entries as JSON to one topic. Messages are keyed
// by entity so all versions of one entity land on the same partition.
type KafkaProducer struct {
	writer MessageWriter
}

// NewKafkaProducer returns nil when brokers or topic are not configured.
func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return NewKafkaProducerWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	})
}

// NewKafkaProducerWithWriter wraps an existing writer.
func NewKafkaProducerWithWriter(w MessageWriter) *KafkaProducer {
	return &KafkaProducer{writer: w}
}

// MessageKey is the partition key of an entry.
func MessageKey(entry *domain.Entry) []byte {
	return []byte(entry.EntityTable + "/" + entry.EntityID)
}

// Emit writes entry to the topic.
func (p *KafkaProducer) Emit(ctx context.Context, entry *domain.Entry) error {
	if p == nil || p.writer == nil || entry == nil {
		return nil
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "marshal audit entry")
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   MessageKey(entry),
		Value: payload,
		Time:  entry.OccurredAt,
	})
	if err != nil {
		logging.FromContext(ctx).Warn("audit feed: kafka write failed",
			"entity_table", entry.EntityTable, "entity_id", entry.EntityID, "error", err)
		return errors.Wrap(err, "kafka write")
	}
	return nil
}

// Close closes the writer.
func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
