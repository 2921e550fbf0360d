// Package events publishes execution records to a Kafka topic so external
// consumers can watch script activity.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/skillrun/skillrun/internal/audit"
)

const publishTimeout = 5 * time.Second

// Publisher writes one Kafka message per execution record, keyed by skill
// name so records for the same skill stay ordered within a partition. It
// implements audit.Sink.
type Publisher struct {
	writer *kafka.Writer
}

var _ audit.Sink = (*Publisher)(nil)

// NewPublisher connects to the given brokers and publishes to topic.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			Async:                  false,
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
		},
	}
}

// Record publishes one execution record. The write is bounded by its own
// timeout; the audit trail treats a failure as log-and-continue.
func (p *Publisher) Record(rec audit.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode execution event: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(rec.Skill),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "classification", Value: []byte(rec.Classification)},
			{Key: "skill", Value: []byte(rec.Skill)},
		},
		Time: rec.Time,
	})
	if err != nil {
		return fmt.Errorf("publish execution event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
