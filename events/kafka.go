package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	Brokers      []string      `json:"brokers" yaml:"brokers"`
	Topic        string        `json:"topic" yaml:"topic"`
	BatchSize    int           `json:"batch_size" yaml:"batch_size"`
	BatchTimeout time.Duration `json:"batch_timeout" yaml:"batch_timeout"`
	// Async returns from Publish without waiting for broker acknowledgement.
	Async bool `json:"async" yaml:"async"`
}

func validateKafkaConfig(config *KafkaConfig) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}
	if len(config.Brokers) == 0 {
		return fmt.Errorf("brokers list is empty")
	}
	if config.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	return nil
}

// messageWriter is the part of kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON messages keyed by problem name, so
// the events of one problem stay ordered within a partition.
type KafkaPublisher struct {
	config *KafkaConfig
	writer messageWriter
}

// NewKafkaPublisher creates a publisher for config.Topic.
func NewKafkaPublisher(config *KafkaConfig) (*KafkaPublisher, error) {
	if err := validateKafkaConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	if config.BatchTimeout == 0 {
		config.BatchTimeout = 100 * time.Millisecond
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    config.BatchSize,
		BatchTimeout: config.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
		Async:        config.Async,
	}
	return &KafkaPublisher{config: config, writer: writer}, nil
}

// Publish writes events in one batch.
func (k *KafkaPublisher) Publish(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msg, err := toMessage(prepare(e))
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish %d events to %s: %w", len(msgs), k.config.Topic, err)
	}
	return nil
}

// Close flushes pending messages.
func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

func toMessage(e Event) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event %s: %w", e.ID, err)
	}
	return kafka.Message{
		Key:   []byte(e.ProblemName),
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(e.Type)},
			{Key: "event-id", Value: []byte(e.ID.String())},
		},
	}, nil
}
