package event

import (
	"context"
	"fmt"
	"time"

	"github.com/harvestplace/backend/internal/domain/shared"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// KafkaConfig configures the Kafka relay
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// MessageWriter is the part of kafka.Writer the relay uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaRelay publishes domain events to a Kafka topic, keyed by aggregate
// id so all events of one order land on the same partition in order
type KafkaRelay struct {
	writer     MessageWriter
	serializer *EventSerializer
	logger     *zap.Logger
}

// NewKafkaRelay creates a relay writing to cfg.Topic with acks from all replicas
func NewKafkaRelay(cfg KafkaConfig, serializer *EventSerializer, logger *zap.Logger) *KafkaRelay {
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: timeout,
	}
	return NewKafkaRelayWithWriter(writer, serializer, logger)
}

// NewKafkaRelayWithWriter creates a relay on an existing writer
func NewKafkaRelayWithWriter(writer MessageWriter, serializer *EventSerializer, logger *zap.Logger) *KafkaRelay {
	return &KafkaRelay{writer: writer, serializer: serializer, logger: logger}
}

// Publish writes the events synchronously. The trace context of ctx is
// propagated in the message headers.
func (r *KafkaRelay) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		payload, err := r.serializer.Serialize(event)
		if err != nil {
			return err
		}
		headers := headerCarrier{
			{Key: "event_type", Value: []byte(event.EventType())},
			{Key: "event_id", Value: []byte(event.EventID().String())},
			{Key: "aggregate_type", Value: []byte(event.AggregateType())},
		}
		otel.GetTextMapPropagator().Inject(ctx, &headers)
		msgs = append(msgs, kafka.Message{
			Key:     []byte(event.AggregateID().String()),
			Value:   payload,
			Time:    event.OccurredAt(),
			Headers: headers,
		})
	}
	if err := r.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d kafka messages: %w", len(msgs), err)
	}
	r.logger.Debug("events relayed to kafka", zap.Int("count", len(msgs)))
	return nil
}

// Close flushes and closes the writer
func (r *KafkaRelay) Close() error {
	return r.writer.Close()
}

var _ shared.EventPublisher = (*KafkaRelay)(nil)

// headerCarrier adapts kafka headers to propagation.TextMapCarrier
type headerCarrier []kafka.Header

func (c *headerCarrier) Get(key string) string {
	for _, h := range *c {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i, h := range *c {
		if h.Key == key {
			(*c)[i].Value = []byte(value)
			return
		}
	}
	*c = append(*c, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, len(*c))
	for i, h := range *c {
		keys[i] = h.Key
	}
	return keys
}
