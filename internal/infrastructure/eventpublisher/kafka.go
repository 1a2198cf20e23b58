package eventpublisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/iho/balanceledger/internal/domain"
)

const envelopeVersion = 1

// Envelope is the wire format of an event on the topic.
type Envelope struct {
	EventID       string         `json:"event_id"`
	OutboxID      string         `json:"outbox_id"`
	EventType     string         `json:"event_type"`
	EventVersion  int            `json:"event_version"`
	AggregateType string         `json:"aggregate_type"`
	AggregateID   string         `json:"aggregate_id"`
	OccurredAt    time.Time      `json:"occurred_at"`
	Payload       map[string]any `json:"payload"`
}

// EventID derives a stable UUID from the outbox id so that redelivery of the
// same outbox row carries the same event id.
func EventID(outboxID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("balanceledger/"+outboxID)).String()
}

// NewEnvelope wraps an outbox event for publishing.
func NewEnvelope(event *domain.OutboxEvent) (Envelope, error) {
	if event == nil || event.ID == "" {
		return Envelope{}, errors.New("event id is required")
	}
	if event.EventType == "" {
		return Envelope{}, errors.New("event type is required")
	}

	return Envelope{
		EventID:       EventID(event.ID),
		OutboxID:      event.ID,
		EventType:     event.EventType,
		EventVersion:  envelopeVersion,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		OccurredAt:    event.CreatedAt.UTC(),
		Payload:       event.Payload,
	}, nil
}

// KafkaPublisher publishes outbox events to a Kafka topic, keyed by aggregate
// id so events of one order or withdrawal stay ordered.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher wraps an existing producer.
func NewKafkaPublisher(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// NewSyncProducer dials the brokers with idempotent, fully acknowledged writes.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers required")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_7_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 250 * time.Millisecond

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return producer, nil
}

// Publish sends the event and waits for the broker acknowledgement.
func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	envelope, err := NewEnvelope(event)
	if err != nil {
		return err
	}

	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.AggregateID),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.EventType)},
			{Key: []byte("event_id"), Value: []byte(envelope.EventID)},
		},
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka publish failed: %w", err)
	}
	return nil
}

// Close closes the underlying producer.
func (p *KafkaPublisher) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
