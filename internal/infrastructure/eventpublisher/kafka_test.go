package eventpublisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"

	"github.com/iho/balanceledger/internal/domain"
)

func TestEventIDIsStable(t *testing.T) {
	first := EventID("01HZX")
	if first != EventID("01HZX") {
		t.Fatal("expected the same outbox id to map to the same event id")
	}
	if first == EventID("01HZY") {
		t.Fatal("expected different outbox ids to map to different event ids")
	}
	if _, err := uuid.Parse(first); err != nil {
		t.Fatalf("expected a uuid, got %q: %v", first, err)
	}
}

func TestNewEnvelopeValidates(t *testing.T) {
	if _, err := NewEnvelope(&domain.OutboxEvent{EventType: domain.EventTypeOrderCreated}); err == nil {
		t.Fatal("expected error for missing id")
	}
	if _, err := NewEnvelope(&domain.OutboxEvent{ID: "evt-1"}); err == nil {
		t.Fatal("expected error for missing event type")
	}
}

func TestKafkaPublisherSendsEnvelope(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()

	event := &domain.OutboxEvent{
		ID:            "evt-1",
		AggregateID:   "ord-1",
		AggregateType: domain.AggregateTypeOrder,
		EventType:     domain.EventTypeOrderConfirmed,
		Payload:       map[string]any{"amount": "40"},
		CreatedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "ledger.events" {
			return fmt.Errorf("unexpected topic %s", msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil || string(key) != "ord-1" {
			return fmt.Errorf("unexpected key %s", key)
		}
		raw, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return err
		}
		if env.OutboxID != "evt-1" || env.EventID != EventID("evt-1") || env.EventType != domain.EventTypeOrderConfirmed {
			return fmt.Errorf("unexpected envelope %+v", env)
		}
		if env.Payload["amount"] != "40" {
			return fmt.Errorf("unexpected payload %v", env.Payload)
		}
		return nil
	})

	pub := NewKafkaPublisher(producer, "ledger.events")
	if err := pub.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
}

func TestKafkaPublisherReturnsSendError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	pub := NewKafkaPublisher(producer, "ledger.events")
	err := pub.Publish(context.Background(), &domain.OutboxEvent{ID: "evt-1", EventType: domain.EventTypeDepositFailed})
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected broker error, got %v", err)
	}
}

func TestKafkaPublisherHonoursCancelledContext(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pub := NewKafkaPublisher(producer, "ledger.events")
	if err := pub.Publish(ctx, &domain.OutboxEvent{ID: "evt-1", EventType: domain.EventTypeDepositFailed}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestNewSyncProducerRequiresBrokers(t *testing.T) {
	if _, err := NewSyncProducer(nil); err == nil {
		t.Fatal("expected error without brokers")
	}
}
