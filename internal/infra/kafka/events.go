package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/domain"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/port"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	AccountID string           `json:"account_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, accountID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		AccountID: accountID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAccessRequested publishes crew.access.requested events.
func (p *EventPublisher) PublishAccessRequested(ctx context.Context, event domain.AccessRequestedEvent) error {
	payload := struct {
		AccountID   string         `json:"account_id"`
		Name        string         `json:"name"`
		Email       string         `json:"email"`
		RequestedAt time.Time      `json:"requested_at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:   event.AccountID,
		Name:        event.Name,
		Email:       event.Email,
		RequestedAt: event.RequestedAt.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "crew.access.requested", event.AccountID, event.RequestedAt, payload)
}

// PublishAccountApproved publishes crew.access.approved events.
func (p *EventPublisher) PublishAccountApproved(ctx context.Context, event domain.AccountApprovedEvent) error {
	payload := struct {
		AccountID  string         `json:"account_id"`
		ApprovedBy string         `json:"approved_by"`
		ApprovedAt time.Time      `json:"approved_at"`
		PinWidened bool           `json:"pin_widened"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:  event.AccountID,
		ApprovedBy: event.ApprovedBy,
		ApprovedAt: event.ApprovedAt.UTC(),
		PinWidened: event.PinWidened,
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "crew.access.approved", event.AccountID, event.ApprovedAt, payload)
}

// PublishAccountRejected publishes crew.access.rejected events.
func (p *EventPublisher) PublishAccountRejected(ctx context.Context, event domain.AccountRejectedEvent) error {
	payload := struct {
		AccountID  string         `json:"account_id"`
		RejectedBy string         `json:"rejected_by"`
		Reason     string         `json:"reason,omitempty"`
		RejectedAt time.Time      `json:"rejected_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:  event.AccountID,
		RejectedBy: event.RejectedBy,
		Reason:     event.Reason,
		RejectedAt: event.RejectedAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "crew.access.rejected", event.AccountID, event.RejectedAt, payload)
}

// PublishPinRegenerated publishes crew.access.pin_regenerated events.
func (p *EventPublisher) PublishPinRegenerated(ctx context.Context, event domain.PinRegeneratedEvent) error {
	payload := struct {
		AccountID   string         `json:"account_id"`
		RequestedBy string         `json:"requested_by"`
		RotatedAt   time.Time      `json:"rotated_at"`
		PinWidened  bool           `json:"pin_widened"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:   event.AccountID,
		RequestedBy: event.RequestedBy,
		RotatedAt:   event.RotatedAt.UTC(),
		PinWidened:  event.PinWidened,
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "crew.access.pin_regenerated", event.AccountID, event.RotatedAt, payload)
}

// PublishAccountRevoked publishes crew.access.revoked events.
func (p *EventPublisher) PublishAccountRevoked(ctx context.Context, event domain.AccountRevokedEvent) error {
	payload := struct {
		AccountID string         `json:"account_id"`
		RevokedBy string         `json:"revoked_by"`
		RevokedAt time.Time      `json:"revoked_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		AccountID: event.AccountID,
		RevokedBy: event.RevokedBy,
		RevokedAt: event.RevokedAt.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "crew.access.revoked", event.AccountID, event.RevokedAt, payload)
}

// PublishPinVerified publishes crew.access.pin_verified events.
func (p *EventPublisher) PublishPinVerified(ctx context.Context, event domain.PinVerifiedEvent) error {
	payload := struct {
		AccountID  string         `json:"account_id"`
		VerifiedAt time.Time      `json:"verified_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:  event.AccountID,
		VerifiedAt: event.VerifiedAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "crew.access.pin_verified", event.AccountID, event.VerifiedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
