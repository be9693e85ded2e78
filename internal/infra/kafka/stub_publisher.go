package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/domain"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments and single-node deployments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, accountID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("account_id", accountID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishAccessRequested logs crew.access.requested events.
func (p *StubPublisher) PublishAccessRequested(_ context.Context, event domain.AccessRequestedEvent) error {
	payload := map[string]any{
		"account_id":   event.AccountID,
		"name":         event.Name,
		"email":        event.Email,
		"requested_at": event.RequestedAt,
		"metadata":     event.Metadata,
	}
	p.logEvent("crew.access.requested", event.AccountID, event.RequestedAt, payload)
	return nil
}

// PublishAccountApproved logs crew.access.approved events.
func (p *StubPublisher) PublishAccountApproved(_ context.Context, event domain.AccountApprovedEvent) error {
	payload := map[string]any{
		"account_id":  event.AccountID,
		"approved_by": event.ApprovedBy,
		"approved_at": event.ApprovedAt,
		"pin_widened": event.PinWidened,
		"metadata":    event.Metadata,
	}
	p.logEvent("crew.access.approved", event.AccountID, event.ApprovedAt, payload)
	return nil
}

// PublishAccountRejected logs crew.access.rejected events.
func (p *StubPublisher) PublishAccountRejected(_ context.Context, event domain.AccountRejectedEvent) error {
	payload := map[string]any{
		"account_id":  event.AccountID,
		"rejected_by": event.RejectedBy,
		"reason":      event.Reason,
		"rejected_at": event.RejectedAt,
		"metadata":    event.Metadata,
	}
	p.logEvent("crew.access.rejected", event.AccountID, event.RejectedAt, payload)
	return nil
}

// PublishPinRegenerated logs crew.access.pin_regenerated events.
func (p *StubPublisher) PublishPinRegenerated(_ context.Context, event domain.PinRegeneratedEvent) error {
	payload := map[string]any{
		"account_id":   event.AccountID,
		"requested_by": event.RequestedBy,
		"rotated_at":   event.RotatedAt,
		"pin_widened":  event.PinWidened,
		"metadata":     event.Metadata,
	}
	p.logEvent("crew.access.pin_regenerated", event.AccountID, event.RotatedAt, payload)
	return nil
}

// PublishAccountRevoked logs crew.access.revoked events.
func (p *StubPublisher) PublishAccountRevoked(_ context.Context, event domain.AccountRevokedEvent) error {
	payload := map[string]any{
		"account_id": event.AccountID,
		"revoked_by": event.RevokedBy,
		"revoked_at": event.RevokedAt,
		"metadata":   event.Metadata,
	}
	p.logEvent("crew.access.revoked", event.AccountID, event.RevokedAt, payload)
	return nil
}

// PublishPinVerified logs crew.access.pin_verified events.
func (p *StubPublisher) PublishPinVerified(_ context.Context, event domain.PinVerifiedEvent) error {
	payload := map[string]any{
		"account_id":  event.AccountID,
		"verified_at": event.VerifiedAt,
		"metadata":    event.Metadata,
	}
	p.logEvent("crew.access.pin_verified", event.AccountID, event.VerifiedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
