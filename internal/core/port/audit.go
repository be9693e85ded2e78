package port

import (
	"context"

	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/domain"
)

// AuditLog appends to and reads from the append-only audit table.
// Append failures must never fail the operation being audited.
type AuditLog interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.AuditEntry, error)
}

// EventPublisher publishes access-lifecycle events to the message bus.
type EventPublisher interface {
	PublishAccessRequested(ctx context.Context, event domain.AccessRequestedEvent) error
	PublishAccountApproved(ctx context.Context, event domain.AccountApprovedEvent) error
	PublishAccountRejected(ctx context.Context, event domain.AccountRejectedEvent) error
	PublishPinRegenerated(ctx context.Context, event domain.PinRegeneratedEvent) error
	PublishAccountRevoked(ctx context.Context, event domain.AccountRevokedEvent) error
	PublishPinVerified(ctx context.Context, event domain.PinVerifiedEvent) error
}
