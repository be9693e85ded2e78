package domain

import "time"

// Audit actions recorded by the access lifecycle and verification gate.
const (
	AuditAccessRequested = "access_requested"
	AuditAccountApproved = "account_approved"
	AuditAccountRejected = "account_rejected"
	AuditAccountRevoked  = "account_revoked"
	AuditPinRegenerated  = "pin_regenerated"
	AuditPinVerified     = "pin_verified"
)

// AuditEntry is one append-only record in the audit log.
type AuditEntry struct {
	ID        string
	AccountID string
	Action    string
	Details   map[string]any
	CreatedAt time.Time
}
