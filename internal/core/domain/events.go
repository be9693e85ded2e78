package domain

import "time"

// AccessRequestedEvent represents the payload for crew.access.requested messages.
type AccessRequestedEvent struct {
	EventID     string
	AccountID   string
	Name        string
	Email       string
	RequestedAt time.Time
	Metadata    map[string]any
}

// AccountApprovedEvent represents the payload for crew.access.approved messages.
type AccountApprovedEvent struct {
	EventID    string
	AccountID  string
	ApprovedBy string
	ApprovedAt time.Time
	PinWidened bool
	Metadata   map[string]any
}

// AccountRejectedEvent represents the payload for crew.access.rejected messages.
type AccountRejectedEvent struct {
	EventID    string
	AccountID  string
	RejectedBy string
	Reason     string
	RejectedAt time.Time
	Metadata   map[string]any
}

// PinRegeneratedEvent represents the payload for crew.access.pin_regenerated messages.
type PinRegeneratedEvent struct {
	EventID     string
	AccountID   string
	RequestedBy string
	RotatedAt   time.Time
	PinWidened  bool
	Metadata    map[string]any
}

// AccountRevokedEvent represents the payload for crew.access.revoked messages.
type AccountRevokedEvent struct {
	EventID   string
	AccountID string
	RevokedBy string
	RevokedAt time.Time
	Metadata  map[string]any
}

// PinVerifiedEvent represents the payload for crew.access.pin_verified messages.
type PinVerifiedEvent struct {
	EventID    string
	AccountID  string
	VerifiedAt time.Time
	Metadata   map[string]any
}
