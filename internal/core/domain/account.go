package domain

import "time"

// AccountStatus enumerates possible account states.
type AccountStatus string

const (
	AccountStatusPending  AccountStatus = "pending"
	AccountStatusApproved AccountStatus = "approved"
	AccountStatusActive   AccountStatus = "active"
	AccountStatusRejected AccountStatus = "rejected"
	AccountStatusRevoked  AccountStatus = "revoked"
)

// Valid reports whether the value is a known status.
func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusPending, AccountStatusApproved, AccountStatusActive, AccountStatusRejected, AccountStatusRevoked:
		return true
	}
	return false
}

// Terminal reports whether the status permanently ends the account lifecycle.
func (s AccountStatus) Terminal() bool {
	return s == AccountStatusRejected || s == AccountStatusRevoked
}

// CanAuthenticate reports whether PIN verification may succeed for this status.
func (s AccountStatus) CanAuthenticate() bool {
	return s == AccountStatusApproved || s == AccountStatusActive
}

// AccountRole governs the authorization level of an account.
type AccountRole string

const (
	RoleMember AccountRole = "member"
	RoleAdmin  AccountRole = "admin"
)

// Account mirrors the persisted representation in the accounts table.
type Account struct {
	ID              string
	Name            string
	Email           string
	Role            AccountRole
	Status          AccountStatus
	PinCode         *string // legacy plaintext credential, 6 digits
	PinHash         *string // derived-key credential, preferred
	PinLookup       *string // SHA-256 digest of the PIN, used for uniqueness checks
	CreatedAt       time.Time
	ApprovedAt      *time.Time
	RejectedAt      *time.Time
	RejectionReason *string
}

// Sanitized returns a copy of the account with credential material removed.
func (a Account) Sanitized() Account {
	a.PinCode = nil
	a.PinHash = nil
	a.PinLookup = nil
	return a
}

// AuthenticatingStatuses is the set of statuses eligible for PIN verification.
func AuthenticatingStatuses() []AccountStatus {
	return []AccountStatus{AccountStatusApproved, AccountStatusActive}
}
