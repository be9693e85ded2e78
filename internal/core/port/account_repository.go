package port

import (
	"context"
	"time"

	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/domain"
)

// CredentialUpdate carries the derived credential material persisted on approval
// or PIN rotation. The plaintext PIN itself is never stored.
type CredentialUpdate struct {
	PinHash   string
	PinLookup string
}

// AccountRepository exposes persistence behavior for accounts.
//
// The transition methods implement optimistic concurrency: the write is
// conditioned on the expected prior status and reports false when another
// writer got there first.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	ListByStatus(ctx context.Context, statuses ...domain.AccountStatus) ([]domain.Account, error)

	// PinInUse reports whether any account, regardless of status, already
	// holds the candidate PIN (by lookup digest or legacy plaintext column).
	PinInUse(ctx context.Context, lookup string, plaintext string) (bool, error)

	Approve(ctx context.Context, id string, cred CredentialUpdate, at time.Time) (bool, error)
	Reject(ctx context.Context, id string, reason string, at time.Time) (bool, error)
	Revoke(ctx context.Context, id string) error
	SetCredential(ctx context.Context, id string, expected domain.AccountStatus, cred CredentialUpdate) (bool, error)
}
