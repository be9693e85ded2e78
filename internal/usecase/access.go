package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/domain"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/port"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/infra/security"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/repository"
)

const defaultPinMintAttempts = 20

var (
	// ErrAccountNotFound indicates the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidState indicates the requested transition is not legal from the current status.
	ErrInvalidState = errors.New("transition not allowed from current status")
	// ErrDuplicateEmail indicates an account with the email already exists in a non-terminal status.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrPinSpaceExhausted indicates no unique PIN could be minted even after widening.
	ErrPinSpaceExhausted = errors.New("unable to mint a unique pin")
)

// DuplicateEmailError carries the status of the blocking account so the caller
// can message pending/approved/active requests distinctly.
type DuplicateEmailError struct {
	Email  string
	Status domain.AccountStatus
}

func (e *DuplicateEmailError) Error() string {
	return fmt.Sprintf("email %s already registered with status %s", e.Email, e.Status)
}

func (e *DuplicateEmailError) Unwrap() error { return ErrDuplicateEmail }

// AccessService orchestrates the account access lifecycle:
// pending -> {approved, rejected}; approved -> {active, revoked}; active -> revoked.
type AccessService struct {
	accounts     port.AccountRepository
	audit        port.AuditLog
	events       port.EventPublisher
	logger       *zap.Logger
	mintAttempts int
	now          func() time.Time
}

// NewAccessService constructs an access lifecycle service.
func NewAccessService(accounts port.AccountRepository, audit port.AuditLog, events port.EventPublisher, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{
		accounts:     accounts,
		audit:        audit,
		events:       events,
		logger:       logger,
		mintAttempts: defaultPinMintAttempts,
		now:          time.Now,
	}
}

// WithMintAttempts overrides the bounded retry budget for PIN uniqueness.
func (s *AccessService) WithMintAttempts(attempts int) *AccessService {
	if attempts > 0 {
		s.mintAttempts = attempts
	}
	return s
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *AccessService) WithClock(now func() time.Time) *AccessService {
	if now != nil {
		s.now = now
	}
	return s
}

// RequestAccess creates a pending account for a prospective crew member.
// A repeated request is rejected while an earlier account with the same email
// is still in a non-terminal status.
func (s *AccessService) RequestAccess(ctx context.Context, name, email string) (domain.Account, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return domain.Account{}, fmt.Errorf("name is required")
	}
	if email == "" {
		return domain.Account{}, fmt.Errorf("email is required")
	}

	existing, err := s.accounts.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return domain.Account{}, fmt.Errorf("lookup account by email: %w", err)
	}
	if existing != nil && !existing.Status.Terminal() {
		return domain.Account{}, &DuplicateEmailError{Email: email, Status: existing.Status}
	}

	now := s.now().UTC()
	account := domain.Account{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Role:      domain.RoleMember,
		Status:    domain.AccountStatusPending,
		CreatedAt: now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return domain.Account{}, err
	}

	s.appendAudit(ctx, account.ID, domain.AuditAccessRequested, map[string]any{
		"name":  name,
		"email": email,
	})
	s.publish(ctx, func(events port.EventPublisher) error {
		return events.PublishAccessRequested(ctx, domain.AccessRequestedEvent{
			EventID:     uuid.NewString(),
			AccountID:   account.ID,
			Name:        name,
			Email:       email,
			RequestedAt: now,
		})
	})

	return account, nil
}

// EnsureAdmin guarantees an active administrator account exists for the
// given email, creating one with a freshly minted PIN when absent. The
// returned PIN is non-empty only when the admin was created in this call;
// as with Approve, only the derived credential is persisted.
func (s *AccessService) EnsureAdmin(ctx context.Context, name, email string) (string, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return "", fmt.Errorf("name is required")
	}
	if email == "" {
		return "", fmt.Errorf("email is required")
	}

	existing, err := s.accounts.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("lookup account by email: %w", err)
	}
	if existing != nil && !existing.Status.Terminal() {
		return "", nil
	}

	pin, widened, err := s.mintUniquePin(ctx)
	if err != nil {
		return "", err
	}

	cred, err := deriveCredential(pin)
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	account := domain.Account{
		ID:         uuid.NewString(),
		Name:       name,
		Email:      email,
		Role:       domain.RoleAdmin,
		Status:     domain.AccountStatusActive,
		PinHash:    &cred.PinHash,
		PinLookup:  &cred.PinLookup,
		CreatedAt:  now,
		ApprovedAt: &now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return "", fmt.Errorf("create admin account: %w", err)
	}

	s.appendAudit(ctx, account.ID, domain.AuditAccountApproved, map[string]any{
		"approved_by": "bootstrap",
		"pin_widened": widened,
	})
	s.publish(ctx, func(events port.EventPublisher) error {
		return events.PublishAccountApproved(ctx, domain.AccountApprovedEvent{
			EventID:    uuid.NewString(),
			AccountID:  account.ID,
			ApprovedBy: "bootstrap",
			ApprovedAt: now,
			PinWidened: widened,
		})
	})

	return pin, nil
}

// Approve transitions a pending account to approved and mints its PIN.
// The plaintext PIN is returned exactly once for the admin to relay
// out-of-band; only the derived hash and lookup digest are persisted.
func (s *AccessService) Approve(ctx context.Context, accountID, adminID string) (string, error) {
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return "", err
	}

	if account.Status != domain.AccountStatusPending {
		return "", fmt.Errorf("%w: approve requires pending, account is %s", ErrInvalidState, account.Status)
	}

	pin, widened, err := s.mintUniquePin(ctx)
	if err != nil {
		return "", err
	}

	cred, err := deriveCredential(pin)
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	ok, err := s.accounts.Approve(ctx, accountID, cred, now)
	if err != nil {
		return "", fmt.Errorf("approve account: %w", err)
	}
	if !ok {
		// Zero rows affected means another admin won the race. Re-read to
		// confirm before surfacing the conflict.
		current, readErr := s.getAccount(ctx, accountID)
		if readErr != nil {
			return "", readErr
		}
		return "", fmt.Errorf("%w: approve requires pending, account is %s", ErrInvalidState, current.Status)
	}

	s.appendAudit(ctx, accountID, domain.AuditAccountApproved, map[string]any{
		"approved_by": adminID,
		"pin_widened": widened,
	})
	s.publish(ctx, func(events port.EventPublisher) error {
		return events.PublishAccountApproved(ctx, domain.AccountApprovedEvent{
			EventID:    uuid.NewString(),
			AccountID:  accountID,
			ApprovedBy: adminID,
			ApprovedAt: now,
			PinWidened: widened,
		})
	})

	return pin, nil
}

// Reject transitions a pending account to rejected, recording the reason.
func (s *AccessService) Reject(ctx context.Context, accountID, adminID, reason string) error {
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return err
	}

	if account.Status != domain.AccountStatusPending {
		return fmt.Errorf("%w: reject requires pending, account is %s", ErrInvalidState, account.Status)
	}

	now := s.now().UTC()
	ok, err := s.accounts.Reject(ctx, accountID, reason, now)
	if err != nil {
		return fmt.Errorf("reject account: %w", err)
	}
	if !ok {
		current, readErr := s.getAccount(ctx, accountID)
		if readErr != nil {
			return readErr
		}
		return fmt.Errorf("%w: reject requires pending, account is %s", ErrInvalidState, current.Status)
	}

	s.appendAudit(ctx, accountID, domain.AuditAccountRejected, map[string]any{
		"rejected_by": adminID,
		"reason":      reason,
	})
	s.publish(ctx, func(events port.EventPublisher) error {
		return events.PublishAccountRejected(ctx, domain.AccountRejectedEvent{
			EventID:    uuid.NewString(),
			AccountID:  accountID,
			RejectedBy: adminID,
			Reason:     reason,
			RejectedAt: now,
		})
	})

	return nil
}

// RegeneratePin rotates the credential for an already approved or active
// account, using the same uniqueness procedure as Approve.
func (s *AccessService) RegeneratePin(ctx context.Context, accountID, adminID string) (string, error) {
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return "", err
	}

	if !account.Status.CanAuthenticate() {
		return "", fmt.Errorf("%w: regenerate requires approved or active, account is %s", ErrInvalidState, account.Status)
	}

	pin, widened, err := s.mintUniquePin(ctx)
	if err != nil {
		return "", err
	}

	cred, err := deriveCredential(pin)
	if err != nil {
		return "", err
	}

	ok, err := s.accounts.SetCredential(ctx, accountID, account.Status, cred)
	if err != nil {
		return "", fmt.Errorf("set credential: %w", err)
	}
	if !ok {
		current, readErr := s.getAccount(ctx, accountID)
		if readErr != nil {
			return "", readErr
		}
		return "", fmt.Errorf("%w: regenerate requires approved or active, account is %s", ErrInvalidState, current.Status)
	}

	s.appendAudit(ctx, accountID, domain.AuditPinRegenerated, map[string]any{
		"requested_by": adminID,
		"pin_widened":  widened,
	})
	s.publish(ctx, func(events port.EventPublisher) error {
		return events.PublishPinRegenerated(ctx, domain.PinRegeneratedEvent{
			EventID:     uuid.NewString(),
			AccountID:   accountID,
			RequestedBy: adminID,
			RotatedAt:   s.now().UTC(),
			PinWidened:  widened,
		})
	})

	return pin, nil
}

// Revoke permanently disables PIN verification for the account. Revoking an
// already revoked account is a no-op, not an error.
func (s *AccessService) Revoke(ctx context.Context, accountID, adminID string) error {
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return err
	}

	alreadyRevoked := account.Status == domain.AccountStatusRevoked

	if err := s.accounts.Revoke(ctx, accountID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("revoke account: %w", err)
	}

	if alreadyRevoked {
		return nil
	}

	now := s.now().UTC()
	s.appendAudit(ctx, accountID, domain.AuditAccountRevoked, map[string]any{
		"revoked_by": adminID,
	})
	s.publish(ctx, func(events port.EventPublisher) error {
		return events.PublishAccountRevoked(ctx, domain.AccountRevokedEvent{
			EventID:   uuid.NewString(),
			AccountID: accountID,
			RevokedBy: adminID,
			RevokedAt: now,
		})
	})

	return nil
}

// GetAccount returns a sanitized account for admin views.
func (s *AccessService) GetAccount(ctx context.Context, accountID string) (domain.Account, error) {
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return domain.Account{}, err
	}
	return account.Sanitized(), nil
}

// ListAccounts returns sanitized accounts, optionally filtered by status.
func (s *AccessService) ListAccounts(ctx context.Context, statuses ...domain.AccountStatus) ([]domain.Account, error) {
	accounts, err := s.accounts.ListByStatus(ctx, statuses...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	sanitized := make([]domain.Account, 0, len(accounts))
	for _, account := range accounts {
		sanitized = append(sanitized, account.Sanitized())
	}
	return sanitized, nil
}

// AuditTrail returns the most recent audit entries for an account.
func (s *AccessService) AuditTrail(ctx context.Context, accountID string, limit int) ([]domain.AuditEntry, error) {
	if _, err := s.getAccount(ctx, accountID); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return nil, nil
	}
	return s.audit.ListByAccount(ctx, accountID, limit)
}

func (s *AccessService) getAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return account, nil
}

// mintUniquePin draws random candidates until one is unused by any account.
// When the retry budget runs out at the standard width the PIN is widened by
// one digit and the budget runs once more; exhausting that too is an error,
// never a silently accepted collision.
func (s *AccessService) mintUniquePin(ctx context.Context) (pin string, widened bool, err error) {
	widths := []int{security.MinPinLength, security.MinPinLength + 1}
	for i, length := range widths {
		for attempt := 0; attempt < s.mintAttempts; attempt++ {
			candidate, err := security.GenerateNumericCode(length)
			if err != nil {
				return "", false, fmt.Errorf("generate pin: %w", err)
			}

			inUse, err := s.accounts.PinInUse(ctx, security.HashToken(candidate), candidate)
			if err != nil {
				return "", false, fmt.Errorf("check pin uniqueness: %w", err)
			}
			if !inUse {
				return candidate, length > security.MinPinLength, nil
			}
		}

		// The widened pass has no next width to announce; its exhaustion is
		// surfaced as the error below.
		if i < len(widths)-1 {
			s.logger.Warn("pin retry budget exhausted, widening",
				zap.Int("length", length),
				zap.Int("attempts", s.mintAttempts),
			)
		}
	}

	return "", false, ErrPinSpaceExhausted
}

func deriveCredential(pin string) (port.CredentialUpdate, error) {
	hash, err := security.HashPin(pin)
	if err != nil {
		return port.CredentialUpdate{}, fmt.Errorf("hash pin: %w", err)
	}
	return port.CredentialUpdate{
		PinHash:   hash,
		PinLookup: security.HashToken(pin),
	}, nil
}

// appendAudit writes an audit record off the critical path; failures are
// logged and swallowed.
func (s *AccessService) appendAudit(ctx context.Context, accountID, action string, details map[string]any) {
	if s.audit == nil {
		return
	}

	entry := domain.AuditEntry{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Action:    action,
		Details:   details,
		CreatedAt: s.now().UTC(),
	}

	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("append audit entry failed",
			zap.String("account_id", accountID),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func (s *AccessService) publish(ctx context.Context, fn func(port.EventPublisher) error) {
	if s.events == nil {
		return
	}
	if err := fn(s.events); err != nil {
		s.logger.Warn("publish access event failed", zap.Error(err))
	}
}
