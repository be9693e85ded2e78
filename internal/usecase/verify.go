package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/domain"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/port"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/infra/security"
)

const (
	defaultMaxFailures   = 5
	defaultLockoutWindow = 15 * time.Minute
)

var (
	// ErrPinMismatch indicates the candidate PIN matched no eligible account.
	// This is an expected, frequent outcome, never logged as an error.
	ErrPinMismatch = errors.New("pin does not match")
	// ErrLockedOut indicates the client exceeded the failed-attempt budget.
	ErrLockedOut = errors.New("too many failed attempts")
)

// LockedOutError carries the cool-down remaining before the client may retry.
type LockedOutError struct {
	RetryAfter time.Duration
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("too many failed attempts, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *LockedOutError) Unwrap() error { return ErrLockedOut }

// VerifyService is the PIN verification gate. It scans accounts in the
// authenticating set, matches the candidate against each account's credential
// variant, and enforces a sliding-window lockout per client.
type VerifyService struct {
	accounts    port.AccountRepository
	lockout     port.LockoutStore
	audit       port.AuditLog
	events      port.EventPublisher
	logger      *zap.Logger
	maxFailures int
	window      time.Duration
	now         func() time.Time
}

// NewVerifyService constructs a verification gate.
func NewVerifyService(accounts port.AccountRepository, lockout port.LockoutStore, audit port.AuditLog, events port.EventPublisher, logger *zap.Logger) *VerifyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerifyService{
		accounts:    accounts,
		lockout:     lockout,
		audit:       audit,
		events:      events,
		logger:      logger,
		maxFailures: defaultMaxFailures,
		window:      defaultLockoutWindow,
		now:         time.Now,
	}
}

// WithLockoutPolicy overrides the failed-attempt budget and window.
func (s *VerifyService) WithLockoutPolicy(maxFailures int, window time.Duration) *VerifyService {
	if maxFailures > 0 {
		s.maxFailures = maxFailures
	}
	if window > 0 {
		s.window = window
	}
	return s
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *VerifyService) WithClock(now func() time.Time) *VerifyService {
	if now != nil {
		s.now = now
	}
	return s
}

// VerifyPin resolves a candidate PIN to an account identity. The clientKey
// scopes the lockout counter (typically the caller's IP). The returned
// account is sanitized; credential material never leaves this method.
func (s *VerifyService) VerifyPin(ctx context.Context, clientKey, pin string) (domain.Account, error) {
	now := s.now().UTC()

	if locked, retryAfter := s.isLockedOut(ctx, clientKey, now); locked {
		return domain.Account{}, &LockedOutError{RetryAfter: retryAfter}
	}

	// Malformed candidates fail closed before any store access.
	if err := security.ValidatePin(pin); err != nil {
		s.recordFailure(ctx, clientKey, now)
		return domain.Account{}, ErrPinMismatch
	}

	accounts, err := s.accounts.ListByStatus(ctx, domain.AuthenticatingStatuses()...)
	if err != nil {
		return domain.Account{}, fmt.Errorf("list eligible accounts: %w", err)
	}

	for i := range accounts {
		account := accounts[i]

		cred, err := security.CredentialFor(account)
		if err != nil {
			// Unknown credential family: a migration bug worth surfacing,
			// but the account simply cannot authenticate.
			s.logger.Warn("account holds unsupported credential format",
				zap.String("account_id", account.ID),
				zap.Error(err),
			)
			continue
		}
		if cred == nil {
			continue
		}

		ok, err := cred.Match(pin)
		if err != nil {
			s.logger.Warn("credential match failed",
				zap.String("account_id", account.ID),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			continue
		}

		s.onVerified(ctx, account.ID, clientKey, now)
		return account.Sanitized(), nil
	}

	s.recordFailure(ctx, clientKey, now)
	return domain.Account{}, ErrPinMismatch
}

// isLockedOut checks the sliding window. Lockout store faults degrade open:
// a broken Redis must not lock every diver out of the trip board.
func (s *VerifyService) isLockedOut(ctx context.Context, clientKey string, now time.Time) (bool, time.Duration) {
	if s.lockout == nil || clientKey == "" {
		return false, 0
	}

	if err := s.lockout.TrimWindow(ctx, clientKey, s.window, now); err != nil {
		s.logger.Warn("trim lockout window failed", zap.Error(err))
		return false, 0
	}

	count, err := s.lockout.CountAttempts(ctx, clientKey, s.window, now)
	if err != nil {
		s.logger.Warn("count lockout attempts failed", zap.Error(err))
		return false, 0
	}

	if count < s.maxFailures {
		return false, 0
	}

	retryAfter := s.window
	if oldest, found, err := s.lockout.OldestAttempt(ctx, clientKey, s.window, now); err == nil && found {
		if remaining := oldest.Add(s.window).Sub(now); remaining > 0 {
			retryAfter = remaining
		}
	}

	return true, retryAfter
}

func (s *VerifyService) recordFailure(ctx context.Context, clientKey string, now time.Time) {
	if s.lockout == nil || clientKey == "" {
		return
	}
	if err := s.lockout.RecordAttempt(ctx, clientKey, now); err != nil {
		s.logger.Warn("record failed attempt failed", zap.Error(err))
	}
}

func (s *VerifyService) onVerified(ctx context.Context, accountID, clientKey string, now time.Time) {
	if s.lockout != nil && clientKey != "" {
		if err := s.lockout.Reset(ctx, clientKey); err != nil {
			s.logger.Warn("reset lockout counter failed", zap.Error(err))
		}
	}

	if s.audit != nil {
		entry := domain.AuditEntry{
			ID:        uuid.NewString(),
			AccountID: accountID,
			Action:    domain.AuditPinVerified,
			CreatedAt: now,
		}
		if err := s.audit.Append(ctx, entry); err != nil {
			s.logger.Warn("append verification audit failed",
				zap.String("account_id", accountID),
				zap.Error(err),
			)
		}
	}

	if s.events != nil {
		err := s.events.PublishPinVerified(ctx, domain.PinVerifiedEvent{
			EventID:    uuid.NewString(),
			AccountID:  accountID,
			VerifiedAt: now,
		})
		if err != nil {
			s.logger.Warn("publish verification event failed", zap.Error(err))
		}
	}
}
