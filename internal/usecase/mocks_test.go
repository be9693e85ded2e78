package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/domain"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/port"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/repository"
)

// mockAccountRepository is an in-memory port.AccountRepository with
// per-method call counters and injectable failures.
type mockAccountRepository struct {
	mu       sync.Mutex
	accounts map[string]domain.Account

	createErr   error
	createCalls int

	pinInUseCalls  int
	pinInUseErr    error
	usedPins       map[string]bool
	pinInUseAlways int // report in-use for the first N calls

	approveCalls int
	approveErr   error

	rejectCalls int
	rejectErr   error

	revokeCalls int
	revokeErr   error

	setCredentialCalls int
	setCredentialErr   error

	listErr error
}

func newMockAccountRepository() *mockAccountRepository {
	return &mockAccountRepository{
		accounts: make(map[string]domain.Account),
		usedPins: make(map[string]bool),
	}
}

func (m *mockAccountRepository) put(account domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
}

func (m *mockAccountRepository) get(id string) domain.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[id]
}

func (m *mockAccountRepository) Create(_ context.Context, account domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	m.accounts[account.ID] = account
	return nil
}

func (m *mockAccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := account
	return &copy, nil
}

func (m *mockAccountRepository) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *domain.Account
	for id := range m.accounts {
		account := m.accounts[id]
		if account.Email != email {
			continue
		}
		if latest == nil || account.CreatedAt.After(latest.CreatedAt) {
			copy := account
			latest = &copy
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (m *mockAccountRepository) ListByStatus(_ context.Context, statuses ...domain.AccountStatus) ([]domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	wanted := make(map[domain.AccountStatus]bool, len(statuses))
	for _, status := range statuses {
		wanted[status] = true
	}
	out := make([]domain.Account, 0)
	for _, account := range m.accounts {
		if len(wanted) == 0 || wanted[account.Status] {
			out = append(out, account)
		}
	}
	return out, nil
}

func (m *mockAccountRepository) PinInUse(_ context.Context, lookup string, plaintext string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pinInUseCalls++
	if m.pinInUseErr != nil {
		return false, m.pinInUseErr
	}
	if m.pinInUseAlways > 0 {
		m.pinInUseAlways--
		return true, nil
	}
	return m.usedPins[lookup] || m.usedPins[plaintext], nil
}

func (m *mockAccountRepository) Approve(_ context.Context, id string, cred port.CredentialUpdate, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approveCalls++
	if m.approveErr != nil {
		return false, m.approveErr
	}
	account, ok := m.accounts[id]
	if !ok || account.Status != domain.AccountStatusPending {
		return false, nil
	}
	account.Status = domain.AccountStatusApproved
	account.PinHash = &cred.PinHash
	account.PinLookup = &cred.PinLookup
	account.PinCode = nil
	approvedAt := at
	account.ApprovedAt = &approvedAt
	m.accounts[id] = account
	return true, nil
}

func (m *mockAccountRepository) Reject(_ context.Context, id string, reason string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectCalls++
	if m.rejectErr != nil {
		return false, m.rejectErr
	}
	account, ok := m.accounts[id]
	if !ok || account.Status != domain.AccountStatusPending {
		return false, nil
	}
	account.Status = domain.AccountStatusRejected
	rejectedAt := at
	account.RejectedAt = &rejectedAt
	account.RejectionReason = &reason
	m.accounts[id] = account
	return true, nil
}

func (m *mockAccountRepository) Revoke(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revokeCalls++
	if m.revokeErr != nil {
		return m.revokeErr
	}
	account, ok := m.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.Status = domain.AccountStatusRevoked
	m.accounts[id] = account
	return nil
}

func (m *mockAccountRepository) SetCredential(_ context.Context, id string, expected domain.AccountStatus, cred port.CredentialUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCredentialCalls++
	if m.setCredentialErr != nil {
		return false, m.setCredentialErr
	}
	account, ok := m.accounts[id]
	if !ok || account.Status != expected {
		return false, nil
	}
	account.PinHash = &cred.PinHash
	account.PinLookup = &cred.PinLookup
	account.PinCode = nil
	m.accounts[id] = account
	return true, nil
}

var _ port.AccountRepository = (*mockAccountRepository)(nil)

// mockAuditLog records appended entries in memory.
type mockAuditLog struct {
	mu        sync.Mutex
	entries   []domain.AuditEntry
	appendErr error
}

func (m *mockAuditLog) Append(_ context.Context, entry domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditLog) ListByAccount(_ context.Context, accountID string, limit int) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditEntry, 0)
	for _, entry := range m.entries {
		if entry.AccountID == accountID {
			out = append(out, entry)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockAuditLog) actions(accountID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0)
	for _, entry := range m.entries {
		if entry.AccountID == accountID {
			out = append(out, entry.Action)
		}
	}
	return out
}

var _ port.AuditLog = (*mockAuditLog)(nil)

// mockEventPublisher counts published events by type.
type mockEventPublisher struct {
	mu        sync.Mutex
	published map[string]int
}

func newMockEventPublisher() *mockEventPublisher {
	return &mockEventPublisher{published: make(map[string]int)}
}

func (m *mockEventPublisher) count(eventType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.published[eventType]
}

func (m *mockEventPublisher) record(eventType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[eventType]++
	return nil
}

func (m *mockEventPublisher) PublishAccessRequested(_ context.Context, _ domain.AccessRequestedEvent) error {
	return m.record("access_requested")
}

func (m *mockEventPublisher) PublishAccountApproved(_ context.Context, _ domain.AccountApprovedEvent) error {
	return m.record("account_approved")
}

func (m *mockEventPublisher) PublishAccountRejected(_ context.Context, _ domain.AccountRejectedEvent) error {
	return m.record("account_rejected")
}

func (m *mockEventPublisher) PublishPinRegenerated(_ context.Context, _ domain.PinRegeneratedEvent) error {
	return m.record("pin_regenerated")
}

func (m *mockEventPublisher) PublishAccountRevoked(_ context.Context, _ domain.AccountRevokedEvent) error {
	return m.record("account_revoked")
}

func (m *mockEventPublisher) PublishPinVerified(_ context.Context, _ domain.PinVerifiedEvent) error {
	return m.record("pin_verified")
}

var _ port.EventPublisher = (*mockEventPublisher)(nil)

// mockLockoutStore is an in-memory sliding window.
type mockLockoutStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	resets   int
}

func newMockLockoutStore() *mockLockoutStore {
	return &mockLockoutStore{attempts: make(map[string][]time.Time)}
}

func (m *mockLockoutStore) TrimWindow(_ context.Context, identifier string, window time.Duration, reference time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := make([]time.Time, 0)
	for _, at := range m.attempts[identifier] {
		if !at.Before(reference.Add(-window)) {
			kept = append(kept, at)
		}
	}
	m.attempts[identifier] = kept
	return nil
}

func (m *mockLockoutStore) CountAttempts(_ context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, at := range m.attempts[identifier] {
		if !at.Before(reference.Add(-window)) && !at.After(reference) {
			count++
		}
	}
	return count, nil
}

func (m *mockLockoutStore) RecordAttempt(_ context.Context, identifier string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[identifier] = append(m.attempts[identifier], at)
	return nil
}

func (m *mockLockoutStore) OldestAttempt(_ context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest time.Time
	found := false
	for _, at := range m.attempts[identifier] {
		if at.Before(reference.Add(-window)) || at.After(reference) {
			continue
		}
		if !found || at.Before(oldest) {
			oldest = at
			found = true
		}
	}
	return oldest, found, nil
}

func (m *mockLockoutStore) Reset(_ context.Context, identifier string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	delete(m.attempts, identifier)
	return nil
}

var _ port.LockoutStore = (*mockLockoutStore)(nil)

// mockSessionStore is an in-memory port.SessionStore.
type mockSessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	saveErr  error
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]domain.Session)}
}

func (m *mockSessionStore) Save(_ context.Context, session domain.Session, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := session
	return &copy, nil
}

func (m *mockSessionStore) Touch(_ context.Context, id string, at time.Time, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	session.LastSeen = at
	m.sessions[id] = session
	return nil
}

func (m *mockSessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

var _ port.SessionStore = (*mockSessionStore)(nil)
