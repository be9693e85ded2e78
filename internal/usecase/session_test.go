package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/domain"
)

func newSessionFixture(t *testing.T) (*SessionService, *mockSessionStore, *mockLockoutStore) {
	t.Helper()
	store := newMockSessionStore()
	lockout := newMockLockoutStore()
	svc := NewSessionService(store, lockout, []byte("test-session-secret"), "crew-core", time.Hour, zaptest.NewLogger(t))
	return svc, store, lockout
}

func verifiedAccount() domain.Account {
	return domain.Account{
		ID:     "acc-1",
		Name:   "Ana Kovac",
		Email:  "ana@example.com",
		Role:   domain.RoleMember,
		Status: domain.AccountStatusActive,
	}
}

func TestLoginIssuesResolvableToken(t *testing.T) {
	svc, store, _ := newSessionFixture(t)

	token, session, err := svc.Login(context.Background(), verifiedAccount())
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token == "" {
		t.Fatal("Login() returned empty token")
	}
	if session.AccountID != "acc-1" {
		t.Errorf("session AccountID = %q, want acc-1", session.AccountID)
	}
	if _, ok := store.sessions[session.ID]; !ok {
		t.Error("session not persisted in store")
	}

	current, err := svc.Current(context.Background(), token)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if current.ID != session.ID {
		t.Errorf("Current() session ID = %q, want %q", current.ID, session.ID)
	}
	if current.Email != "ana@example.com" || current.Role != domain.RoleMember {
		t.Errorf("Current() identity = (%q, %q), want original account identity", current.Email, current.Role)
	}
}

func TestLoginRequiresAccountID(t *testing.T) {
	svc, _, _ := newSessionFixture(t)

	if _, _, err := svc.Login(context.Background(), domain.Account{}); err == nil {
		t.Error("Login() with empty account succeeded, want error")
	}
}

func TestCurrentSlidesTTL(t *testing.T) {
	svc, store, _ := newSessionFixture(t)
	base := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	current := base
	svc.WithClock(func() time.Time { return current })

	token, session, err := svc.Login(context.Background(), verifiedAccount())
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	current = base.Add(30 * time.Minute)
	resolved, err := svc.Current(context.Background(), token)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if !resolved.LastSeen.Equal(current) {
		t.Errorf("LastSeen = %s, want touched to %s", resolved.LastSeen, current)
	}
	if stored := store.sessions[session.ID]; !stored.LastSeen.Equal(current) {
		t.Errorf("stored LastSeen = %s, want %s", stored.LastSeen, current)
	}
}

func TestCurrentRejectsGarbageTokens(t *testing.T) {
	svc, _, _ := newSessionFixture(t)

	for _, token := range []string{"", "   ", "not-a-jwt", "aaa.bbb.ccc"} {
		if _, err := svc.Current(context.Background(), token); !errors.Is(err, ErrInvalidSessionToken) {
			t.Errorf("Current(%q) error = %v, want ErrInvalidSessionToken", token, err)
		}
	}
}

func TestCurrentRejectsForeignSignature(t *testing.T) {
	svc, store, _ := newSessionFixture(t)
	other := NewSessionService(store, nil, []byte("different-secret"), "crew-core", time.Hour, zaptest.NewLogger(t))

	token, _, err := other.Login(context.Background(), verifiedAccount())
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if _, err := svc.Current(context.Background(), token); !errors.Is(err, ErrInvalidSessionToken) {
		t.Errorf("Current() with foreign signature error = %v, want ErrInvalidSessionToken", err)
	}
}

func TestCurrentAfterStoreExpiry(t *testing.T) {
	svc, store, _ := newSessionFixture(t)

	token, session, err := svc.Login(context.Background(), verifiedAccount())
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	// Store-side eviction wins over a still-valid token.
	delete(store.sessions, session.ID)

	if _, err := svc.Current(context.Background(), token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Current() after eviction error = %v, want ErrSessionExpired", err)
	}
}

func TestCurrentAfterTokenExpiry(t *testing.T) {
	svc, store, _ := newSessionFixture(t)

	// Claims carry the absolute expiry and the parser checks wall-clock
	// time, so mint a token whose lifetime already lapsed.
	expired := NewSessionService(store, nil, []byte("test-session-secret"), "crew-core", time.Hour, zaptest.NewLogger(t))
	expired.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	token, _, err := expired.Login(context.Background(), verifiedAccount())
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if _, err := svc.Current(context.Background(), token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Current() with expired token error = %v, want ErrSessionExpired", err)
	}
}

func TestLogoutDestroysSessionAndClearsLockout(t *testing.T) {
	svc, store, lockout := newSessionFixture(t)

	token, session, err := svc.Login(context.Background(), verifiedAccount())
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := lockout.RecordAttempt(context.Background(), "10.0.0.1", time.Now().UTC()); err != nil {
		t.Fatalf("RecordAttempt() error = %v", err)
	}

	if err := svc.Logout(context.Background(), token, "10.0.0.1"); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	if _, ok := store.sessions[session.ID]; ok {
		t.Error("session still present after logout")
	}
	if lockout.resets != 1 {
		t.Errorf("lockout resets = %d, want 1", lockout.resets)
	}

	if _, err := svc.Current(context.Background(), token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Current() after logout error = %v, want ErrSessionExpired", err)
	}
}

func TestLogoutTwiceIsNotAnError(t *testing.T) {
	svc, _, _ := newSessionFixture(t)

	token, _, err := svc.Login(context.Background(), verifiedAccount())
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := svc.Logout(context.Background(), token, ""); err != nil {
		t.Fatalf("first Logout() error = %v", err)
	}
	if err := svc.Logout(context.Background(), token, ""); err != nil {
		t.Fatalf("second Logout() error = %v", err)
	}
}
