package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/domain"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/port"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/repository"
)

var accountTestColumns = []string{
	"id", "name", "email", "role", "status", "pin_code", "pin_hash", "pin_lookup",
	"created_at", "approved_at", "rejected_at", "rejection_reason",
}

func TestAccountRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	createdAt := time.Now().UTC()
	account := domain.Account{
		ID:        "acc-1",
		Name:      "Mina Haddad",
		Email:     "mina@example.com",
		Role:      domain.RoleMember,
		Status:    domain.AccountStatusPending,
		CreatedAt: createdAt,
	}

	mock.ExpectExec(`INSERT INTO crew\.accounts`).
		WithArgs(
			account.ID,
			account.Name,
			account.Email,
			account.Role,
			account.Status,
			(*string)(nil),
			(*string)(nil),
			(*string)(nil),
			account.CreatedAt,
			(*time.Time)(nil),
			(*time.Time)(nil),
			(*string)(nil),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), account); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	createdAt := time.Now().UTC()
	approvedAt := createdAt.Add(time.Hour)
	pinHash := "$argon2id$v=19$m=65536,t=4,p=4$c2FsdA$aGFzaA"
	pinLookup := "deadbeef"

	rows := pgxmock.NewRows(accountTestColumns).AddRow(
		"acc-1", "Mina Haddad", "mina@example.com", domain.RoleMember, domain.AccountStatusApproved,
		nil, pinHash, pinLookup, createdAt, &approvedAt, nil, nil,
	)

	mock.ExpectQuery(`SELECT .*FROM crew\.accounts`).WithArgs("acc-1").WillReturnRows(rows)

	account, err := repo.GetByID(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if account.ID != "acc-1" {
		t.Fatalf("expected account id acc-1, got %s", account.ID)
	}
	if account.PinHash == nil || *account.PinHash != pinHash {
		t.Fatalf("expected pin hash populated")
	}
	if account.PinLookup == nil || *account.PinLookup != pinLookup {
		t.Fatalf("expected pin lookup populated")
	}
	if account.PinCode != nil {
		t.Fatalf("expected no legacy pin code")
	}
	if account.ApprovedAt == nil || !account.ApprovedAt.Equal(approvedAt) {
		t.Fatalf("expected approved_at to match")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_GetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	mock.ExpectQuery(`SELECT .*FROM crew\.accounts`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(accountTestColumns))

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_ListByStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	now := time.Now().UTC()
	rows := pgxmock.NewRows(accountTestColumns).
		AddRow("acc-1", "Mina", "mina@example.com", domain.RoleMember, domain.AccountStatusPending, nil, nil, nil, now, nil, nil, nil).
		AddRow("acc-2", "Jo", "jo@example.com", domain.RoleMember, domain.AccountStatusPending, nil, nil, nil, now.Add(-time.Hour), nil, nil, nil)

	mock.ExpectQuery(`SELECT .*FROM crew\.accounts WHERE status IN`).
		WithArgs("pending").
		WillReturnRows(rows)

	accounts, err := repo.ListByStatus(context.Background(), domain.AccountStatusPending)
	if err != nil {
		t.Fatalf("ListByStatus returned error: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_PinInUse(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM crew\.accounts`).
		WithArgs("lookup-digest", "483920").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))

	inUse, err := repo.PinInUse(context.Background(), "lookup-digest", "483920")
	if err != nil {
		t.Fatalf("PinInUse returned error: %v", err)
	}
	if !inUse {
		t.Fatalf("expected pin to be reported in use")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_ApproveConditionedOnPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	at := time.Now().UTC()
	cred := port.CredentialUpdate{PinHash: "hash", PinLookup: "lookup"}

	mock.ExpectExec(`UPDATE crew\.accounts SET`).
		WithArgs(domain.AccountStatusApproved, cred.PinHash, cred.PinLookup, nil, at, "acc-1", domain.AccountStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := repo.Approve(context.Background(), "acc-1", cred, at)
	if err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected approve to report a row updated")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_ApproveLostRace(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	at := time.Now().UTC()
	cred := port.CredentialUpdate{PinHash: "hash", PinLookup: "lookup"}

	mock.ExpectExec(`UPDATE crew\.accounts SET`).
		WithArgs(domain.AccountStatusApproved, cred.PinHash, cred.PinLookup, nil, at, "acc-1", domain.AccountStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := repo.Approve(context.Background(), "acc-1", cred, at)
	if err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected approve to report no rows updated")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_Reject(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	at := time.Now().UTC()

	mock.ExpectExec(`UPDATE crew\.accounts SET`).
		WithArgs(domain.AccountStatusRejected, at, "no room on the boat", "acc-1", domain.AccountStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := repo.Reject(context.Background(), "acc-1", "no room on the boat", at)
	if err != nil {
		t.Fatalf("Reject returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected reject to report a row updated")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_RevokeNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	mock.ExpectExec(`UPDATE crew\.accounts SET`).
		WithArgs(domain.AccountStatusRevoked, "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.Revoke(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_SetCredential(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	cred := port.CredentialUpdate{PinHash: "new-hash", PinLookup: "new-lookup"}

	mock.ExpectExec(`UPDATE crew\.accounts SET`).
		WithArgs(cred.PinHash, cred.PinLookup, nil, "acc-1", domain.AccountStatusActive).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := repo.SetCredential(context.Background(), "acc-1", domain.AccountStatusActive, cred)
	if err != nil {
		t.Fatalf("SetCredential returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected credential update to report a row updated")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
