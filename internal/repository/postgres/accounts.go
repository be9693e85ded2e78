package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/domain"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/port"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/repository"
)

var accountColumns = []string{
	"id",
	"name",
	"email",
	"role",
	"status",
	"pin_code",
	"pin_hash",
	"pin_lookup",
	"created_at",
	"approved_at",
	"rejected_at",
	"rejection_reason",
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	repo := &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Create inserts a new account row.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	query := r.builder.Insert("crew.accounts").
		Columns(accountColumns...).
		Values(
			account.ID,
			account.Name,
			account.Email,
			account.Role,
			account.Status,
			account.PinCode,
			account.PinHash,
			account.PinLookup,
			account.CreatedAt,
			account.ApprovedAt,
			account.RejectedAt,
			account.RejectionReason,
		)

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("crew.accounts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	account, err := scanAccount(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	return account, nil
}

// GetByEmail retrieves an account by its unique email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("crew.accounts").
		Where(squirrel.Eq{"email": email}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account by email sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	account, err := scanAccount(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account by email: %w", err)
	}

	return account, nil
}

// ListByStatus returns accounts holding any of the provided statuses.
func (r *AccountRepository) ListByStatus(ctx context.Context, statuses ...domain.AccountStatus) ([]domain.Account, error) {
	query := r.builder.
		Select(accountColumns...).
		From("crew.accounts").
		OrderBy("created_at DESC")

	if len(statuses) > 0 {
		values := make([]string, 0, len(statuses))
		for _, status := range statuses {
			values = append(values, string(status))
		}
		query = query.Where(squirrel.Eq{"status": values})
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list accounts sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

// PinInUse reports whether any account already holds the candidate PIN,
// matching either the lookup digest or the legacy plaintext column.
func (r *AccountRepository) PinInUse(ctx context.Context, lookup string, plaintext string) (bool, error) {
	stmt, args, err := r.builder.
		Select("COUNT(*)").
		From("crew.accounts").
		Where(squirrel.Or{
			squirrel.Eq{"pin_lookup": lookup},
			squirrel.Eq{"pin_code": plaintext},
		}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build pin in use sql: %w", err)
	}

	var count int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("scan pin in use count: %w", err)
	}

	return count > 0, nil
}

// Approve transitions a pending account to approved and persists the derived
// credential. The write is conditioned on the status still being pending;
// a concurrent approval loses the race and sees false.
func (r *AccountRepository) Approve(ctx context.Context, id string, cred port.CredentialUpdate, at time.Time) (bool, error) {
	stmt, args, err := r.builder.Update("crew.accounts").
		Set("status", domain.AccountStatusApproved).
		Set("pin_hash", cred.PinHash).
		Set("pin_lookup", cred.PinLookup).
		Set("pin_code", nil).
		Set("approved_at", at).
		Where(squirrel.Eq{"id": id, "status": domain.AccountStatusPending}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build approve account sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("approve account: %w", err)
	}

	return ct.RowsAffected() > 0, nil
}

// Reject transitions a pending account to rejected, recording the reason.
func (r *AccountRepository) Reject(ctx context.Context, id string, reason string, at time.Time) (bool, error) {
	stmt, args, err := r.builder.Update("crew.accounts").
		Set("status", domain.AccountStatusRejected).
		Set("rejected_at", at).
		Set("rejection_reason", reason).
		Where(squirrel.Eq{"id": id, "status": domain.AccountStatusPending}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build reject account sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("reject account: %w", err)
	}

	return ct.RowsAffected() > 0, nil
}

// Revoke marks the account revoked. The write is unconditional so repeated
// calls converge on the same end state.
func (r *AccountRepository) Revoke(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update("crew.accounts").
		Set("status", domain.AccountStatusRevoked).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build revoke account sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("revoke account: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetCredential rotates the derived credential, conditioned on the account
// still holding the expected status.
func (r *AccountRepository) SetCredential(ctx context.Context, id string, expected domain.AccountStatus, cred port.CredentialUpdate) (bool, error) {
	stmt, args, err := r.builder.Update("crew.accounts").
		Set("pin_hash", cred.PinHash).
		Set("pin_lookup", cred.PinLookup).
		Set("pin_code", nil).
		Where(squirrel.Eq{"id": id, "status": expected}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build set credential sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("set credential: %w", err)
	}

	return ct.RowsAffected() > 0, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account         domain.Account
		pinCode         sql.NullString
		pinHash         sql.NullString
		pinLookup       sql.NullString
		approvedAt      *time.Time
		rejectedAt      *time.Time
		rejectionReason sql.NullString
	)

	if err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.Role,
		&account.Status,
		&pinCode,
		&pinHash,
		&pinLookup,
		&account.CreatedAt,
		&approvedAt,
		&rejectedAt,
		&rejectionReason,
	); err != nil {
		return nil, err
	}

	if pinCode.Valid {
		val := pinCode.String
		account.PinCode = &val
	}
	if pinHash.Valid {
		val := pinHash.String
		account.PinHash = &val
	}
	if pinLookup.Valid {
		val := pinLookup.String
		account.PinLookup = &val
	}
	account.ApprovedAt = approvedAt
	account.RejectedAt = rejectedAt
	if rejectionReason.Valid {
		val := rejectionReason.String
		account.RejectionReason = &val
	}

	return &account, nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
