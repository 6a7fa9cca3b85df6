package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no account exists for a caller.
var ErrNotFound = errors.New("account not found")

// Repository persists accounts keyed by caller identity.
type Repository interface {
	FindByCaller(ctx context.Context, caller string) (Account, error)
	Upsert(ctx context.Context, acct Account) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed account repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindByCaller fetches the account registered for caller.
func (r *PostgresRepository) FindByCaller(ctx context.Context, caller string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT caller, member_id, pin_hash, confirmation_code, created_at
        FROM accounts WHERE caller = $1`, caller)
	var (
		acct      Account
		code      *string
		createdAt time.Time
	)
	if err := row.Scan(&acct.Caller, &acct.MemberID, &acct.PINHash, &code, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("find account: %w", err)
	}
	if code != nil {
		acct.ConfirmationCode = *code
	}
	acct.CreatedAt = createdAt.UTC()
	return acct, nil
}

// Upsert creates the account or replaces the credential of an existing one.
// The original creation time is kept on replacement.
func (r *PostgresRepository) Upsert(ctx context.Context, acct Account) error {
	_, err := r.db.Exec(ctx, `INSERT INTO accounts (caller, member_id, pin_hash, confirmation_code, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (caller) DO UPDATE SET
            member_id = EXCLUDED.member_id,
            pin_hash = EXCLUDED.pin_hash,
            confirmation_code = EXCLUDED.confirmation_code`,
		acct.Caller, acct.MemberID, acct.PINHash, acct.ConfirmationCode, acct.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}
