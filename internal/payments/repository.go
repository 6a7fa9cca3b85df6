package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateTransaction indicates the client transaction identifier was
// already recorded, so the request is a replay.
var ErrDuplicateTransaction = errors.New("duplicate transaction")

// Repository persists transfer requests.
type Repository interface {
	Insert(ctx context.Context, req TransferRequest) error
}

// PostgresRepository stores transfer requests in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert records req unless its client transaction id already exists.
func (r *PostgresRepository) Insert(ctx context.Context, req TransferRequest) error {
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, `INSERT INTO transfer_requests
        (id, client_tx_id, call_id, caller, amount_cents, recipient_code, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (client_tx_id) DO NOTHING`,
		id, req.ClientTxID, req.CallID, req.Caller, req.AmountCents, req.RecipientCode, req.Status, req.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert transfer request: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicateTransaction
	}
	return nil
}
