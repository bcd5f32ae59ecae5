package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pixeltask/backend/internal/models"
)

// Repository is the pgx-backed AccountStore and TransactionStore.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var (
	_ AccountStore     = (*Repository)(nil)
	_ TransactionStore = (*Repository)(nil)
)

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Credit adds amount to the wallet and returns the new balance.
func (r *Repository) Credit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amountCents int64) (int64, error) {
	var newBalance int64
	err := tx.QueryRow(ctx, `
		UPDATE users SET balance_cents = balance_cents + $1, updated_at = now()
		WHERE id = $2
		RETURNING balance_cents
	`, amountCents, accountID).Scan(&newBalance)
	return newBalance, err
}

// Debit atomically deducts amount only when the balance covers it. The
// conditional WHERE makes the negative-balance check and the update one
// statement, so concurrent debits cannot both pass the check.
func (r *Repository) Debit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amountCents int64) (int64, error) {
	var newBalance int64
	err := tx.QueryRow(ctx, `
		UPDATE users SET balance_cents = balance_cents - $1, updated_at = now()
		WHERE id = $2 AND balance_cents >= $1
		RETURNING balance_cents
	`, amountCents, accountID).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrInsufficientFunds
	}
	return newBalance, err
}

func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO transactions (id, payer_id, payee_id, task_id, submission_id, reversal_of,
			gross_cents, commission_cents, fee_cents, net_cents, kind, status, description, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at
	`, t.ID, t.PayerID, t.PayeeID, t.TaskID, t.SubmissionID, t.ReversalOf,
		t.GrossCents, t.CommissionCents, t.FeeCents, t.NetCents, t.Kind, t.Status, t.Description, t.CompletedAt,
	).Scan(&t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && t.Kind == models.TxKindEarning {
			return ErrDuplicateSettlement
		}
		return err
	}
	return nil
}

func (r *Repository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Transaction, error) {
	var t models.Transaction
	err := tx.QueryRow(ctx, `
		SELECT id, payer_id, payee_id, task_id, submission_id, reversal_of,
			gross_cents, commission_cents, fee_cents, net_cents, kind, status, description, created_at, completed_at
		FROM transactions WHERE id = $1 FOR UPDATE
	`, id).Scan(&t.ID, &t.PayerID, &t.PayeeID, &t.TaskID, &t.SubmissionID, &t.ReversalOf,
		&t.GrossCents, &t.CommissionCents, &t.FeeCents, &t.NetCents, &t.Kind, &t.Status, &t.Description, &t.CreatedAt, &t.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateStatus transitions a ledger entry. Entries reaching completed get
// completed_at stamped here, so every completed transaction carries a
// non-null completion time no matter which path completed it.
func (r *Repository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	_, err := tx.Exec(ctx, `
		UPDATE transactions
		SET status = $2,
			completed_at = CASE WHEN $2 = 'completed' THEN COALESCE(completed_at, now()) ELSE completed_at END
		WHERE id = $1
	`, id, status)
	return err
}
