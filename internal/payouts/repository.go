package payouts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pixeltask/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, p *models.Payout) error {
	return tx.QueryRow(ctx, `
		INSERT INTO payouts (id, worker_id, amount_cents, payment_method, payment_details, status, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, p.ID, p.WorkerID, p.AmountCents, p.PaymentMethod, p.PaymentDetails, p.Status, p.TransactionID).Scan(&p.CreatedAt)
}

func (r *Repository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Payout, error) {
	var p models.Payout
	err := tx.QueryRow(ctx, `
		SELECT id, worker_id, amount_cents, payment_method, payment_details, status, transaction_id,
			admin_notes, failure_reason, created_at, processed_at
		FROM payouts WHERE id = $1 FOR UPDATE
	`, id).Scan(&p.ID, &p.WorkerID, &p.AmountCents, &p.PaymentMethod, &p.PaymentDetails, &p.Status, &p.TransactionID,
		&p.AdminNotes, &p.FailureReason, &p.CreatedAt, &p.ProcessedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) Update(ctx context.Context, tx pgx.Tx, p *models.Payout) error {
	_, err := tx.Exec(ctx, `
		UPDATE payouts SET status = $2, admin_notes = $3, failure_reason = $4, processed_at = $5
		WHERE id = $1
	`, p.ID, p.Status, p.AdminNotes, p.FailureReason, p.ProcessedAt)
	return err
}

func (r *Repository) ListPendingIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM payouts WHERE status = 'pending' ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) ListByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.Payout, error) {
	return r.list(ctx, `
		SELECT id, worker_id, amount_cents, payment_method, payment_details, status, transaction_id,
			admin_notes, failure_reason, created_at, processed_at
		FROM payouts WHERE worker_id = $1 ORDER BY created_at DESC
	`, workerID)
}

// ListByStatus returns payouts filtered by status; an empty status returns all.
func (r *Repository) ListByStatus(ctx context.Context, status string) ([]*models.Payout, error) {
	if status == "" {
		return r.list(ctx, `
			SELECT id, worker_id, amount_cents, payment_method, payment_details, status, transaction_id,
				admin_notes, failure_reason, created_at, processed_at
			FROM payouts ORDER BY created_at DESC
		`)
	}
	return r.list(ctx, `
		SELECT id, worker_id, amount_cents, payment_method, payment_details, status, transaction_id,
			admin_notes, failure_reason, created_at, processed_at
		FROM payouts WHERE status = $1 ORDER BY created_at DESC
	`, status)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]*models.Payout, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Payout
	for rows.Next() {
		var p models.Payout
		if err := rows.Scan(&p.ID, &p.WorkerID, &p.AmountCents, &p.PaymentMethod, &p.PaymentDetails, &p.Status, &p.TransactionID,
			&p.AdminNotes, &p.FailureReason, &p.CreatedAt, &p.ProcessedAt); err != nil {
			return nil, err
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}
