package reports

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pixeltask/backend/internal/models"
)

// Stats is the admin overview. All sums are in cents.
type Stats struct {
	TotalRevenueCents       int64 `json:"total_revenue_cents"`
	TotalCommissionCents    int64 `json:"total_commission_cents"`
	ActiveTransactionCount  int64 `json:"active_transaction_count"`
	PendingDisputeCount     int64 `json:"pending_dispute_count"`
	ActiveUserCount         int64 `json:"active_user_count"`
	PendingSubmissionCount  int64 `json:"pending_submission_count"`
	PendingPayoutCount      int64 `json:"pending_payout_count"`
	CompletedPayoutCents    int64 `json:"completed_payout_cents"`
}

// Repository serves read-only projections over the ledger and its satellites.
// Nothing here mutates state.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetStats aggregates the platform overview in one round trip per table.
// Revenue counts completed and refunded earnings: a refund produces its own
// compensating row, the original gross stays part of historical volume.
func (r *Repository) GetStats(ctx context.Context) (*Stats, error) {
	var s Stats
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(gross_cents) FILTER (WHERE kind = 'earning' AND status IN ('completed', 'refunded', 'disputed')), 0),
			COALESCE(SUM(commission_cents) FILTER (WHERE kind = 'earning' AND status IN ('completed', 'refunded', 'disputed')), 0),
			COUNT(*) FILTER (WHERE status = 'pending')
		FROM transactions
	`).Scan(&s.TotalRevenueCents, &s.TotalCommissionCents, &s.ActiveTransactionCount)
	if err != nil {
		return nil, err
	}
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM disputes WHERE status IN ('open', 'investigating')
	`).Scan(&s.PendingDisputeCount); err != nil {
		return nil, err
	}
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM users WHERE is_active AND role <> 'admin' AND NOT is_system
	`).Scan(&s.ActiveUserCount); err != nil {
		return nil, err
	}
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM submissions WHERE status = 'pending'
	`).Scan(&s.PendingSubmissionCount); err != nil {
		return nil, err
	}
	if err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COALESCE(SUM(amount_cents) FILTER (WHERE status = 'completed'), 0)
		FROM payouts
	`).Scan(&s.PendingPayoutCount, &s.CompletedPayoutCents); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListTransactionsByAccount returns every ledger entry where the account is
// payer or payee, newest first.
func (r *Repository) ListTransactionsByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Transaction, error) {
	return r.listTransactions(ctx, `
		SELECT id, payer_id, payee_id, task_id, submission_id, reversal_of,
			gross_cents, commission_cents, fee_cents, net_cents, kind, status, description, created_at, completed_at
		FROM transactions
		WHERE payer_id = $1 OR payee_id = $1
		ORDER BY created_at DESC
	`, accountID)
}

// ListTransactions returns ledger entries filtered by status and kind; empty
// filters match everything. Admin view.
func (r *Repository) ListTransactions(ctx context.Context, status, kind string) ([]*models.Transaction, error) {
	return r.listTransactions(ctx, `
		SELECT id, payer_id, payee_id, task_id, submission_id, reversal_of,
			gross_cents, commission_cents, fee_cents, net_cents, kind, status, description, created_at, completed_at
		FROM transactions
		WHERE ($1 = '' OR status = $1) AND ($2 = '' OR kind = $2)
		ORDER BY created_at DESC
	`, status, kind)
}

func (r *Repository) listTransactions(ctx context.Context, query string, args ...any) ([]*models.Transaction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.PayerID, &t.PayeeID, &t.TaskID, &t.SubmissionID, &t.ReversalOf,
			&t.GrossCents, &t.CommissionCents, &t.FeeCents, &t.NetCents, &t.Kind, &t.Status, &t.Description, &t.CreatedAt, &t.CompletedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
