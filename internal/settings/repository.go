package settings

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pixeltask/backend/internal/models"
)

// Repository reads and writes the single platform_settings row. The table is
// seeded by the initial migration, so Get never sees an empty table.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

func (r *Repository) Get(ctx context.Context) (*models.PlatformSettings, error) {
	var cfg models.PlatformSettings
	err := r.pool.QueryRow(ctx, `
		SELECT commission_rate_bp, processing_fee_cents, payout_schedule,
			min_withdrawal_cents, min_task_price_cents, updated_at
		FROM platform_settings WHERE id = 1
	`).Scan(&cfg.CommissionRateBP, &cfg.ProcessingFeeCents, &cfg.PayoutSchedule,
		&cfg.MinWithdrawalCents, &cfg.MinTaskPriceCents, &cfg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *Repository) Save(ctx context.Context, cfg *models.PlatformSettings) error {
	cfg.UpdatedAt = time.Now()
	_, err := r.pool.Exec(ctx, `
		UPDATE platform_settings
		SET commission_rate_bp = $1, processing_fee_cents = $2, payout_schedule = $3,
			min_withdrawal_cents = $4, min_task_price_cents = $5, updated_at = $6
		WHERE id = 1
	`, cfg.CommissionRateBP, cfg.ProcessingFeeCents, cfg.PayoutSchedule,
		cfg.MinWithdrawalCents, cfg.MinTaskPriceCents, cfg.UpdatedAt)
	return err
}
