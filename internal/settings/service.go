package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/pixeltask/backend/internal/models"
)

// ErrInvalidSettings wraps every validation failure on a settings update.
var ErrInvalidSettings = errors.New("invalid platform settings")

// Store reads and writes the platform settings singleton.
type Store interface {
	Get(ctx context.Context) (*models.PlatformSettings, error)
	Save(ctx context.Context, cfg *models.PlatformSettings) error
}

// UpdateParams is a partial update; nil fields keep their current value.
type UpdateParams struct {
	CommissionRateBP   *int32  `json:"commission_rate_bp"`
	ProcessingFeeCents *int64  `json:"processing_fee_cents"`
	PayoutSchedule     *string `json:"payout_schedule"`
	MinWithdrawalCents *int64  `json:"min_withdrawal_cents"`
	MinTaskPriceCents  *int64  `json:"min_task_price_cents"`
}

type Service interface {
	Get(ctx context.Context) (*models.PlatformSettings, error)
	Update(ctx context.Context, params UpdateParams) (*models.PlatformSettings, error)
}

type service struct {
	store Store
}

func NewService(store Store) Service {
	return &service{store: store}
}

var _ Service = (*service)(nil)

func (s *service) Get(ctx context.Context) (*models.PlatformSettings, error) {
	return s.store.Get(ctx)
}

// Update applies a partial update after validating the resulting settings as
// a whole. The combination check matters more than any single field: a legal
// rate plus a legal fee can still make the cheapest allowed task settle
// negative, and that combination is rejected here rather than at settlement
// time.
func (s *service) Update(ctx context.Context, params UpdateParams) (*models.PlatformSettings, error) {
	cfg, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}

	if params.CommissionRateBP != nil {
		cfg.CommissionRateBP = *params.CommissionRateBP
	}
	if params.ProcessingFeeCents != nil {
		cfg.ProcessingFeeCents = *params.ProcessingFeeCents
	}
	if params.PayoutSchedule != nil {
		cfg.PayoutSchedule = *params.PayoutSchedule
	}
	if params.MinWithdrawalCents != nil {
		cfg.MinWithdrawalCents = *params.MinWithdrawalCents
	}
	if params.MinTaskPriceCents != nil {
		cfg.MinTaskPriceCents = *params.MinTaskPriceCents
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *models.PlatformSettings) error {
	if cfg.CommissionRateBP < 0 || cfg.CommissionRateBP > 10000 {
		return fmt.Errorf("%w: commission rate must be between 0 and 10000 basis points", ErrInvalidSettings)
	}
	if cfg.ProcessingFeeCents < 0 {
		return fmt.Errorf("%w: processing fee cannot be negative", ErrInvalidSettings)
	}
	if !models.ValidPayoutSchedule(cfg.PayoutSchedule) {
		return fmt.Errorf("%w: unknown payout schedule %q", ErrInvalidSettings, cfg.PayoutSchedule)
	}
	if cfg.MinWithdrawalCents <= 0 {
		return fmt.Errorf("%w: minimum withdrawal must be positive", ErrInvalidSettings)
	}
	if cfg.MinTaskPriceCents <= 0 {
		return fmt.Errorf("%w: minimum task price must be positive", ErrInvalidSettings)
	}
	// The cheapest allowed task must still net the worker a non-negative
	// amount under the new rate and fee.
	commission := cfg.MinTaskPriceCents * int64(cfg.CommissionRateBP) / 10000
	if cfg.MinTaskPriceCents-commission-cfg.ProcessingFeeCents < 0 {
		return fmt.Errorf("%w: rate and fee would settle the minimum task price below zero", ErrInvalidSettings)
	}
	return nil
}
