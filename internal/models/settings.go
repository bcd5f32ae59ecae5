package models

import "time"

const (
	PayoutScheduleDaily   = "daily"
	PayoutScheduleWeekly  = "weekly"
	PayoutScheduleMonthly = "monthly"
)

// ValidPayoutSchedule reports whether s is a known payout schedule.
func ValidPayoutSchedule(s string) bool {
	switch s {
	case PayoutScheduleDaily, PayoutScheduleWeekly, PayoutScheduleMonthly:
		return true
	}
	return false
}

// PlatformSettings is a singleton row. The commission rate is stored in basis
// points (500 = 5.00%) so settlement math stays in integers. A rate change
// applies only to settlements after the update, never retroactively.
type PlatformSettings struct {
	CommissionRateBP   int32     `json:"commission_rate_bp"`
	ProcessingFeeCents int64     `json:"processing_fee_cents"`
	PayoutSchedule     string    `json:"payout_schedule"`
	MinWithdrawalCents int64     `json:"min_withdrawal_cents"`
	MinTaskPriceCents  int64     `json:"min_task_price_cents"`
	UpdatedAt          time.Time `json:"updated_at"`
}
