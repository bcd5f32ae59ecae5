package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PayoutStatusPending    = "pending"
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusFailed     = "failed"
)

// PayoutTerminal reports whether a payout status admits no further transitions.
func PayoutTerminal(status string) bool {
	return status == PayoutStatusCompleted || status == PayoutStatusFailed
}

const (
	PaymentMethodJazzCash  = "jazzcash"
	PaymentMethodEasypaisa = "easypaisa"
	PaymentMethodPaytm     = "paytm"
	PaymentMethodUSDT      = "usdt"
)

// ValidPaymentMethod reports whether m is a supported payment rail.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodJazzCash, PaymentMethodEasypaisa, PaymentMethodPaytm, PaymentMethodUSDT:
		return true
	}
	return false
}

// Payout is a worker cash-out request. The wallet is debited at request time
// (optimistic hold); a failed payout credits the amount back exactly once.
type Payout struct {
	ID             uuid.UUID  `json:"id"`
	WorkerID       uuid.UUID  `json:"worker_id"`
	AmountCents    int64      `json:"amount_cents"`
	PaymentMethod  string     `json:"payment_method"`
	PaymentDetails string     `json:"payment_details"`
	Status         string     `json:"status"`
	TransactionID  uuid.UUID  `json:"transaction_id"`
	AdminNotes     *string    `json:"admin_notes,omitempty"`
	FailureReason  *string    `json:"failure_reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
}
