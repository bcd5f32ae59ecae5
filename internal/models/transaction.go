package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TxKindEarning    = "earning"
	TxKindWithdrawal = "withdrawal"
	TxKindRefund     = "refund"
)

const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusDisputed  = "disputed"
	TxStatusRefunded  = "refunded"
	TxStatusCancelled = "cancelled"
)

// Transaction is an immutable ledger entry. Amounts are never updated after
// insert; a completed transaction is only ever status-transitioned to
// disputed/refunded, and any undo happens via a new compensating row
// referencing the original through ReversalOf.
type Transaction struct {
	ID              uuid.UUID  `json:"id"`
	PayerID         uuid.UUID  `json:"payer_id"`
	PayeeID         uuid.UUID  `json:"payee_id"`
	TaskID          *uuid.UUID `json:"task_id,omitempty"`
	SubmissionID    *uuid.UUID `json:"submission_id,omitempty"`
	ReversalOf      *uuid.UUID `json:"reversal_of,omitempty"`
	GrossCents      int64      `json:"gross_cents"`
	CommissionCents int64      `json:"commission_cents"`
	FeeCents        int64      `json:"fee_cents"`
	NetCents        int64      `json:"net_cents"`
	Kind            string     `json:"kind"`
	Status          string     `json:"status"`
	Description     string     `json:"description"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}
