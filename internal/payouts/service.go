package payouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pixeltask/backend/internal/ledger"
	"github.com/pixeltask/backend/internal/models"
)

var (
	// ErrBelowMinimum means the requested amount is under the platform minimum.
	ErrBelowMinimum = errors.New("amount below minimum withdrawal")
	// ErrBadPaymentMethod means the payment rail is not supported.
	ErrBadPaymentMethod = errors.New("unsupported payment method")
	// ErrInvalidStateTransition means the payout is terminal or the requested
	// edge is not in the state machine.
	ErrInvalidStateTransition = errors.New("invalid payout state transition")
	// ErrNotFound means no payout exists for the given id.
	ErrNotFound = errors.New("payout not found")
)

// Store persists payout rows.
type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Insert(ctx context.Context, tx pgx.Tx, p *models.Payout) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Payout, error)
	Update(ctx context.Context, tx pgx.Tx, p *models.Payout) error
	ListPendingIDs(ctx context.Context) ([]uuid.UUID, error)
}

// SettingsSource supplies the current platform settings.
type SettingsSource interface {
	Get(ctx context.Context) (*models.PlatformSettings, error)
}

type Service interface {
	Request(ctx context.Context, workerID uuid.UUID, amountCents int64, method, details string) (*models.Payout, error)
	UpdateStatus(ctx context.Context, payoutID uuid.UUID, newStatus string, note *string) (*models.Payout, error)
	PromotePending(ctx context.Context) (int, error)
}

type service struct {
	store    Store
	accounts ledger.AccountStore
	txs      ledger.TransactionStore
	settings SettingsSource
}

// NewService returns a payout service. Returns *service so the river worker
// can use it as a Promoter.
func NewService(store Store, accounts ledger.AccountStore, txs ledger.TransactionStore, settings SettingsSource) *service {
	return &service{store: store, accounts: accounts, txs: txs, settings: settings}
}

var _ Service = (*service)(nil)

// Request debits the worker's wallet (optimistic hold), creates a pending
// payout and a pending withdrawal transaction, all in one database
// transaction. On any failure nothing is persisted.
func (s *service) Request(ctx context.Context, workerID uuid.UUID, amountCents int64, method, details string) (*models.Payout, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !models.ValidPaymentMethod(method) {
		return nil, ErrBadPaymentMethod
	}
	if amountCents < cfg.MinWithdrawalCents {
		return nil, ErrBelowMinimum
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := s.accounts.Debit(ctx, tx, workerID, amountCents); err != nil {
		return nil, err
	}

	entry := &models.Transaction{
		ID:          uuid.New(),
		PayerID:     workerID,
		PayeeID:     models.SystemPlatformAccountID,
		GrossCents:  amountCents,
		NetCents:    amountCents,
		Kind:        models.TxKindWithdrawal,
		Status:      models.TxStatusPending,
		Description: fmt.Sprintf("Withdrawal request via %s", method),
	}
	if err := s.txs.Insert(ctx, tx, entry); err != nil {
		return nil, err
	}

	p := &models.Payout{
		ID:             uuid.New(),
		WorkerID:       workerID,
		AmountCents:    amountCents,
		PaymentMethod:  method,
		PaymentDetails: details,
		Status:         models.PayoutStatusPending,
		TransactionID:  entry.ID,
	}
	if err := s.store.Insert(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateStatus applies one edge of the payout state machine:
//
//	pending -> processing -> completed
//	pending/processing    -> failed
//
// The payout row is locked before the terminal check, so a double-click on
// "reject" credits the compensating refund exactly once. A failed payout
// credits the held amount back to the worker and cancels the withdrawal
// transaction; a completed payout only stamps processed_at (the wallet was
// already debited at request time).
func (s *service) UpdateStatus(ctx context.Context, payoutID uuid.UUID, newStatus string, note *string) (*models.Payout, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := s.store.GetByIDForUpdate(ctx, tx, payoutID)
	if err != nil {
		return nil, err
	}
	if models.PayoutTerminal(p.Status) {
		return nil, ErrInvalidStateTransition
	}

	now := time.Now()
	switch newStatus {
	case models.PayoutStatusProcessing:
		if p.Status != models.PayoutStatusPending {
			return nil, ErrInvalidStateTransition
		}
		p.Status = models.PayoutStatusProcessing
	case models.PayoutStatusCompleted:
		p.Status = models.PayoutStatusCompleted
		p.ProcessedAt = &now
		if err := s.txs.UpdateStatus(ctx, tx, p.TransactionID, models.TxStatusCompleted); err != nil {
			return nil, err
		}
	case models.PayoutStatusFailed:
		p.Status = models.PayoutStatusFailed
		p.ProcessedAt = &now
		p.FailureReason = note
		// Compensating credit: the worker gets their own held funds back,
		// so this never fails on balance grounds.
		if _, err := s.accounts.Credit(ctx, tx, p.WorkerID, p.AmountCents); err != nil {
			return nil, err
		}
		if err := s.txs.UpdateStatus(ctx, tx, p.TransactionID, models.TxStatusCancelled); err != nil {
			return nil, err
		}
	default:
		return nil, ErrInvalidStateTransition
	}
	if note != nil {
		p.AdminNotes = note
	}

	if err := s.store.Update(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// PromotePending moves every pending payout to processing. Used by the
// admin "process all" action via the river job. Payouts that raced into a
// terminal state are skipped.
func (s *service) PromotePending(ctx context.Context) (int, error) {
	ids, err := s.store.ListPendingIDs(ctx)
	if err != nil {
		return 0, err
	}
	promoted := 0
	for _, id := range ids {
		if _, err := s.UpdateStatus(ctx, id, models.PayoutStatusProcessing, nil); err != nil {
			if errors.Is(err, ErrInvalidStateTransition) || errors.Is(err, ErrNotFound) {
				continue
			}
			return promoted, err
		}
		promoted++
	}
	return promoted, nil
}
