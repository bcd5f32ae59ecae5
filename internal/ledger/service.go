package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pixeltask/backend/internal/models"
)

var (
	// ErrInvalidSettlement means commission + fee exceed the task price.
	ErrInvalidSettlement = errors.New("settlement would pay a negative amount")
	// ErrDuplicateSettlement means an earning transaction already exists for the submission.
	ErrDuplicateSettlement = errors.New("submission already settled")
	// ErrInsufficientFunds means a debit would push the wallet below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrAlreadyReversed means the transaction is already refunded or disputed.
	ErrAlreadyReversed = errors.New("transaction already reversed")
	// ErrNotFound means no transaction exists for the given id.
	ErrNotFound = errors.New("transaction not found")
)

// AccountStore mutates wallet balances. Balances are written only through the
// ledger; no other code path touches users.balance_cents.
type AccountStore interface {
	Credit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amountCents int64) (newBalance int64, err error)
	// Debit fails with ErrInsufficientFunds rather than let the balance go negative.
	Debit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amountCents int64) (newBalance int64, err error)
}

// TransactionStore persists immutable ledger entries.
type TransactionStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	// Insert fails with ErrDuplicateSettlement when an earning entry for the
	// same submission already exists.
	Insert(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Transaction, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error
}

type Service interface {
	SettleApprovedSubmission(ctx context.Context, tx pgx.Tx, sub *models.Submission, task *models.Task, cfg *models.PlatformSettings) (*models.Transaction, error)
	ReverseTransaction(ctx context.Context, transactionID uuid.UUID, reason string) (*models.Transaction, error)
}

type service struct {
	accounts AccountStore
	txs      TransactionStore
}

func NewService(accounts AccountStore, txs TransactionStore) Service {
	return &service{accounts: accounts, txs: txs}
}

var _ Service = (*service)(nil)

// Split is the commission/fee breakdown of a task price.
type Split struct {
	CommissionCents int64
	FeeCents        int64
	NetCents        int64
}

// ComputeSplit applies the commission rate (basis points, integer math,
// truncating toward zero) and the flat processing fee to a task price.
func ComputeSplit(priceCents int64, cfg *models.PlatformSettings) Split {
	commission := priceCents * int64(cfg.CommissionRateBP) / 10000
	return Split{
		CommissionCents: commission,
		FeeCents:        cfg.ProcessingFeeCents,
		NetCents:        priceCents - commission - cfg.ProcessingFeeCents,
	}
}

// SettleApprovedSubmission converts an approved submission into a worker
// credit plus one completed earning transaction. Runs inside the caller's
// transaction so the submission status flip and the money movement commit or
// roll back together. The earning entry is inserted before the credit: the
// unique submission constraint fires first, so a duplicate settlement leaves
// balances untouched.
func (s *service) SettleApprovedSubmission(ctx context.Context, tx pgx.Tx, sub *models.Submission, task *models.Task, cfg *models.PlatformSettings) (*models.Transaction, error) {
	split := ComputeSplit(task.PriceCents, cfg)
	if split.NetCents < 0 {
		return nil, ErrInvalidSettlement
	}

	now := time.Now()
	entry := &models.Transaction{
		ID:              uuid.New(),
		PayerID:         models.SystemPlatformAccountID,
		PayeeID:         sub.WorkerID,
		TaskID:          &task.ID,
		SubmissionID:    &sub.ID,
		GrossCents:      task.PriceCents,
		CommissionCents: split.CommissionCents,
		FeeCents:        split.FeeCents,
		NetCents:        split.NetCents,
		Kind:            models.TxKindEarning,
		Status:          models.TxStatusCompleted,
		Description:     fmt.Sprintf("Payment for task: %s", task.Title),
		CompletedAt:     &now,
	}
	if err := s.txs.Insert(ctx, tx, entry); err != nil {
		return nil, err
	}
	if _, err := s.accounts.Credit(ctx, tx, sub.WorkerID, split.NetCents); err != nil {
		return nil, err
	}
	return entry, nil
}

// ReverseTransaction undoes a completed earning transaction: it debits the
// payee by the original net amount, appends a compensating refund entry and
// marks the original refunded. Runs in its own transaction. A payee whose
// balance no longer covers the net amount blocks the reversal with
// ErrInsufficientFunds; the wallet never goes negative.
func (s *service) ReverseTransaction(ctx context.Context, transactionID uuid.UUID, reason string) (*models.Transaction, error) {
	tx, err := s.txs.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	orig, err := s.txs.GetByIDForUpdate(ctx, tx, transactionID)
	if err != nil {
		return nil, err
	}
	if orig.Kind != models.TxKindEarning {
		return nil, ErrInvalidSettlement
	}
	switch orig.Status {
	case models.TxStatusCompleted:
	case models.TxStatusRefunded, models.TxStatusDisputed:
		return nil, ErrAlreadyReversed
	default:
		return nil, ErrInvalidSettlement
	}

	if _, err := s.accounts.Debit(ctx, tx, orig.PayeeID, orig.NetCents); err != nil {
		return nil, err
	}

	now := time.Now()
	refund := &models.Transaction{
		ID:          uuid.New(),
		PayerID:     orig.PayeeID,
		PayeeID:     orig.PayerID,
		TaskID:      orig.TaskID,
		ReversalOf:  &orig.ID,
		GrossCents:  orig.NetCents,
		NetCents:    orig.NetCents,
		Kind:        models.TxKindRefund,
		Status:      models.TxStatusCompleted,
		Description: reason,
		CompletedAt: &now,
	}
	if err := s.txs.Insert(ctx, tx, refund); err != nil {
		return nil, err
	}
	if err := s.txs.UpdateStatus(ctx, tx, orig.ID, models.TxStatusRefunded); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return refund, nil
}
