package payouts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pixeltask/backend/internal/ledger"
	"github.com/pixeltask/backend/internal/models"
	"github.com/pixeltask/backend/internal/testutil"
)

// ---------------------------------------------------------------------------
// In-memory mocks. The wallet mock enforces the no-negative-balance rule so
// the hold/compensation flow is tested against real debit semantics.
// ---------------------------------------------------------------------------

type mockWallet struct {
	mu       sync.Mutex
	balances map[uuid.UUID]int64
}

func newMockWallet() *mockWallet {
	return &mockWallet{balances: make(map[uuid.UUID]int64)}
}

func (m *mockWallet) Credit(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[id] += amount
	return m.balances[id], nil
}

func (m *mockWallet) Debit(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[id] < amount {
		return 0, ledger.ErrInsufficientFunds
	}
	m.balances[id] -= amount
	return m.balances[id], nil
}

func (m *mockWallet) balance(id uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[id]
}

// ---

type mockLedger struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*models.Transaction
}

func newMockLedger() *mockLedger {
	return &mockLedger{entries: make(map[uuid.UUID]*models.Transaction)}
}

func (m *mockLedger) Begin(context.Context) (pgx.Tx, error) { return testutil.NoopTx{}, nil }

func (m *mockLedger) Insert(_ context.Context, _ pgx.Tx, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.entries[t.ID] = &cp
	return nil
}

func (m *mockLedger) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockLedger) UpdateStatus(_ context.Context, _ pgx.Tx, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return ledger.ErrNotFound
	}
	e.Status = status
	if status == models.TxStatusCompleted && e.CompletedAt == nil {
		now := time.Now()
		e.CompletedAt = &now
	}
	return nil
}

func (m *mockLedger) status(id uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id]; ok {
		return e.Status
	}
	return ""
}

func (m *mockLedger) get(id uuid.UUID) *models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[id]
}

// ---

type mockPayouts struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.Payout
}

func newMockPayouts() *mockPayouts {
	return &mockPayouts{rows: make(map[uuid.UUID]*models.Payout)}
}

func (m *mockPayouts) Begin(context.Context) (pgx.Tx, error) { return testutil.NoopTx{}, nil }

func (m *mockPayouts) Insert(_ context.Context, _ pgx.Tx, p *models.Payout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

func (m *mockPayouts) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPayouts) Update(_ context.Context, _ pgx.Tx, p *models.Payout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

func (m *mockPayouts) ListPendingIDs(context.Context) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for id, p := range m.rows {
		if p.Status == models.PayoutStatusPending {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *mockPayouts) get(id uuid.UUID) *models.Payout {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id]
}

// ---

type fixedSettings struct {
	cfg models.PlatformSettings
}

func (f *fixedSettings) Get(context.Context) (*models.PlatformSettings, error) {
	cp := f.cfg
	return &cp, nil
}

func newTestService() (*service, *mockWallet, *mockLedger, *mockPayouts) {
	wallet := newMockWallet()
	entries := newMockLedger()
	store := newMockPayouts()
	settings := &fixedSettings{cfg: models.PlatformSettings{
		CommissionRateBP:   500,
		ProcessingFeeCents: 30,
		MinWithdrawalCents: 300,
		MinTaskPriceCents:  2,
	}}
	return NewService(store, wallet, entries, settings), wallet, entries, store
}

// ---------------------------------------------------------------------------
// 1. TestRequest_HoldAndCompensation
//    Full round trip: a held amount comes back when the payout fails, and a
//    failed payout is terminal.
// ---------------------------------------------------------------------------

func TestRequest_HoldAndCompensation(t *testing.T) {
	svc, wallet, entries, store := newTestService()
	worker := uuid.New()
	ctx := context.Background()
	wallet.Credit(ctx, nil, worker, 920)

	p, err := svc.Request(ctx, worker, 500, models.PaymentMethodJazzCash, "0300-1234567")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if got := wallet.balance(worker); got != 420 {
		t.Errorf("balance after hold: got %d, want 420", got)
	}
	if p.Status != models.PayoutStatusPending {
		t.Errorf("payout status: got %q, want pending", p.Status)
	}
	if entries.status(p.TransactionID) != models.TxStatusPending {
		t.Errorf("withdrawal transaction should be pending")
	}

	reason := "invalid wallet number"
	failed, err := svc.UpdateStatus(ctx, p.ID, models.PayoutStatusFailed, &reason)
	if err != nil {
		t.Fatalf("fail payout: %v", err)
	}
	if got := wallet.balance(worker); got != 920 {
		t.Errorf("balance after compensation: got %d, want 920", got)
	}
	if failed.FailureReason == nil || *failed.FailureReason != reason {
		t.Error("failed payout must record the failure reason")
	}
	if failed.ProcessedAt == nil {
		t.Error("failed payout must stamp processed_at")
	}
	if entries.status(p.TransactionID) != models.TxStatusCancelled {
		t.Errorf("withdrawal transaction: got %q, want cancelled", entries.status(p.TransactionID))
	}

	// Terminal: no further transitions, and no second compensation.
	if _, err := svc.UpdateStatus(ctx, p.ID, models.PayoutStatusCompleted, nil); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("transition from failed: got %v, want ErrInvalidStateTransition", err)
	}
	if got := wallet.balance(worker); got != 920 {
		t.Errorf("balance after rejected transition: got %d, want 920", got)
	}
	if store.get(p.ID).Status != models.PayoutStatusFailed {
		t.Error("payout must stay failed")
	}
}

// ---------------------------------------------------------------------------
// 2. TestRequest_BelowMinimum
// ---------------------------------------------------------------------------

func TestRequest_BelowMinimum(t *testing.T) {
	svc, wallet, _, _ := newTestService()
	worker := uuid.New()
	ctx := context.Background()
	wallet.Credit(ctx, nil, worker, 1000)

	if _, err := svc.Request(ctx, worker, 299, models.PaymentMethodEasypaisa, "0345-7654321"); !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("299 cents: got %v, want ErrBelowMinimum", err)
	}
	if got := wallet.balance(worker); got != 1000 {
		t.Errorf("balance must be untouched, got %d", got)
	}
	if _, err := svc.Request(ctx, worker, 300, models.PaymentMethodEasypaisa, "0345-7654321"); err != nil {
		t.Fatalf("300 cents at the boundary: %v", err)
	}
}

// ---------------------------------------------------------------------------
// 3. TestRequest_InsufficientFunds
//    A failed hold leaves no payout row and no ledger entry.
// ---------------------------------------------------------------------------

func TestRequest_InsufficientFunds(t *testing.T) {
	svc, wallet, entries, store := newTestService()
	worker := uuid.New()
	ctx := context.Background()
	wallet.Credit(ctx, nil, worker, 400)

	if _, err := svc.Request(ctx, worker, 500, models.PaymentMethodPaytm, "worker@upi"); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}
	if got := wallet.balance(worker); got != 400 {
		t.Errorf("balance: got %d, want 400", got)
	}
	if n := len(store.rows); n != 0 {
		t.Errorf("payout rows: got %d, want 0", n)
	}
	if n := len(entries.entries); n != 0 {
		t.Errorf("ledger entries: got %d, want 0", n)
	}
}

// ---------------------------------------------------------------------------
// 4. TestRequest_BadPaymentMethod
// ---------------------------------------------------------------------------

func TestRequest_BadPaymentMethod(t *testing.T) {
	svc, wallet, _, _ := newTestService()
	worker := uuid.New()
	ctx := context.Background()
	wallet.Credit(ctx, nil, worker, 1000)

	if _, err := svc.Request(ctx, worker, 500, "paypal", "someone@example.com"); !errors.Is(err, ErrBadPaymentMethod) {
		t.Fatalf("got %v, want ErrBadPaymentMethod", err)
	}
}

// ---------------------------------------------------------------------------
// 5. TestUpdateStatus_CompletedFlow
//    pending -> processing -> completed; the wallet stays debited and the
//    withdrawal transaction completes.
// ---------------------------------------------------------------------------

func TestUpdateStatus_CompletedFlow(t *testing.T) {
	svc, wallet, entries, _ := newTestService()
	worker := uuid.New()
	ctx := context.Background()
	wallet.Credit(ctx, nil, worker, 1000)

	p, err := svc.Request(ctx, worker, 600, models.PaymentMethodUSDT, "TRx...abc")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, p.ID, models.PayoutStatusProcessing, nil); err != nil {
		t.Fatalf("to processing: %v", err)
	}
	// processing is only reachable from pending
	if _, err := svc.UpdateStatus(ctx, p.ID, models.PayoutStatusProcessing, nil); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("processing twice: got %v, want ErrInvalidStateTransition", err)
	}

	done, err := svc.UpdateStatus(ctx, p.ID, models.PayoutStatusCompleted, nil)
	if err != nil {
		t.Fatalf("to completed: %v", err)
	}
	if done.ProcessedAt == nil {
		t.Error("completed payout must stamp processed_at")
	}
	if got := wallet.balance(worker); got != 400 {
		t.Errorf("balance after completion: got %d, want 400", got)
	}
	withdrawal := entries.get(p.TransactionID)
	if withdrawal.Status != models.TxStatusCompleted {
		t.Errorf("withdrawal transaction: got %q, want completed", withdrawal.Status)
	}
	if withdrawal.CompletedAt == nil {
		t.Fatal("completed withdrawal must stamp completed_at")
	}
	if withdrawal.CompletedAt.Before(withdrawal.CreatedAt) {
		t.Errorf("completed_at %v precedes created_at %v", withdrawal.CompletedAt, withdrawal.CreatedAt)
	}
}

// ---------------------------------------------------------------------------
// 6. TestUpdateStatus_UnknownPayout
// ---------------------------------------------------------------------------

func TestUpdateStatus_UnknownPayout(t *testing.T) {
	svc, _, _, _ := newTestService()
	if _, err := svc.UpdateStatus(context.Background(), uuid.New(), models.PayoutStatusCompleted, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

// ---------------------------------------------------------------------------
// 7. TestPromotePending
//    Every pending payout moves to processing; others are left alone.
// ---------------------------------------------------------------------------

func TestPromotePending(t *testing.T) {
	svc, wallet, _, store := newTestService()
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		worker := uuid.New()
		wallet.Credit(ctx, nil, worker, 1000)
		p, err := svc.Request(ctx, worker, 500, models.PaymentMethodJazzCash, "0300-0000000")
		if err != nil {
			t.Fatalf("Request: %v", err)
		}
		ids = append(ids, p.ID)
	}
	// One of them already failed before the batch ran.
	if _, err := svc.UpdateStatus(ctx, ids[0], models.PayoutStatusFailed, nil); err != nil {
		t.Fatalf("fail payout: %v", err)
	}

	promoted, err := svc.PromotePending(ctx)
	if err != nil {
		t.Fatalf("PromotePending: %v", err)
	}
	if promoted != 2 {
		t.Errorf("promoted: got %d, want 2", promoted)
	}
	if store.get(ids[0]).Status != models.PayoutStatusFailed {
		t.Error("failed payout must not be promoted")
	}
	for _, id := range ids[1:] {
		if got := store.get(id).Status; got != models.PayoutStatusProcessing {
			t.Errorf("payout %s: got %q, want processing", id, got)
		}
	}
}
