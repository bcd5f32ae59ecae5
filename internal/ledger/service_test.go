package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pixeltask/backend/internal/models"
	"github.com/pixeltask/backend/internal/testutil"
)

// ---------------------------------------------------------------------------
// In-memory mocks for AccountStore and TransactionStore.
// These let us test the real settlement logic without a database.
// ---------------------------------------------------------------------------

type mockAccounts struct {
	mu       sync.Mutex
	balances map[uuid.UUID]int64
}

func newMockAccounts() *mockAccounts {
	return &mockAccounts{balances: make(map[uuid.UUID]int64)}
}

func (m *mockAccounts) Credit(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[id] += amount
	return m.balances[id], nil
}

func (m *mockAccounts) Debit(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[id] < amount {
		return 0, ErrInsufficientFunds
	}
	m.balances[id] -= amount
	return m.balances[id], nil
}

func (m *mockAccounts) balance(id uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[id]
}

// ---

type mockTxStore struct {
	mu      sync.Mutex
	entries []*models.Transaction
	settled map[uuid.UUID]bool // submission ids with an earning entry
}

func newMockTxStore() *mockTxStore {
	return &mockTxStore{settled: make(map[uuid.UUID]bool)}
}

func (m *mockTxStore) Begin(context.Context) (pgx.Tx, error) { return testutil.NoopTx{}, nil }

func (m *mockTxStore) Insert(_ context.Context, _ pgx.Tx, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.Kind == models.TxKindEarning && t.SubmissionID != nil {
		if m.settled[*t.SubmissionID] {
			return ErrDuplicateSettlement
		}
		m.settled[*t.SubmissionID] = true
	}
	cp := *t
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *mockTxStore) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockTxStore) UpdateStatus(_ context.Context, _ pgx.Tx, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			e.Status = status
			if status == models.TxStatusCompleted && e.CompletedAt == nil {
				now := time.Now()
				e.CompletedAt = &now
			}
			return nil
		}
	}
	return fmt.Errorf("transaction %s not found", id)
}

func (m *mockTxStore) byKind(kind string) []*models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Transaction
	for _, e := range m.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func testSettings(rateBP int32, feeCents int64) *models.PlatformSettings {
	return &models.PlatformSettings{
		CommissionRateBP:   rateBP,
		ProcessingFeeCents: feeCents,
		MinWithdrawalCents: 300,
		MinTaskPriceCents:  2,
	}
}

func testTask(clientID uuid.UUID, priceCents int64) *models.Task {
	return &models.Task{ID: uuid.New(), ClientID: clientID, Title: "Tag 50 images", PriceCents: priceCents}
}

func testSubmission(taskID, workerID uuid.UUID) *models.Submission {
	return &models.Submission{ID: uuid.New(), TaskID: taskID, WorkerID: workerID, Status: models.SubmissionStatusApproved}
}

// ---------------------------------------------------------------------------
// 1. TestComputeSplit
// ---------------------------------------------------------------------------

func TestComputeSplit(t *testing.T) {
	cases := []struct {
		price, wantCommission, wantNet int64
		rateBP                         int32
		fee                            int64
	}{
		{price: 1000, rateBP: 500, fee: 30, wantCommission: 50, wantNet: 920},
		{price: 999, rateBP: 500, fee: 0, wantCommission: 49, wantNet: 950}, // truncates, never rounds up
		{price: 100, rateBP: 0, fee: 0, wantCommission: 0, wantNet: 100},
		{price: 100, rateBP: 10000, fee: 0, wantCommission: 100, wantNet: 0},
	}
	for _, c := range cases {
		got := ComputeSplit(c.price, testSettings(c.rateBP, c.fee))
		if got.CommissionCents != c.wantCommission || got.NetCents != c.wantNet {
			t.Errorf("ComputeSplit(%d, %dbp, %d): got commission %d net %d, want %d / %d",
				c.price, c.rateBP, c.fee, got.CommissionCents, got.NetCents, c.wantCommission, c.wantNet)
		}
	}
}

// ---------------------------------------------------------------------------
// 2. TestSettleApprovedSubmission
// ---------------------------------------------------------------------------

func TestSettleApprovedSubmission(t *testing.T) {
	client := uuid.New()
	worker := uuid.New()

	accounts := newMockAccounts()
	txs := newMockTxStore()
	svc := NewService(accounts, txs)

	task := testTask(client, 1000) // $10.00
	sub := testSubmission(task.ID, worker)

	ctx := context.Background()
	entry, err := svc.SettleApprovedSubmission(ctx, nil, sub, task, testSettings(500, 30))
	if err != nil {
		t.Fatalf("SettleApprovedSubmission: %v", err)
	}

	// Worker is credited the net amount: 10.00 - 0.50 - 0.30 = 9.20.
	if got := accounts.balance(worker); got != 920 {
		t.Errorf("worker balance: got %d, want 920", got)
	}

	earnings := txs.byKind(models.TxKindEarning)
	if len(earnings) != 1 {
		t.Fatalf("earning entries: got %d, want 1", len(earnings))
	}
	e := earnings[0]
	if e.GrossCents != 1000 || e.CommissionCents != 50 || e.FeeCents != 30 || e.NetCents != 920 {
		t.Errorf("earning amounts: gross %d commission %d fee %d net %d", e.GrossCents, e.CommissionCents, e.FeeCents, e.NetCents)
	}
	if e.Status != models.TxStatusCompleted {
		t.Errorf("earning status: got %q, want completed", e.Status)
	}
	if e.CompletedAt == nil || e.CompletedAt.Before(e.CreatedAt) {
		t.Error("completed earning must carry completed_at >= created_at")
	}
	if e.PayeeID != worker || e.PayerID != models.SystemPlatformAccountID {
		t.Error("earning must flow from the platform account to the worker")
	}
	if e.SubmissionID == nil || *e.SubmissionID != sub.ID {
		t.Error("earning must reference the submission")
	}
	if entry.ID != e.ID {
		t.Error("returned entry should be the stored one")
	}
}

// ---------------------------------------------------------------------------
// 3. TestSettleApprovedSubmission_Duplicate
//    Settling the same submission twice mutates the ledger only once.
// ---------------------------------------------------------------------------

func TestSettleApprovedSubmission_Duplicate(t *testing.T) {
	worker := uuid.New()

	accounts := newMockAccounts()
	txs := newMockTxStore()
	svc := NewService(accounts, txs)

	task := testTask(uuid.New(), 1000)
	sub := testSubmission(task.ID, worker)
	cfg := testSettings(500, 30)

	ctx := context.Background()
	if _, err := svc.SettleApprovedSubmission(ctx, nil, sub, task, cfg); err != nil {
		t.Fatalf("first settlement: %v", err)
	}
	if _, err := svc.SettleApprovedSubmission(ctx, nil, sub, task, cfg); !errors.Is(err, ErrDuplicateSettlement) {
		t.Fatalf("second settlement: got %v, want ErrDuplicateSettlement", err)
	}

	if got := accounts.balance(worker); got != 920 {
		t.Errorf("worker balance after duplicate attempt: got %d, want 920", got)
	}
	if n := len(txs.byKind(models.TxKindEarning)); n != 1 {
		t.Errorf("earning entries: got %d, want 1", n)
	}
}

// ---------------------------------------------------------------------------
// 4. TestSettleApprovedSubmission_RateChangeProspective
//    A commission or fee change applies only to settlements after it; entries
//    already written keep the amounts they were settled with.
// ---------------------------------------------------------------------------

func TestSettleApprovedSubmission_RateChangeProspective(t *testing.T) {
	client := uuid.New()
	worker := uuid.New()

	accounts := newMockAccounts()
	txs := newMockTxStore()
	svc := NewService(accounts, txs)

	task := testTask(client, 1000)
	first := testSubmission(task.ID, worker)

	ctx := context.Background()
	earning, err := svc.SettleApprovedSubmission(ctx, nil, first, task, testSettings(500, 30))
	if err != nil {
		t.Fatalf("first settlement: %v", err)
	}

	// Platform raises the commission and drops the fee before the next review.
	second := testSubmission(task.ID, uuid.New())
	later, err := svc.SettleApprovedSubmission(ctx, nil, second, task, testSettings(1000, 0))
	if err != nil {
		t.Fatalf("second settlement: %v", err)
	}
	if later.CommissionCents != 100 || later.FeeCents != 0 || later.NetCents != 900 {
		t.Errorf("second earning: commission %d fee %d net %d, want 100 / 0 / 900",
			later.CommissionCents, later.FeeCents, later.NetCents)
	}

	orig, err := txs.GetByIDForUpdate(ctx, nil, earning.ID)
	if err != nil {
		t.Fatalf("reload first earning: %v", err)
	}
	if orig.GrossCents != 1000 || orig.CommissionCents != 50 || orig.FeeCents != 30 || orig.NetCents != 920 {
		t.Errorf("first earning after rate change: gross %d commission %d fee %d net %d, want 1000 / 50 / 30 / 920",
			orig.GrossCents, orig.CommissionCents, orig.FeeCents, orig.NetCents)
	}
	if orig.Status != models.TxStatusCompleted {
		t.Errorf("first earning status: got %q, want completed", orig.Status)
	}

	// Both workers hold what their own settlement paid out.
	if got := accounts.balance(worker); got != 920 {
		t.Errorf("first worker balance: got %d, want 920", got)
	}
	if got := accounts.balance(second.WorkerID); got != 900 {
		t.Errorf("second worker balance: got %d, want 900", got)
	}
}

// ---------------------------------------------------------------------------
// 5. TestSettleApprovedSubmission_NegativeNet
// ---------------------------------------------------------------------------

func TestSettleApprovedSubmission_NegativeNet(t *testing.T) {
	worker := uuid.New()

	accounts := newMockAccounts()
	txs := newMockTxStore()
	svc := NewService(accounts, txs)

	task := testTask(uuid.New(), 100)
	sub := testSubmission(task.ID, worker)

	// 5% of 1.00 is 0.05; a 2.00 fee drives the net below zero.
	_, err := svc.SettleApprovedSubmission(context.Background(), nil, sub, task, testSettings(500, 200))
	if !errors.Is(err, ErrInvalidSettlement) {
		t.Fatalf("got %v, want ErrInvalidSettlement", err)
	}
	if got := accounts.balance(worker); got != 0 {
		t.Errorf("worker balance: got %d, want 0", got)
	}
	if n := len(txs.entries); n != 0 {
		t.Errorf("ledger entries: got %d, want 0", n)
	}
}

// ---------------------------------------------------------------------------
// 6. TestReverseTransaction
//    A completed earning can be reversed exactly once.
// ---------------------------------------------------------------------------

func TestReverseTransaction(t *testing.T) {
	worker := uuid.New()

	accounts := newMockAccounts()
	txs := newMockTxStore()
	svc := NewService(accounts, txs)

	task := testTask(uuid.New(), 1000)
	sub := testSubmission(task.ID, worker)

	ctx := context.Background()
	earning, err := svc.SettleApprovedSubmission(ctx, nil, sub, task, testSettings(500, 30))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	refund, err := svc.ReverseTransaction(ctx, earning.ID, "client disputed the proof")
	if err != nil {
		t.Fatalf("ReverseTransaction: %v", err)
	}

	if got := accounts.balance(worker); got != 0 {
		t.Errorf("worker balance after reversal: got %d, want 0", got)
	}
	if refund.Kind != models.TxKindRefund || refund.NetCents != 920 {
		t.Errorf("refund entry: kind %q net %d", refund.Kind, refund.NetCents)
	}
	if refund.ReversalOf == nil || *refund.ReversalOf != earning.ID {
		t.Error("refund must reference the original transaction")
	}

	orig, err := txs.GetByIDForUpdate(ctx, nil, earning.ID)
	if err != nil {
		t.Fatalf("reload original: %v", err)
	}
	if orig.Status != models.TxStatusRefunded {
		t.Errorf("original status: got %q, want refunded", orig.Status)
	}

	// Second reversal of the same transaction must fail.
	if _, err := svc.ReverseTransaction(ctx, earning.ID, "again"); !errors.Is(err, ErrAlreadyReversed) {
		t.Errorf("second reversal: got %v, want ErrAlreadyReversed", err)
	}
}

// ---------------------------------------------------------------------------
// 7. TestReverseTransaction_InsufficientFunds
//    Reversal is blocked when the worker already withdrew the funds;
//    balances never go negative.
// ---------------------------------------------------------------------------

func TestReverseTransaction_InsufficientFunds(t *testing.T) {
	worker := uuid.New()

	accounts := newMockAccounts()
	txs := newMockTxStore()
	svc := NewService(accounts, txs)

	task := testTask(uuid.New(), 1000)
	sub := testSubmission(task.ID, worker)

	ctx := context.Background()
	earning, err := svc.SettleApprovedSubmission(ctx, nil, sub, task, testSettings(500, 30))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	// Simulate a withdrawal that drained most of the balance.
	if _, err := accounts.Debit(ctx, nil, worker, 800); err != nil {
		t.Fatalf("debit: %v", err)
	}

	if _, err := svc.ReverseTransaction(ctx, earning.ID, "dispute"); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}

	if got := accounts.balance(worker); got != 120 {
		t.Errorf("worker balance: got %d, want 120", got)
	}
	orig, _ := txs.GetByIDForUpdate(ctx, nil, earning.ID)
	if orig.Status != models.TxStatusCompleted {
		t.Errorf("original status: got %q, want completed (blocked reversal must not mutate)", orig.Status)
	}
	if n := len(txs.byKind(models.TxKindRefund)); n != 0 {
		t.Errorf("refund entries: got %d, want 0", n)
	}

	if _, err := svc.ReverseTransaction(ctx, uuid.New(), "unknown"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id: got %v, want ErrNotFound", err)
	}
}
