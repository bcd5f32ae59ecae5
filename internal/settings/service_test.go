package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixeltask/backend/internal/models"
)

type memStore struct {
	cfg models.PlatformSettings
}

func (m *memStore) Get(context.Context) (*models.PlatformSettings, error) {
	cp := m.cfg
	return &cp, nil
}

func (m *memStore) Save(_ context.Context, cfg *models.PlatformSettings) error {
	m.cfg = *cfg
	return nil
}

func newStore() *memStore {
	return &memStore{cfg: models.PlatformSettings{
		CommissionRateBP:   500,
		ProcessingFeeCents: 30,
		PayoutSchedule:     models.PayoutScheduleWeekly,
		MinWithdrawalCents: 300,
		MinTaskPriceCents:  100,
	}}
}

func ptr[T any](v T) *T { return &v }

func TestUpdate_PartialFields(t *testing.T) {
	store := newStore()
	svc := NewService(store)

	got, err := svc.Update(context.Background(), UpdateParams{
		CommissionRateBP: ptr(int32(750)),
	})
	require.NoError(t, err)

	assert.Equal(t, int32(750), got.CommissionRateBP)
	// Untouched fields keep their current values.
	assert.Equal(t, int64(30), got.ProcessingFeeCents)
	assert.Equal(t, models.PayoutScheduleWeekly, got.PayoutSchedule)
	assert.Equal(t, int32(750), store.cfg.CommissionRateBP, "store must hold the saved row")
}

func TestUpdate_Validation(t *testing.T) {
	cases := []struct {
		name   string
		params UpdateParams
	}{
		{"rate above 100 percent", UpdateParams{CommissionRateBP: ptr(int32(10001))}},
		{"negative rate", UpdateParams{CommissionRateBP: ptr(int32(-1))}},
		{"negative fee", UpdateParams{ProcessingFeeCents: ptr(int64(-5))}},
		{"unknown schedule", UpdateParams{PayoutSchedule: ptr("hourly")}},
		{"zero minimum withdrawal", UpdateParams{MinWithdrawalCents: ptr(int64(0))}},
		{"zero minimum task price", UpdateParams{MinTaskPriceCents: ptr(int64(0))}},
		// 100% commission plus any fee settles the minimum task below zero.
		{"rate and fee underwater", UpdateParams{CommissionRateBP: ptr(int32(10000))}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			store := newStore()
			svc := NewService(store)
			_, err := svc.Update(context.Background(), c.params)
			assert.ErrorIs(t, err, ErrInvalidSettings)
			// A rejected update must not be persisted.
			assert.Equal(t, int32(500), store.cfg.CommissionRateBP)
		})
	}
}

func TestUpdate_BoundaryRates(t *testing.T) {
	store := newStore()
	svc := NewService(store)
	ctx := context.Background()

	// 0% commission with zero fee is legal.
	_, err := svc.Update(ctx, UpdateParams{
		CommissionRateBP:   ptr(int32(0)),
		ProcessingFeeCents: ptr(int64(0)),
	})
	require.NoError(t, err)

	// So is 100% once the fee is zero: the worker nets exactly zero.
	got, err := svc.Update(ctx, UpdateParams{CommissionRateBP: ptr(int32(10000))})
	require.NoError(t, err)
	assert.Equal(t, int32(10000), got.CommissionRateBP)
}
