package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"rental-car-dashboard/internal/domain"
	"rental-car-dashboard/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettleScenario(t *testing.T) {
	f := newFixture(t)
	r := f.returned(t, domain.CustomerKindIndividual)

	var notified atomic.Bool
	var accountingCalled atomic.Bool
	f.bus.On(events.KindReservationSettled, "accounting", func(ctx context.Context, e events.Event) error {
		accountingCalled.Store(true)
		return errors.New("accounting endpoint returned 503")
	})
	f.bus.On(events.KindReservationSettled, "notification", func(ctx context.Context, e events.Event) error {
		time.Sleep(5 * time.Millisecond)
		notified.Store(true)
		return nil
	})

	settled, payment, err := f.svc.Settle(as(staff), r.ID, SettleInput{ActualAmount: 16500, Category: "CARD"})
	require.NoError(t, err)

	assert.Equal(t, domain.ReservationStatusSettled, settled.Status)
	assert.Equal(t, int64(16500), settled.ActualAmount.Int64)
	assert.Equal(t, fixedNow, settled.SettledAt.Time)
	assert.True(t, settled.RevenueDate.Valid)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), settled.RevenueDate.Time)

	require.NotNil(t, payment)
	assert.Equal(t, "PM-00001", payment.Code)
	assert.Equal(t, "Acme Logistics", payment.PayerName)

	payments, err := f.store.Payments().ListByReservation(context.Background(), r.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, int32(16500), payments[0].Amount)
	assert.Equal(t, domain.PaymentStatusUnallocated, payments[0].Status)

	assert.True(t, accountingCalled.Load())
	assert.True(t, notified.Load(), "notification handler must run despite the accounting failure")

	evt, ok := f.rec.last().(events.ReservationSettled)
	require.True(t, ok)
	assert.Equal(t, "PM-00001", evt.Payment.Code)
}

func TestSettle_CorporateDefersRevenue(t *testing.T) {
	f := newFixture(t)
	r := f.returned(t, domain.CustomerKindCorporate)

	settled, _, err := f.svc.Settle(as(staff), r.ID, SettleInput{ActualAmount: 48000})
	require.NoError(t, err)
	assert.False(t, settled.RevenueDate.Valid)
	assert.True(t, settled.SettledAt.Valid)
}

func TestSettle_NegativeAmount(t *testing.T) {
	f := newFixture(t)
	r := f.returned(t, domain.CustomerKindIndividual)

	_, _, err := f.svc.Settle(as(staff), r.ID, SettleInput{ActualAmount: -1})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	cur, err := f.svc.Get(as(viewer), r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusReturned, cur.Status)
}

func TestSettle_PaymentFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	r := f.returned(t, domain.CustomerKindIndividual)
	emitted := len(f.rec.kinds())

	f.store.FailNextPayment(errors.New("connection reset"))
	_, _, err := f.svc.Settle(as(staff), r.ID, SettleInput{ActualAmount: 16500})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	cur, err := f.svc.Get(as(viewer), r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusReturned, cur.Status)
	assert.False(t, cur.SettledAt.Valid)
	assert.False(t, cur.ActualAmount.Valid)

	payments, err := f.store.Payments().ListByReservation(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
	assert.Len(t, f.rec.kinds(), emitted, "no event for an aborted settlement")

	// a retry after the failure succeeds with the first payment code
	_, payment, err := f.svc.Settle(as(staff), r.ID, SettleInput{ActualAmount: 16500})
	require.NoError(t, err)
	assert.Equal(t, "PM-00001", payment.Code)
}

func TestSettle_CodeCollision(t *testing.T) {
	f := newFixture(t)
	r := f.returned(t, domain.CustomerKindIndividual)

	f.store.FailNextPayment(domain.ErrUniqueViolation)
	_, _, err := f.svc.Settle(as(staff), r.ID, SettleInput{ActualAmount: 100})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.True(t, errors.Is(err, domain.ErrUniqueViolation))
	assert.Contains(t, err.Error(), "PM-00001")
}

func TestRevenueDate(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	settledAt := time.Date(2026, 4, 1, 0, 30, 0, 0, jst)

	d := revenueDate(domain.CustomerKindIndividual, settledAt)
	assert.True(t, d.Valid)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, jst), d.Time)

	assert.False(t, revenueDate(domain.CustomerKindCorporate, settledAt).Valid)
}
