package service

import (
	"context"
	"errors"
	"time"

	"gopkg.in/guregu/null.v4"
	"rental-car-dashboard/internal/domain"
	"rental-car-dashboard/internal/events"
	"rental-car-dashboard/internal/logger"
	"rental-car-dashboard/internal/repository"
)

// revenueDate applies the recognition policy: individual rentals are
// recognised on the settlement date, corporate rentals when invoiced.
func revenueDate(kind domain.CustomerKind, settledAt time.Time) null.Time {
	if kind != domain.CustomerKindIndividual {
		return null.Time{}
	}
	y, m, d := settledAt.Date()
	return null.TimeFrom(time.Date(y, m, d, 0, 0, 0, 0, settledAt.Location()))
}

// Settle closes a returned reservation and records the full amount as an
// unallocated payment in the same unit of work.
func (s *reservationService) Settle(ctx context.Context, id int32, in SettleInput) (*domain.Reservation, *domain.Payment, error) {
	actor, err := authorize(ctx, editRole)
	if err != nil {
		return nil, nil, err
	}

	var payment *domain.Payment
	r, err := s.transition(ctx, "settle", id, repository.TxOptions{},
		[]domain.ReservationStatus{domain.ReservationStatusReturned},
		func(tx repository.Tx, r *domain.Reservation) (events.Event, error) {
			if in.ActualAmount < 0 {
				return nil, domain.NewValidationError("actual_amount", "must not be negative")
			}

			now := s.now()
			r.ActualAmount = null.IntFrom(int64(in.ActualAmount))
			r.SettledAt = null.TimeFrom(now)
			r.RevenueDate = revenueDate(r.CustomerKind, now)
			r.Status = domain.ReservationStatusSettled

			p, err := s.mintPayment(ctx, tx, r, in, actor, now)
			if err != nil {
				return nil, err
			}
			payment = p

			return events.ReservationSettled{
				Meta:        events.NewMeta(actor, now),
				Reservation: *r,
				Payment:     *p,
			}, nil
		})
	if err != nil {
		return nil, nil, err
	}
	return r, payment, nil
}

func (s *reservationService) mintPayment(ctx context.Context, tx repository.Tx, r *domain.Reservation, in SettleInput, actor domain.Actor, now time.Time) (*domain.Payment, error) {
	code, err := tx.Codes().Next(ctx, domain.CodeKindPayment)
	if err != nil {
		return nil, err
	}
	p := &domain.Payment{
		Code:          code,
		ReservationID: r.ID,
		PayerName:     r.CustomerName,
		Amount:        in.ActualAmount,
		Category:      in.Category,
		Status:        domain.PaymentStatusUnallocated,
		PaidAt:        now,
		CreatedBy:     actor.UserID,
	}
	if err := tx.Payments().Create(ctx, p); err != nil {
		logger.Warn("Payment insert failed, settlement aborted", "reservationID", r.ID, "code", code, "error", err)
		if errors.Is(err, domain.ErrUniqueViolation) {
			return nil, domain.NewUniquenessError("payment_code", code, err)
		}
		return nil, err
	}
	return p, nil
}
