package jobs

import (
	"context"

	"rental-car-dashboard/internal/domain"
	"rental-car-dashboard/internal/events"
	"rental-car-dashboard/internal/logger"
)

// FlagOverdueReturns raises reservation.returnOverdue for every departed
// reservation whose scheduled return has passed.
func (jr *JobRunner) FlagOverdueReturns() {
	jr.runWithRecovery("FlagOverdueReturns", func() {
		ctx := context.Background()
		now := jr.now()

		departed, err := jr.listAll(ctx, domain.ReservationFilter{Status: domain.ReservationStatusDeparted})
		if err != nil {
			logger.Error("Failed to list departed reservations", "error", err)
			return
		}

		count := 0
		for _, r := range departed {
			if !r.ReturnAt.Before(now) {
				continue
			}
			overdue := now.Sub(r.ReturnAt)
			logger.Debug("Reservation return overdue",
				"code", r.Code,
				"vehicle_id", r.DrivenVehicleID.Int64,
				"return_at", r.ReturnAt,
				"overdue", overdue)
			jr.bus.Emit(ctx, events.ReturnOverdue{
				Meta:        events.NewMeta(systemActor, now),
				Reservation: r,
				Overdue:     overdue,
			})
			count++
		}

		logger.Info("Flagged overdue returns", "count", count)
	})
}

// RemindUnassignedPickups raises reservation.pickupUnassigned for reserved
// bookings without a vehicle whose pickup falls inside the look-ahead window.
func (jr *JobRunner) RemindUnassignedPickups() {
	jr.runWithRecovery("RemindUnassignedPickups", func() {
		ctx := context.Background()
		now := jr.now()

		upcoming, err := jr.listAll(ctx, domain.ReservationFilter{
			Status: domain.ReservationStatusReserved,
			From:   now,
			To:     now.Add(jr.config.PickupLookahead()),
		})
		if err != nil {
			logger.Error("Failed to list upcoming reservations", "error", err)
			return
		}

		count := 0
		for _, r := range upcoming {
			if r.VehicleID.Valid {
				continue
			}
			jr.bus.Emit(ctx, events.PickupUnassigned{
				Meta:        events.NewMeta(systemActor, now),
				Reservation: r,
				Until:       r.PickupAt.Sub(now),
			})
			count++
		}

		logger.Info("Sent unassigned pickup reminders", "count", count)
	})
}
