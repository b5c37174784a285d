// Package conflict decides whether a vehicle can be assigned to a reservation
// over a requested interval without double booking it.
package conflict

import "rental-car-dashboard/internal/domain"

// Overlaps reports whether two half-open intervals [a.Start, a.End) and
// [b.Start, b.End) share any instant.
func Overlaps(a, b domain.Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Find returns the first booking that claims vehicleID over an interval
// overlapping candidate, or nil. The reservation identified by candidateID
// is ignored so a booking never conflicts with itself.
func Find(candidateID, vehicleID int32, candidate domain.Interval, bookings []domain.Reservation) *domain.Reservation {
	for i := range bookings {
		b := &bookings[i]
		if b.ID == candidateID || !b.Status.ClaimsVehicle() {
			continue
		}
		if v, ok := b.AssignedVehicle(); !ok || v != vehicleID {
			continue
		}
		if Overlaps(candidate, b.Requested()) {
			return b
		}
	}
	return nil
}
