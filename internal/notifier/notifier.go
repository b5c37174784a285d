// Package notifier turns reservation events into operator notifications and
// fans them out to every configured sender.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rental-car-dashboard/internal/domain"
	"rental-car-dashboard/internal/events"
	"rental-car-dashboard/internal/logger"
)

const timeLayout = "2006-01-02 15:04"

type Message struct {
	Kind            events.Kind
	ReservationCode string
	Subject         string
	Body            string
}

type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

type Handler struct {
	senders []Sender
}

func NewHandler(senders ...Sender) *Handler {
	return &Handler{senders: senders}
}

// Register subscribes the handler to every event kind.
func (h *Handler) Register(bus *events.Bus) {
	bus.OnAll(events.AllKinds, "notification", h.Handle)
}

// Handle makes one attempt per sender. Every sender is tried; their errors
// are joined.
func (h *Handler) Handle(ctx context.Context, e events.Event) error {
	msg := Render(e)
	var errs []error
	for _, s := range h.senders {
		logger.ExternalServiceCall(s.Name(), "Send", "kind", msg.Kind, "code", msg.ReservationCode)
		err := s.Send(ctx, msg)
		logger.ExternalServiceResult(s.Name(), "Send", err, "kind", msg.Kind, "code", msg.ReservationCode)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func span(r domain.Reservation) string {
	return r.PickupAt.Format(timeLayout) + " - " + r.ReturnAt.Format(timeLayout)
}

// Render builds the subject and body for an event.
func Render(e events.Event) Message {
	r := e.Subject()
	msg := Message{Kind: e.Kind(), ReservationCode: r.Code}
	actor := e.Metadata().Actor.Email

	var b strings.Builder
	fmt.Fprintf(&b, "Reservation %s for %s (%s)\n", r.Code, r.CustomerName, span(r))

	switch ev := e.(type) {
	case events.ReservationCreated:
		msg.Subject = fmt.Sprintf("New reservation %s", r.Code)
		fmt.Fprintf(&b, "Vehicle class %d, estimated %d.\n", r.VehicleClassID, r.EstimatedAmount)
	case events.ReservationUpdated:
		msg.Subject = fmt.Sprintf("Reservation %s changed", r.Code)
		if !ev.Previous.Equal(r.Requested()) {
			fmt.Fprintf(&b, "Previously %s - %s.\n", ev.Previous.Start.Format(timeLayout), ev.Previous.End.Format(timeLayout))
		}
	case events.ReservationCancelled:
		msg.Subject = fmt.Sprintf("Reservation %s cancelled", r.Code)
		if ev.ReleasedVehicleID != 0 {
			fmt.Fprintf(&b, "Vehicle %d released.\n", ev.ReleasedVehicleID)
		}
	case events.ResourceAssigned:
		msg.Subject = fmt.Sprintf("Vehicle %s assigned to %s", ev.Vehicle.PlateNumber, r.Code)
	case events.ReservationDeparted:
		msg.Subject = fmt.Sprintf("%s departed with %s", r.Code, ev.Vehicle.PlateNumber)
		fmt.Fprintf(&b, "Odometer %d.\n", ev.Vehicle.Mileage)
	case events.ReservationReturned:
		msg.Subject = fmt.Sprintf("%s returned %s", r.Code, ev.Vehicle.PlateNumber)
		fmt.Fprintf(&b, "Odometer %d, driven %d.\n", ev.Vehicle.Mileage, r.ReturnOdometer.Int64-r.DepartureOdometer.Int64)
	case events.ReservationSettled:
		msg.Subject = fmt.Sprintf("%s settled", r.Code)
		fmt.Fprintf(&b, "Payment %s for %d recorded.\n", ev.Payment.Code, ev.Payment.Amount)
	case events.ReservationApproved:
		msg.Subject = fmt.Sprintf("%s approved", r.Code)
		writeComment(&b, r.ApprovalComment)
	case events.ReservationRejected:
		msg.Subject = fmt.Sprintf("%s rejected", r.Code)
		writeComment(&b, r.ApprovalComment)
	case events.ReturnOverdue:
		msg.Subject = fmt.Sprintf("%s is overdue", r.Code)
		fmt.Fprintf(&b, "Return was due %s ago.\n", ev.Overdue.Truncate(time.Minute))
	case events.PickupUnassigned:
		msg.Subject = fmt.Sprintf("%s has no vehicle yet", r.Code)
		fmt.Fprintf(&b, "Pickup in %s.\n", ev.Until.Truncate(time.Minute))
	default:
		msg.Subject = fmt.Sprintf("%s: %s", e.Kind(), r.Code)
	}

	if actor != "" {
		fmt.Fprintf(&b, "By %s.\n", actor)
	}
	msg.Body = b.String()
	return msg
}

func writeComment(b *strings.Builder, comment string) {
	if comment != "" {
		fmt.Fprintf(b, "Comment: %s\n", comment)
	}
}
