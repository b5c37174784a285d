package events

import (
	"time"

	"github.com/google/uuid"
	"rental-car-dashboard/internal/domain"
)

// Kind names an event type on the bus.
type Kind string

const (
	KindReservationCreated          Kind = "reservation.created"
	KindReservationUpdated          Kind = "reservation.updated"
	KindReservationCancelled        Kind = "reservation.cancelled"
	KindReservationResourceAssigned Kind = "reservation.resourceAssigned"
	KindReservationDeparted         Kind = "reservation.departed"
	KindReservationReturned         Kind = "reservation.returned"
	KindReservationSettled          Kind = "reservation.settled"
	KindReservationApproved         Kind = "reservation.approved"
	KindReservationRejected         Kind = "reservation.rejected"

	// Emitted by scheduled jobs rather than transitions.
	KindReturnOverdue    Kind = "reservation.returnOverdue"
	KindPickupUnassigned Kind = "reservation.pickupUnassigned"
)

// AllKinds lists every kind in the union, in lifecycle order.
var AllKinds = []Kind{
	KindReservationCreated,
	KindReservationUpdated,
	KindReservationCancelled,
	KindReservationResourceAssigned,
	KindReservationDeparted,
	KindReservationReturned,
	KindReservationSettled,
	KindReservationApproved,
	KindReservationRejected,
	KindReturnOverdue,
	KindPickupUnassigned,
}

// Event is the closed set of domain events. Only types in this package
// implement it.
type Event interface {
	Kind() Kind
	Metadata() Meta
	// Subject is the reservation the event is about.
	Subject() domain.Reservation
	isEvent()
}

type Meta struct {
	ID         uuid.UUID    `json:"id"`
	Actor      domain.Actor `json:"actor"`
	OccurredAt time.Time    `json:"occurred_at"`
}

func NewMeta(actor domain.Actor, at time.Time) Meta {
	return Meta{ID: uuid.New(), Actor: actor, OccurredAt: at}
}

func (m Meta) Metadata() Meta { return m }

type ReservationCreated struct {
	Meta
	Reservation domain.Reservation `json:"reservation"`
}

type ReservationUpdated struct {
	Meta
	Reservation domain.Reservation `json:"reservation"`
	Previous    domain.Interval    `json:"previous"`
}

type ReservationCancelled struct {
	Meta
	Reservation domain.Reservation `json:"reservation"`
	// ReleasedVehicleID is the vehicle that was assigned before cancelling, or 0.
	ReleasedVehicleID int32 `json:"released_vehicle_id"`
}

type ResourceAssigned struct {
	Meta
	Reservation domain.Reservation `json:"reservation"`
	Vehicle     domain.Vehicle     `json:"vehicle"`
}

type ReservationDeparted struct {
	Meta
	Reservation domain.Reservation `json:"reservation"`
	Vehicle     domain.Vehicle     `json:"vehicle"`
}

type ReservationReturned struct {
	Meta
	Reservation domain.Reservation `json:"reservation"`
	Vehicle     domain.Vehicle     `json:"vehicle"`
}

type ReservationSettled struct {
	Meta
	Reservation domain.Reservation `json:"reservation"`
	Payment     domain.Payment     `json:"payment"`
}

type ReservationApproved struct {
	Meta
	Reservation domain.Reservation `json:"reservation"`
}

type ReservationRejected struct {
	Meta
	Reservation domain.Reservation `json:"reservation"`
}

type ReturnOverdue struct {
	Meta
	Reservation domain.Reservation `json:"reservation"`
	Overdue     time.Duration      `json:"overdue"`
}

type PickupUnassigned struct {
	Meta
	Reservation domain.Reservation `json:"reservation"`
	Until       time.Duration      `json:"until"`
}

func (ReservationCreated) Kind() Kind   { return KindReservationCreated }
func (ReservationUpdated) Kind() Kind   { return KindReservationUpdated }
func (ReservationCancelled) Kind() Kind { return KindReservationCancelled }
func (ResourceAssigned) Kind() Kind     { return KindReservationResourceAssigned }
func (ReservationDeparted) Kind() Kind  { return KindReservationDeparted }
func (ReservationReturned) Kind() Kind  { return KindReservationReturned }
func (ReservationSettled) Kind() Kind   { return KindReservationSettled }
func (ReservationApproved) Kind() Kind  { return KindReservationApproved }
func (ReservationRejected) Kind() Kind  { return KindReservationRejected }
func (ReturnOverdue) Kind() Kind        { return KindReturnOverdue }
func (PickupUnassigned) Kind() Kind     { return KindPickupUnassigned }

func (e ReservationCreated) Subject() domain.Reservation   { return e.Reservation }
func (e ReservationUpdated) Subject() domain.Reservation   { return e.Reservation }
func (e ReservationCancelled) Subject() domain.Reservation { return e.Reservation }
func (e ResourceAssigned) Subject() domain.Reservation     { return e.Reservation }
func (e ReservationDeparted) Subject() domain.Reservation  { return e.Reservation }
func (e ReservationReturned) Subject() domain.Reservation  { return e.Reservation }
func (e ReservationSettled) Subject() domain.Reservation   { return e.Reservation }
func (e ReservationApproved) Subject() domain.Reservation  { return e.Reservation }
func (e ReservationRejected) Subject() domain.Reservation  { return e.Reservation }
func (e ReturnOverdue) Subject() domain.Reservation        { return e.Reservation }
func (e PickupUnassigned) Subject() domain.Reservation     { return e.Reservation }

func (ReservationCreated) isEvent()   {}
func (ReservationUpdated) isEvent()   {}
func (ReservationCancelled) isEvent() {}
func (ResourceAssigned) isEvent()     {}
func (ReservationDeparted) isEvent()  {}
func (ReservationReturned) isEvent()  {}
func (ReservationSettled) isEvent()   {}
func (ReservationApproved) isEvent()  {}
func (ReservationRejected) isEvent()  {}
func (ReturnOverdue) isEvent()        {}
func (PickupUnassigned) isEvent()     {}
