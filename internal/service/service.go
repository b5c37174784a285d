package service

import (
	"context"
	"time"

	"gopkg.in/guregu/null.v4"
	"rental-car-dashboard/internal/domain"
	"rental-car-dashboard/internal/events"
)

// ReservationService exposes one method per lifecycle transition. The acting
// user is read from the context (see security.WithActor).
type ReservationService interface {
	Create(ctx context.Context, in CreateReservationInput) (*domain.Reservation, error)
	Update(ctx context.Context, id int32, in UpdateReservationInput) (*domain.Reservation, error)
	Cancel(ctx context.Context, id int32) (*domain.Reservation, error)
	AssignVehicle(ctx context.Context, id, vehicleID int32) (*domain.Reservation, error)
	UnassignVehicle(ctx context.Context, id int32) (*domain.Reservation, error)
	Depart(ctx context.Context, id int32, in DepartInput) (*domain.Reservation, error)
	Return(ctx context.Context, id int32, in ReturnInput) (*domain.Reservation, error)
	Settle(ctx context.Context, id int32, in SettleInput) (*domain.Reservation, *domain.Payment, error)
	Approve(ctx context.Context, id int32, comment string) (*domain.Reservation, error)
	Reject(ctx context.Context, id int32, comment string) (*domain.Reservation, error)
	Get(ctx context.Context, id int32) (*domain.Reservation, error)
	List(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, int32, error)
}

// Emitter publishes committed domain events. *events.Bus satisfies it.
type Emitter interface {
	Emit(ctx context.Context, e events.Event)
}

type CreateReservationInput struct {
	VehicleClassID  int32               `json:"vehicle_class_id"`
	CustomerKind    domain.CustomerKind `json:"customer_kind"`
	CustomerName    string              `json:"customer_name"`
	CustomerPhone   string              `json:"customer_phone"`
	CustomerEmail   string              `json:"customer_email"`
	PickupAt        time.Time           `json:"pickup_at"`
	ReturnAt        time.Time           `json:"return_at"`
	EstimatedAmount int32               `json:"estimated_amount"`
	Note            string              `json:"note"`
}

// UpdateReservationInput holds the mutable fields of a reservation. Fields
// left invalid keep their current value.
type UpdateReservationInput struct {
	VehicleClassID  null.Int    `json:"vehicle_class_id"`
	CustomerKind    null.String `json:"customer_kind"`
	CustomerName    null.String `json:"customer_name"`
	CustomerPhone   null.String `json:"customer_phone"`
	CustomerEmail   null.String `json:"customer_email"`
	PickupAt        null.Time   `json:"pickup_at"`
	ReturnAt        null.Time   `json:"return_at"`
	EstimatedAmount null.Int    `json:"estimated_amount"`
	Note            null.String `json:"note"`
}

// Reschedule builds an update that only moves the requested interval.
func Reschedule(interval domain.Interval) UpdateReservationInput {
	return UpdateReservationInput{
		PickupAt: null.TimeFrom(interval.Start),
		ReturnAt: null.TimeFrom(interval.End),
	}
}

type DepartInput struct {
	// ActualPickupAt defaults to the current time.
	ActualPickupAt time.Time `json:"actual_pickup_at"`
	Odometer       int32     `json:"odometer"`
	Fuel           null.Int  `json:"fuel"`
}

type ReturnInput struct {
	ActualReturnAt time.Time `json:"actual_return_at"`
	Odometer       int32     `json:"odometer"`
	Fuel           null.Int  `json:"fuel"`
}

type SettleInput struct {
	ActualAmount int32  `json:"actual_amount"`
	Category     string `json:"category"`
}
