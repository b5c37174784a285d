package repository

import (
	"context"

	"rental-car-dashboard/internal/domain"
)

// Implementations return errors wrapping domain.ErrNotFound for missing rows
// and domain.ErrUniqueViolation for duplicate codes.

type ReservationRepository interface {
	Create(ctx context.Context, r *domain.Reservation) error
	GetByID(ctx context.Context, id int32) (*domain.Reservation, error)
	Update(ctx context.Context, r *domain.Reservation) error
	List(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, int32, error)
	// ListActiveByVehicle returns reservations on the vehicle whose status still claims it.
	ListActiveByVehicle(ctx context.Context, vehicleID int32) ([]domain.Reservation, error)
}

type VehicleRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Vehicle, error)
	Update(ctx context.Context, v *domain.Vehicle) error
}

type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	ListByReservation(ctx context.Context, reservationID int32) ([]domain.Payment, error)
}

// CodeGenerator mints the next sequential code for a kind from the highest
// stored code. Collisions surface on insert, they are not retried here.
type CodeGenerator interface {
	Next(ctx context.Context, kind domain.CodeKind) (string, error)
}

// Tx scopes repositories to one atomic unit of work.
type Tx interface {
	Reservations() ReservationRepository
	Vehicles() VehicleRepository
	Payments() PaymentRepository
	Codes() CodeGenerator
}

type TxOptions struct {
	// Serializable asks for serializable isolation where the store supports it.
	Serializable bool
}

// UnitOfWork runs fn atomically: everything fn wrote is committed when it
// returns nil and discarded otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, opts TxOptions, fn func(tx Tx) error) error
}

// Store is the non-transactional read side plus the unit of work.
type Store interface {
	Tx
	UnitOfWork
}
