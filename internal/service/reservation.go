package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"slices"
	"strings"
	"time"

	"gopkg.in/guregu/null.v4"
	"rental-car-dashboard/internal/conflict"
	"rental-car-dashboard/internal/domain"
	"rental-car-dashboard/internal/events"
	"rental-car-dashboard/internal/logger"
	"rental-car-dashboard/internal/repository"
	"rental-car-dashboard/internal/security"
)

const (
	editRole     = domain.RoleStaff
	approverRole = domain.RoleManager
	readRole     = domain.RoleViewer
)

var (
	editableStatuses    = []domain.ReservationStatus{domain.ReservationStatusReserved, domain.ReservationStatusConfirmed}
	cancellableStatuses = editableStatuses
)

type Option func(*reservationService)

// WithClock overrides the time source used for actuals and approval stamps.
func WithClock(now func() time.Time) Option {
	return func(s *reservationService) { s.now = now }
}

// WithAsyncDispatch hands event emission to a background goroutine so callers
// never wait on handlers.
func WithAsyncDispatch(async bool) Option {
	return func(s *reservationService) { s.async = async }
}

type reservationService struct {
	store repository.Store
	bus   Emitter
	now   func() time.Time
	async bool
}

func NewReservationService(store repository.Store, bus Emitter, opts ...Option) ReservationService {
	s := &reservationService{
		store: store,
		bus:   bus,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func authorize(ctx context.Context, required domain.Role) (domain.Actor, error) {
	actor, ok := security.ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, &domain.PermissionError{Required: required}
	}
	if !actor.Role.AtLeast(required) {
		return actor, &domain.PermissionError{Required: required, Actual: actor.Role}
	}
	return actor, nil
}

func (s *reservationService) emit(ctx context.Context, e events.Event) {
	if s.async {
		go s.bus.Emit(context.WithoutCancel(ctx), e)
		return
	}
	s.bus.Emit(ctx, e)
}

func load(ctx context.Context, tx repository.Tx, id int32) (*domain.Reservation, error) {
	r, err := tx.Reservations().GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewNotFound("reservation", id)
	}
	return r, err
}

func guard(op string, r *domain.Reservation, allowed ...domain.ReservationStatus) error {
	if !slices.Contains(allowed, r.Status) {
		return domain.NewStateConflict(op, r.Status)
	}
	return nil
}

// transition runs the common skeleton of a guarded write: load, guard, apply
// and persist inside one unit of work. apply returns the event to emit after
// commit, or nil.
func (s *reservationService) transition(
	ctx context.Context,
	op string,
	id int32,
	opts repository.TxOptions,
	allowed []domain.ReservationStatus,
	apply func(tx repository.Tx, r *domain.Reservation) (events.Event, error),
) (*domain.Reservation, error) {
	logger.EnterMethod("reservationService."+op, "reservationID", id)

	var (
		out *domain.Reservation
		evt events.Event
	)
	err := s.store.Do(ctx, opts, func(tx repository.Tx) error {
		r, err := load(ctx, tx, id)
		if err != nil {
			return err
		}
		if allowed != nil {
			if err := guard(op, r, allowed...); err != nil {
				return err
			}
		}
		if evt, err = apply(tx, r); err != nil {
			return err
		}
		if err := tx.Reservations().Update(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("reservationService."+op, err, "reservationID", id)
		return nil, err
	}

	if evt != nil {
		s.emit(ctx, evt)
	}
	logger.ExitMethod("reservationService."+op, "reservationID", id, "status", out.Status)
	return out, nil
}

// checkInt32 rejects values that would not survive narrowing to int32.
func checkInt32(v *domain.ValidationError, field string, n null.Int) {
	if n.Valid && (n.Int64 < math.MinInt32 || n.Int64 > math.MaxInt32) {
		v.Add(field, fmt.Sprintf("%d is out of range", n.Int64))
	}
}

func validateFuel(v *domain.ValidationError, field string, fuel null.Int) {
	if fuel.Valid && (fuel.Int64 < 0 || fuel.Int64 > 100) {
		v.Add(field, "must be between 0 and 100")
	}
}

func validateDetails(v *domain.ValidationError, r *domain.Reservation) {
	if r.VehicleClassID <= 0 {
		v.Add("vehicle_class_id", "is required")
	}
	if r.CustomerKind != domain.CustomerKindIndividual && r.CustomerKind != domain.CustomerKindCorporate {
		v.Add("customer_kind", fmt.Sprintf("unknown customer kind %q", r.CustomerKind))
	}
	if strings.TrimSpace(r.CustomerName) == "" {
		v.Add("customer_name", "is required")
	}
	if r.CustomerEmail != "" {
		if _, err := mail.ParseAddress(r.CustomerEmail); err != nil {
			v.Add("customer_email", "is not a valid address")
		}
	}
	if !r.Requested().Valid() {
		v.Add("return_at", "must be after pickup_at")
	}
	if r.EstimatedAmount < 0 {
		v.Add("estimated_amount", "must not be negative")
	}
}

func (s *reservationService) Create(ctx context.Context, in CreateReservationInput) (*domain.Reservation, error) {
	actor, err := authorize(ctx, editRole)
	if err != nil {
		return nil, err
	}
	logger.EnterMethod("reservationService.Create", "actorID", actor.UserID, "vehicleClassID", in.VehicleClassID)

	if in.CustomerKind == "" {
		in.CustomerKind = domain.CustomerKindIndividual
	}
	r := &domain.Reservation{
		VehicleClassID:  in.VehicleClassID,
		CustomerKind:    in.CustomerKind,
		CustomerName:    strings.TrimSpace(in.CustomerName),
		CustomerPhone:   in.CustomerPhone,
		CustomerEmail:   in.CustomerEmail,
		PickupAt:        in.PickupAt,
		ReturnAt:        in.ReturnAt,
		Status:          domain.ReservationStatusReserved,
		ApprovalStatus:  domain.ApprovalStatusPending,
		EstimatedAmount: in.EstimatedAmount,
		Note:            in.Note,
		CreatedBy:       actor.UserID,
	}
	v := &domain.ValidationError{}
	validateDetails(v, r)
	if !v.Empty() {
		logger.ExitMethodWithError("reservationService.Create", v)
		return nil, v
	}

	err = s.store.Do(ctx, repository.TxOptions{}, func(tx repository.Tx) error {
		code, err := tx.Codes().Next(ctx, domain.CodeKindReservation)
		if err != nil {
			return err
		}
		r.Code = code
		if err := tx.Reservations().Create(ctx, r); err != nil {
			if errors.Is(err, domain.ErrUniqueViolation) {
				return domain.NewUniquenessError("code", code, err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("reservationService.Create", err)
		return nil, err
	}

	s.emit(ctx, events.ReservationCreated{Meta: events.NewMeta(actor, s.now()), Reservation: *r})
	logger.ExitMethod("reservationService.Create", "reservationID", r.ID, "code", r.Code)
	return r, nil
}

func (s *reservationService) Update(ctx context.Context, id int32, in UpdateReservationInput) (*domain.Reservation, error) {
	actor, err := authorize(ctx, editRole)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, "edit", id, repository.TxOptions{Serializable: true}, editableStatuses,
		func(tx repository.Tx, r *domain.Reservation) (events.Event, error) {
			previous := r.Requested()
			previousClass := r.VehicleClassID

			v := &domain.ValidationError{}
			checkInt32(v, "vehicle_class_id", in.VehicleClassID)
			checkInt32(v, "estimated_amount", in.EstimatedAmount)
			if !v.Empty() {
				return nil, v
			}

			if in.VehicleClassID.Valid {
				r.VehicleClassID = int32(in.VehicleClassID.Int64)
			}
			if in.CustomerKind.Valid {
				r.CustomerKind = domain.CustomerKind(in.CustomerKind.String)
			}
			if in.CustomerName.Valid {
				r.CustomerName = strings.TrimSpace(in.CustomerName.String)
			}
			if in.CustomerPhone.Valid {
				r.CustomerPhone = in.CustomerPhone.String
			}
			if in.CustomerEmail.Valid {
				r.CustomerEmail = in.CustomerEmail.String
			}
			if in.PickupAt.Valid {
				r.PickupAt = in.PickupAt.Time
			}
			if in.ReturnAt.Valid {
				r.ReturnAt = in.ReturnAt.Time
			}
			if in.EstimatedAmount.Valid {
				r.EstimatedAmount = int32(in.EstimatedAmount.Int64)
			}
			if in.Note.Valid {
				r.Note = in.Note.String
			}

			validateDetails(v, r)
			vehicleID, assigned := r.AssignedVehicle()
			if assigned && r.VehicleClassID != previousClass {
				v.Add("vehicle_class_id", "cannot change class while a vehicle is assigned")
			}
			if !v.Empty() {
				return nil, v
			}

			if assigned && !previous.Equal(r.Requested()) {
				if err := checkSchedule(ctx, tx, r, vehicleID); err != nil {
					return nil, err
				}
			}

			return events.ReservationUpdated{
				Meta:        events.NewMeta(actor, s.now()),
				Reservation: *r,
				Previous:    previous,
			}, nil
		})
}

// checkSchedule rejects r if vehicleID is already claimed over an
// overlapping interval by another reservation.
func checkSchedule(ctx context.Context, tx repository.Tx, r *domain.Reservation, vehicleID int32) error {
	bookings, err := tx.Reservations().ListActiveByVehicle(ctx, vehicleID)
	if err != nil {
		return err
	}
	if hit := conflict.Find(r.ID, vehicleID, r.Requested(), bookings); hit != nil {
		return &domain.ScheduleConflictError{
			VehicleID:       vehicleID,
			ConflictingCode: hit.Code,
			Conflicting:     hit.Requested(),
		}
	}
	return nil
}

func (s *reservationService) Cancel(ctx context.Context, id int32) (*domain.Reservation, error) {
	actor, err := authorize(ctx, editRole)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, "cancel", id, repository.TxOptions{}, cancellableStatuses,
		func(tx repository.Tx, r *domain.Reservation) (events.Event, error) {
			released, _ := r.AssignedVehicle()
			r.Status = domain.ReservationStatusCancelled
			r.VehicleID = null.Int{}
			return events.ReservationCancelled{
				Meta:              events.NewMeta(actor, s.now()),
				Reservation:       *r,
				ReleasedVehicleID: released,
			}, nil
		})
}

func (s *reservationService) AssignVehicle(ctx context.Context, id, vehicleID int32) (*domain.Reservation, error) {
	actor, err := authorize(ctx, editRole)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, "assign vehicle", id, repository.TxOptions{Serializable: true},
		[]domain.ReservationStatus{domain.ReservationStatusReserved},
		func(tx repository.Tx, r *domain.Reservation) (events.Event, error) {
			vehicle, err := tx.Vehicles().GetByID(ctx, vehicleID)
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.NewNotFound("vehicle", vehicleID)
			}
			if err != nil {
				return nil, err
			}
			if vehicle.VehicleClassID != r.VehicleClassID {
				return nil, domain.NewValidationError("vehicle_id",
					fmt.Sprintf("vehicle %s is class %d, reservation requires class %d", vehicle.PlateNumber, vehicle.VehicleClassID, r.VehicleClassID))
			}
			if vehicle.Status == domain.VehicleStatusRetired {
				return nil, domain.NewValidationError("vehicle_id", fmt.Sprintf("vehicle %s is retired", vehicle.PlateNumber))
			}
			if err := checkSchedule(ctx, tx, r, vehicleID); err != nil {
				return nil, err
			}

			r.VehicleID = null.IntFrom(int64(vehicleID))
			r.Status = domain.ReservationStatusConfirmed
			return events.ResourceAssigned{
				Meta:        events.NewMeta(actor, s.now()),
				Reservation: *r,
				Vehicle:     *vehicle,
			}, nil
		})
}

func (s *reservationService) UnassignVehicle(ctx context.Context, id int32) (*domain.Reservation, error) {
	if _, err := authorize(ctx, editRole); err != nil {
		return nil, err
	}

	return s.transition(ctx, "unassign vehicle", id, repository.TxOptions{},
		[]domain.ReservationStatus{domain.ReservationStatusConfirmed},
		func(tx repository.Tx, r *domain.Reservation) (events.Event, error) {
			r.VehicleID = null.Int{}
			r.Status = domain.ReservationStatusReserved
			return nil, nil
		})
}

func (s *reservationService) Depart(ctx context.Context, id int32, in DepartInput) (*domain.Reservation, error) {
	actor, err := authorize(ctx, editRole)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, "depart", id, repository.TxOptions{},
		[]domain.ReservationStatus{domain.ReservationStatusConfirmed},
		func(tx repository.Tx, r *domain.Reservation) (events.Event, error) {
			vehicleID, ok := r.AssignedVehicle()
			if !ok {
				return nil, domain.NewValidationError("vehicle_id", "a vehicle must be assigned before departure")
			}
			v := &domain.ValidationError{}
			if in.Odometer < 0 {
				v.Add("odometer", "must not be negative")
			}
			validateFuel(v, "fuel", in.Fuel)
			if !v.Empty() {
				return nil, v
			}

			vehicle, err := tx.Vehicles().GetByID(ctx, vehicleID)
			if err != nil {
				return nil, err
			}
			if in.Odometer < vehicle.Mileage {
				return nil, domain.NewValidationError("odometer",
					fmt.Sprintf("departure odometer %d is below vehicle mileage %d", in.Odometer, vehicle.Mileage))
			}

			pickedUp := in.ActualPickupAt
			if pickedUp.IsZero() {
				pickedUp = s.now()
			}
			r.ActualPickupAt = null.TimeFrom(pickedUp)
			r.DepartureOdometer = null.IntFrom(int64(in.Odometer))
			r.DepartureFuel = in.Fuel
			r.DrivenVehicleID = null.IntFrom(int64(vehicleID))
			r.Status = domain.ReservationStatusDeparted

			vehicle.Status = domain.VehicleStatusRented
			vehicle.Mileage = in.Odometer
			if err := tx.Vehicles().Update(ctx, vehicle); err != nil {
				return nil, err
			}

			return events.ReservationDeparted{
				Meta:        events.NewMeta(actor, s.now()),
				Reservation: *r,
				Vehicle:     *vehicle,
			}, nil
		})
}

func (s *reservationService) Return(ctx context.Context, id int32, in ReturnInput) (*domain.Reservation, error) {
	actor, err := authorize(ctx, editRole)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, "return", id, repository.TxOptions{},
		[]domain.ReservationStatus{domain.ReservationStatusDeparted},
		func(tx repository.Tx, r *domain.Reservation) (events.Event, error) {
			returned := in.ActualReturnAt
			if returned.IsZero() {
				returned = s.now()
			}

			v := &domain.ValidationError{}
			if r.DepartureOdometer.Valid && int64(in.Odometer) < r.DepartureOdometer.Int64 {
				v.Add("odometer", fmt.Sprintf("return odometer %d is below departure odometer %d", in.Odometer, r.DepartureOdometer.Int64))
			}
			if r.ActualPickupAt.Valid && returned.Before(r.ActualPickupAt.Time) {
				v.Add("actual_return_at", "must not be before the actual pickup")
			}
			validateFuel(v, "fuel", in.Fuel)
			if !v.Empty() {
				return nil, v
			}

			vehicleID, ok := r.AssignedVehicle()
			if !ok {
				vehicleID = int32(r.DrivenVehicleID.Int64)
			}
			vehicle, err := tx.Vehicles().GetByID(ctx, vehicleID)
			if err != nil {
				return nil, err
			}

			r.ActualReturnAt = null.TimeFrom(returned)
			r.ReturnOdometer = null.IntFrom(int64(in.Odometer))
			r.ReturnFuel = in.Fuel
			r.VehicleID = null.Int{}
			r.Status = domain.ReservationStatusReturned

			vehicle.Status = domain.VehicleStatusInStock
			vehicle.Mileage = in.Odometer
			if err := tx.Vehicles().Update(ctx, vehicle); err != nil {
				return nil, err
			}

			return events.ReservationReturned{
				Meta:        events.NewMeta(actor, s.now()),
				Reservation: *r,
				Vehicle:     *vehicle,
			}, nil
		})
}

func (s *reservationService) Approve(ctx context.Context, id int32, comment string) (*domain.Reservation, error) {
	return s.decide(ctx, "approve", id, comment, domain.ApprovalStatusApproved)
}

func (s *reservationService) Reject(ctx context.Context, id int32, comment string) (*domain.Reservation, error) {
	return s.decide(ctx, "reject", id, comment, domain.ApprovalStatusRejected)
}

// decide records a single-use approval decision. Approval is independent of
// the lifecycle status.
func (s *reservationService) decide(ctx context.Context, op string, id int32, comment string, decision domain.ApprovalStatus) (*domain.Reservation, error) {
	actor, err := authorize(ctx, approverRole)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, op, id, repository.TxOptions{}, nil,
		func(tx repository.Tx, r *domain.Reservation) (events.Event, error) {
			if r.ApprovalStatus != domain.ApprovalStatusPending {
				return nil, domain.NewApprovalConflict(op, r.ApprovalStatus)
			}
			now := s.now()
			r.ApprovalStatus = decision
			r.ApprovedBy = null.IntFrom(int64(actor.UserID))
			r.ApprovedAt = null.TimeFrom(now)
			r.ApprovalComment = comment

			meta := events.NewMeta(actor, now)
			if decision == domain.ApprovalStatusApproved {
				return events.ReservationApproved{Meta: meta, Reservation: *r}, nil
			}
			return events.ReservationRejected{Meta: meta, Reservation: *r}, nil
		})
}

func (s *reservationService) Get(ctx context.Context, id int32) (*domain.Reservation, error) {
	if _, err := authorize(ctx, readRole); err != nil {
		return nil, err
	}
	r, err := s.store.Reservations().GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewNotFound("reservation", id)
	}
	return r, err
}

func (s *reservationService) List(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, int32, error) {
	if _, err := authorize(ctx, readRole); err != nil {
		return nil, 0, err
	}
	return s.store.Reservations().List(ctx, filter)
}
