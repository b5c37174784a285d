package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type ReservationStatus string

const (
	ReservationStatusReserved  ReservationStatus = "RESERVED"
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusDeparted  ReservationStatus = "DEPARTED"
	ReservationStatusReturned  ReservationStatus = "RETURNED"
	ReservationStatusSettled   ReservationStatus = "SETTLED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

// ClaimsVehicle reports whether a reservation in this status still holds its
// vehicle for the requested interval.
func (s ReservationStatus) ClaimsVehicle() bool {
	switch s {
	case ReservationStatusReserved, ReservationStatusConfirmed, ReservationStatusDeparted:
		return true
	}
	return false
}

func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationStatusSettled || s == ReservationStatusCancelled
}

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

type CustomerKind string

const (
	CustomerKindIndividual CustomerKind = "INDIVIDUAL"
	CustomerKindCorporate  CustomerKind = "CORPORATE"
)

const ReservationCodePrefix = "RS-"

type Reservation struct {
	ID             int32        `json:"id"`
	Code           string       `json:"code"`
	VehicleClassID int32        `json:"vehicle_class_id"`
	VehicleID      null.Int     `json:"vehicle_id"`
	CustomerKind   CustomerKind `json:"customer_kind"`
	CustomerName   string       `json:"customer_name"`
	CustomerPhone  string       `json:"customer_phone"`
	CustomerEmail  string       `json:"customer_email"`
	PickupAt       time.Time    `json:"pickup_at"`
	ReturnAt       time.Time    `json:"return_at"`
	// Actuals are recorded at departure and return.
	ActualPickupAt    null.Time `json:"actual_pickup_at"`
	ActualReturnAt    null.Time `json:"actual_return_at"`
	DepartureOdometer null.Int  `json:"departure_odometer"`
	ReturnOdometer    null.Int  `json:"return_odometer"`
	DepartureFuel     null.Int  `json:"departure_fuel"`
	ReturnFuel        null.Int  `json:"return_fuel"`
	DrivenVehicleID   null.Int  `json:"driven_vehicle_id"`

	Status          ReservationStatus `json:"status"`
	ApprovalStatus  ApprovalStatus    `json:"approval_status"`
	ApprovedBy      null.Int          `json:"approved_by"`
	ApprovedAt      null.Time         `json:"approved_at"`
	ApprovalComment string            `json:"approval_comment"`

	EstimatedAmount int32     `json:"estimated_amount"`
	ActualAmount    null.Int  `json:"actual_amount"`
	SettledAt       null.Time `json:"settled_at"`
	RevenueDate     null.Time `json:"revenue_date"`
	Note            string    `json:"note"`
	CreatedBy       int32     `json:"created_by"`
	CreatedOn       time.Time `json:"created_on"`
	UpdatedOn       time.Time `json:"updated_on"`
}

// Requested returns the booked [pickup, return) interval.
func (r *Reservation) Requested() Interval {
	return Interval{Start: r.PickupAt, End: r.ReturnAt}
}

// AssignedVehicle returns the assigned vehicle id, if any.
func (r *Reservation) AssignedVehicle() (int32, bool) {
	if !r.VehicleID.Valid {
		return 0, false
	}
	return int32(r.VehicleID.Int64), true
}

type ReservationFilter struct {
	Status    ReservationStatus
	VehicleID int32
	From      time.Time // pickup on or after
	To        time.Time // pickup before
	Page      int32
	PageSize  int32
}
