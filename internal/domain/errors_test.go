package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	t.Run("Validation", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", NewValidationError("odometer", "must not be below 10000"))
		assert.True(t, errors.Is(err, ErrValidation))
		assert.False(t, errors.Is(err, ErrNotFound))
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve))
		assert.Equal(t, "must not be below 10000", ve.Fields["odometer"])
	})

	t.Run("Uniqueness is a validation variant", func(t *testing.T) {
		err := NewUniquenessError("code", "PM-00003", ErrUniqueViolation)
		assert.True(t, errors.Is(err, ErrValidation))
		assert.True(t, errors.Is(err, ErrUniqueViolation))
		assert.Contains(t, err.Error(), "PM-00003")
	})

	t.Run("Schedule conflict names the code", func(t *testing.T) {
		start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		err := &ScheduleConflictError{VehicleID: 1, ConflictingCode: "RS-00001", Conflicting: Interval{Start: start, End: start.Add(time.Hour)}}
		assert.True(t, errors.Is(err, ErrValidation))
		assert.Contains(t, err.Error(), "RS-00001")
	})

	t.Run("State conflict names current status", func(t *testing.T) {
		err := NewStateConflict("depart", ReservationStatusReserved)
		assert.True(t, errors.Is(err, ErrStateConflict))
		assert.Contains(t, err.Error(), "RESERVED")
	})

	t.Run("Field-only message", func(t *testing.T) {
		ve := &ValidationError{}
		assert.True(t, ve.Empty())
		ve.Add("return_at", "must be after pickup_at")
		ve.Add("customer_name", "is required")
		assert.Equal(t, "invalid input: customer_name: is required; return_at: must be after pickup_at", ve.Error())
	})

	t.Run("Not found and permission", func(t *testing.T) {
		assert.True(t, errors.Is(NewNotFound("reservation", int32(4)), ErrNotFound))
		perr := &PermissionError{Required: RoleManager, Actual: RoleStaff}
		assert.True(t, errors.Is(perr, ErrPermission))
		assert.Contains(t, perr.Error(), "MANAGER")
	})
}

func TestRole_AtLeast(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleManager))
	assert.True(t, RoleManager.AtLeast(RoleManager))
	assert.False(t, RoleStaff.AtLeast(RoleManager))
	assert.False(t, Role("GUEST").AtLeast(RoleViewer))
}

func TestReservationStatus_ClaimsVehicle(t *testing.T) {
	claiming := []ReservationStatus{ReservationStatusReserved, ReservationStatusConfirmed, ReservationStatusDeparted}
	for _, s := range claiming {
		assert.True(t, s.ClaimsVehicle(), s)
	}
	for _, s := range []ReservationStatus{ReservationStatusReturned, ReservationStatusSettled, ReservationStatusCancelled} {
		assert.False(t, s.ClaimsVehicle(), s)
	}
	assert.True(t, ReservationStatusSettled.IsTerminal())
	assert.False(t, ReservationStatusReturned.IsTerminal())
}
