package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrStateConflict   = errors.New("state conflict")
	ErrPermission      = errors.New("permission denied")
	ErrUniqueViolation = errors.New("unique constraint violated")
	// ErrScheduleConflict marks a vehicle double booking, whether caught by
	// the conflict check or by a storage constraint.
	ErrScheduleConflict = errors.New("vehicle schedule conflict")
)

// ValidationError reports input that cannot be accepted, optionally per field.
type ValidationError struct {
	Message string
	Fields  map[string]string
	Err     error
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Message: msg, Fields: map[string]string{field: msg}}
}

// NewUniquenessError wraps a storage unique violation as a validation failure.
func NewUniquenessError(field, code string, err error) *ValidationError {
	msg := fmt.Sprintf("code %s is already in use, please retry", code)
	return &ValidationError{Message: msg, Fields: map[string]string{field: msg}, Err: err}
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

func (e *ValidationError) Empty() bool {
	return e.Message == "" && len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
func (e *ValidationError) Unwrap() error        { return e.Err }

// ScheduleConflictError is the validation variant raised when a vehicle is
// already claimed by another reservation over an overlapping interval.
type ScheduleConflictError struct {
	VehicleID       int32
	ConflictingCode string
	Conflicting     Interval
}

func (e *ScheduleConflictError) Error() string {
	return fmt.Sprintf("vehicle %d is already booked by %s (%s - %s)",
		e.VehicleID, e.ConflictingCode,
		e.Conflicting.Start.Format("2006-01-02 15:04"), e.Conflicting.End.Format("2006-01-02 15:04"))
}

func (e *ScheduleConflictError) Is(target error) bool {
	return target == ErrValidation || target == ErrScheduleConflict
}

type NotFoundError struct {
	Entity string
	ID     any
}

func NewNotFound(entity string, id any) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StateConflictError is returned when a transition is attempted from a status
// outside its allowed set.
type StateConflictError struct {
	Operation string
	Field     string
	Current   string
}

func NewStateConflict(op string, current ReservationStatus) *StateConflictError {
	return &StateConflictError{Operation: op, Field: "status", Current: string(current)}
}

func NewApprovalConflict(op string, current ApprovalStatus) *StateConflictError {
	return &StateConflictError{Operation: op, Field: "approval_status", Current: string(current)}
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s: reservation %s is %s", e.Operation, e.Field, e.Current)
}

func (e *StateConflictError) Is(target error) bool { return target == ErrStateConflict }

type PermissionError struct {
	Required Role
	Actual   Role
}

func (e *PermissionError) Error() string {
	if e.Actual == "" {
		return "permission denied: not authenticated"
	}
	return fmt.Sprintf("permission denied: role %s required, have %s", e.Required, e.Actual)
}

func (e *PermissionError) Is(target error) bool { return target == ErrPermission }
