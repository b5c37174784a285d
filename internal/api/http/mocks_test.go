package http

import (
	"context"

	"rental-car-dashboard/internal/domain"
	"rental-car-dashboard/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) reservation(args mock.Arguments) (*domain.Reservation, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockReservationService) Create(ctx context.Context, in service.CreateReservationInput) (*domain.Reservation, error) {
	return m.reservation(m.Called(ctx, in))
}

func (m *MockReservationService) Update(ctx context.Context, id int32, in service.UpdateReservationInput) (*domain.Reservation, error) {
	return m.reservation(m.Called(ctx, id, in))
}

func (m *MockReservationService) Cancel(ctx context.Context, id int32) (*domain.Reservation, error) {
	return m.reservation(m.Called(ctx, id))
}

func (m *MockReservationService) AssignVehicle(ctx context.Context, id, vehicleID int32) (*domain.Reservation, error) {
	return m.reservation(m.Called(ctx, id, vehicleID))
}

func (m *MockReservationService) UnassignVehicle(ctx context.Context, id int32) (*domain.Reservation, error) {
	return m.reservation(m.Called(ctx, id))
}

func (m *MockReservationService) Depart(ctx context.Context, id int32, in service.DepartInput) (*domain.Reservation, error) {
	return m.reservation(m.Called(ctx, id, in))
}

func (m *MockReservationService) Return(ctx context.Context, id int32, in service.ReturnInput) (*domain.Reservation, error) {
	return m.reservation(m.Called(ctx, id, in))
}

func (m *MockReservationService) Settle(ctx context.Context, id int32, in service.SettleInput) (*domain.Reservation, *domain.Payment, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Reservation), args.Get(1).(*domain.Payment), args.Error(2)
}

func (m *MockReservationService) Approve(ctx context.Context, id int32, comment string) (*domain.Reservation, error) {
	return m.reservation(m.Called(ctx, id, comment))
}

func (m *MockReservationService) Reject(ctx context.Context, id int32, comment string) (*domain.Reservation, error) {
	return m.reservation(m.Called(ctx, id, comment))
}

func (m *MockReservationService) Get(ctx context.Context, id int32) (*domain.Reservation, error) {
	return m.reservation(m.Called(ctx, id))
}

func (m *MockReservationService) List(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, int32, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Reservation), args.Get(1).(int32), args.Error(2)
}
