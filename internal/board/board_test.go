package board

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rental-car-dashboard/internal/domain"
	"rental-car-dashboard/internal/events"
	"rental-car-dashboard/internal/service"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"
)

type MockEditor struct {
	mock.Mock
}

func (m *MockEditor) Update(ctx context.Context, id int32, in service.UpdateReservationInput) (*domain.Reservation, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func interval(day int) domain.Interval {
	start := time.Date(2026, 3, day, 9, 0, 0, 0, time.UTC)
	return domain.Interval{Start: start, End: start.Add(24 * time.Hour)}
}

func TestPendingChanges(t *testing.T) {
	t.Run("Stage and discard", func(t *testing.T) {
		p := NewPendingChanges()
		require.NoError(t, p.Stage(1, interval(1)))
		require.NoError(t, p.Stage(2, interval(2)))
		require.NoError(t, p.Stage(1, interval(3)))
		assert.Equal(t, 2, p.Len())

		got, ok := p.Get(1)
		require.True(t, ok)
		assert.True(t, got.Equal(interval(3)))

		p.Discard(2)
		assert.Equal(t, 1, p.Len())
	})

	t.Run("Rejects inverted interval", func(t *testing.T) {
		p := NewPendingChanges()
		bad := domain.Interval{Start: interval(2).End, End: interval(2).Start}
		err := p.Stage(1, bad)
		assert.True(t, errors.Is(err, domain.ErrValidation))
		assert.Zero(t, p.Len())
	})

	t.Run("Commit keeps failed entries", func(t *testing.T) {
		ctx := context.Background()
		p := NewPendingChanges()
		require.NoError(t, p.Stage(7, interval(1)))
		require.NoError(t, p.Stage(3, interval(4)))

		editor := new(MockEditor)
		editor.On("Update", ctx, int32(3), service.Reschedule(interval(4))).
			Return(&domain.Reservation{ID: 3, Code: "RS-00003"}, nil)
		editor.On("Update", ctx, int32(7), service.Reschedule(interval(1))).
			Return(nil, &domain.ScheduleConflictError{VehicleID: 1, ConflictingCode: "RS-00002"})

		results := p.Commit(ctx, editor)
		require.Len(t, results, 2)
		assert.Equal(t, int32(3), results[0].ReservationID)
		assert.NoError(t, results[0].Err)
		assert.Equal(t, "RS-00003", results[0].Reservation.Code)
		assert.Equal(t, int32(7), results[1].ReservationID)
		assert.True(t, errors.Is(results[1].Err, domain.ErrScheduleConflict))

		assert.Equal(t, 1, p.Len())
		_, stillStaged := p.Get(7)
		assert.True(t, stillStaged)
		editor.AssertExpectations(t)
	})
}

func TestHub_Broadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	bus := events.NewBus(nil)
	hub.Register(bus)
	bus.Emit(ctx, events.ResourceAssigned{
		Meta: events.NewMeta(domain.Actor{UserID: 1, Role: domain.RoleStaff}, time.Now()),
		Reservation: domain.Reservation{
			Code:      "RS-00001",
			Status:    domain.ReservationStatusConfirmed,
			VehicleID: null.IntFrom(4),
			PickupAt:  interval(1).Start,
			ReturnAt:  interval(1).End,
		},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame Frame
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, events.KindReservationResourceAssigned, frame.Kind)
	assert.Equal(t, "RS-00001", frame.Code)
	assert.Equal(t, int64(4), frame.VehicleID)
}

func TestHub_DropsWhenFull(t *testing.T) {
	hub := NewHub()
	e := events.ReservationCreated{Reservation: domain.Reservation{Code: "RS-00001"}}
	for i := 0; i < broadcastBuffer+10; i++ {
		assert.NoError(t, hub.Handle(context.Background(), e))
	}
	assert.Len(t, hub.broadcast, broadcastBuffer)
}

func TestHub_ServeWS_Origin(t *testing.T) {
	dial := func(t *testing.T, hub *Hub, origin string) (*http.Response, error) {
		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)
		go hub.Run(ctx)

		srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
		t.Cleanup(srv.Close)

		header := http.Header{}
		if origin != "" {
			header.Set("Origin", origin)
		}
		conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
		if err == nil {
			conn.Close()
		}
		return resp, err
	}

	t.Run("Cross origin rejected by default", func(t *testing.T) {
		resp, err := dial(t, NewHub(), "https://evil.example")
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("Unlisted origin rejected", func(t *testing.T) {
		resp, err := dial(t, NewHub("https://board.example"), "https://evil.example")
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("Listed origin accepted", func(t *testing.T) {
		_, err := dial(t, NewHub(" https://Board.example/ "), "https://board.example")
		assert.NoError(t, err)
	})

	t.Run("No origin accepted", func(t *testing.T) {
		_, err := dial(t, NewHub("https://board.example"), "")
		assert.NoError(t, err)
	})
}
