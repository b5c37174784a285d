package notifier

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"rental-car-dashboard/internal/domain"
	"rental-car-dashboard/internal/events"

	"firebase.google.com/go/v4/messaging"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSender struct {
	mock.Mock
	name string
}

func (m *MockSender) Name() string { return m.name }

func (m *MockSender) Send(ctx context.Context, msg Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MockEmailClient struct {
	mock.Mock
}

func (m *MockEmailClient) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rest.Response), args.Error(1)
}

type MockMessagingClient struct {
	mock.Mock
}

func (m *MockMessagingClient) Send(ctx context.Context, message *messaging.Message) (string, error) {
	args := m.Called(ctx, message)
	return args.String(0), args.Error(1)
}

func settledEvent() events.ReservationSettled {
	return events.ReservationSettled{
		Meta: events.NewMeta(domain.Actor{UserID: 1, Email: "desk@example.com", Role: domain.RoleStaff}, time.Now()),
		Reservation: domain.Reservation{
			Code:         "RS-00001",
			CustomerName: "Taro Yamada",
			PickupAt:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			ReturnAt:     time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC),
		},
		Payment: domain.Payment{Code: "PM-00001", Amount: 16500},
	}
}

func TestRender(t *testing.T) {
	msg := Render(settledEvent())
	assert.Equal(t, events.KindReservationSettled, msg.Kind)
	assert.Equal(t, "RS-00001", msg.ReservationCode)
	assert.Equal(t, "RS-00001 settled", msg.Subject)
	assert.Contains(t, msg.Body, "Payment PM-00001 for 16500 recorded.")
	assert.Contains(t, msg.Body, "2026-03-01 09:00 - 2026-03-03 18:00")
	assert.Contains(t, msg.Body, "By desk@example.com.")

	overdue := Render(events.ReturnOverdue{
		Reservation: domain.Reservation{Code: "RS-00007"},
		Overdue:     90*time.Minute + 17*time.Second,
	})
	assert.Equal(t, "RS-00007 is overdue", overdue.Subject)
	assert.Contains(t, overdue.Body, "1h30m0s")
}

func TestHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		email := &MockSender{name: "email"}
		push := &MockSender{name: "push"}
		email.On("Send", ctx, mock.AnythingOfType("notifier.Message")).Return(nil)
		push.On("Send", ctx, mock.AnythingOfType("notifier.Message")).Return(nil)

		err := NewHandler(email, push).Handle(ctx, settledEvent())
		assert.NoError(t, err)
		email.AssertExpectations(t)
		push.AssertExpectations(t)
	})

	t.Run("All senders are attempted", func(t *testing.T) {
		email := &MockSender{name: "email"}
		push := &MockSender{name: "push"}
		email.On("Send", ctx, mock.Anything).Return(errors.New("smtp down"))
		push.On("Send", ctx, mock.Anything).Return(nil)

		err := NewHandler(email, push).Handle(ctx, settledEvent())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "email: smtp down")
		push.AssertNumberOfCalls(t, "Send", 1)
	})
}

func TestHandler_Register(t *testing.T) {
	bus := events.NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	NewHandler().Register(bus)
	for _, k := range events.AllKinds {
		assert.Equal(t, 1, bus.HandlerCount(k), string(k))
	}
}

func TestEmailSender(t *testing.T) {
	ctx := context.Background()
	msg := Render(settledEvent())

	t.Run("Success", func(t *testing.T) {
		client := new(MockEmailClient)
		client.On("SendWithContext", ctx, mock.MatchedBy(func(m *mail.SGMailV3) bool {
			return m.Subject == "RS-00001 settled" &&
				m.From.Address == "noreply@example.com" &&
				m.Personalizations[0].To[0].Address == "ops@example.com"
		})).Return(&rest.Response{StatusCode: 202}, nil)

		s := newEmailSender(client, "noreply@example.com", "Dispatch", "ops@example.com")
		assert.NoError(t, s.Send(ctx, msg))
		client.AssertExpectations(t)
	})

	t.Run("Rejected by API", func(t *testing.T) {
		client := new(MockEmailClient)
		client.On("SendWithContext", ctx, mock.Anything).Return(&rest.Response{StatusCode: 401, Body: "bad key"}, nil)

		s := newEmailSender(client, "noreply@example.com", "Dispatch", "ops@example.com")
		err := s.Send(ctx, msg)
		assert.ErrorContains(t, err, "status 401")
	})

	t.Run("Transport error", func(t *testing.T) {
		client := new(MockEmailClient)
		client.On("SendWithContext", ctx, mock.Anything).Return(nil, errors.New("timeout"))

		s := newEmailSender(client, "noreply@example.com", "Dispatch", "ops@example.com")
		assert.ErrorContains(t, s.Send(ctx, msg), "timeout")
	})
}

func TestPushSender(t *testing.T) {
	ctx := context.Background()
	client := new(MockMessagingClient)
	client.On("Send", ctx, mock.MatchedBy(func(m *messaging.Message) bool {
		return m.Topic == "dispatch" && m.Notification.Title == "RS-00001 settled" && m.Data["code"] == "RS-00001"
	})).Return("projects/p/messages/1", nil)

	s := &PushSender{client: client, topic: "dispatch"}
	assert.NoError(t, s.Send(ctx, Render(settledEvent())))
	client.AssertExpectations(t)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, s.Send(context.Background(), Render(settledEvent())))
	assert.Contains(t, buf.String(), "code=RS-00001")
}
