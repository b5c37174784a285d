package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rental-car-dashboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus() (*Bus, *bytes.Buffer) {
	var buf bytes.Buffer
	var mu sync.Mutex
	log := slog.New(slog.NewTextHandler(&lockedWriter{w: &buf, mu: &mu}, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewBus(log), &buf
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func settled() ReservationSettled {
	return ReservationSettled{
		Meta:        NewMeta(domain.Actor{UserID: 1, Role: domain.RoleStaff}, time.Now()),
		Reservation: domain.Reservation{ID: 1, Code: "RS-00001"},
		Payment:     domain.Payment{Code: "PM-00001", Amount: 16500},
	}
}

func TestBus_EmitWithoutHandlers(t *testing.T) {
	bus, _ := newTestBus()
	assert.Equal(t, 0, bus.HandlerCount(KindReservationSettled))
	assert.NotPanics(t, func() { bus.Emit(context.Background(), settled()) })
}

func TestBus_HandlerIsolation(t *testing.T) {
	bus, logs := newTestBus()
	var notified atomic.Bool

	bus.On(KindReservationSettled, "accounting", func(ctx context.Context, e Event) error {
		return errors.New("accounting api unavailable")
	})
	bus.On(KindReservationSettled, "notification", func(ctx context.Context, e Event) error {
		time.Sleep(10 * time.Millisecond)
		notified.Store(true)
		return nil
	})

	bus.Emit(context.Background(), settled())

	assert.True(t, notified.Load(), "sibling handler must complete before Emit returns")
	assert.Contains(t, logs.String(), "accounting api unavailable")
	assert.Contains(t, logs.String(), "handler=accounting")
	assert.Contains(t, logs.String(), "kind=reservation.settled")
}

func TestBus_PanicIsContained(t *testing.T) {
	bus, logs := newTestBus()
	var ran atomic.Int32

	bus.On(KindReservationCreated, "broken", func(ctx context.Context, e Event) error {
		panic("nil map")
	})
	bus.On(KindReservationCreated, "ok", func(ctx context.Context, e Event) error {
		ran.Add(1)
		return nil
	})

	assert.NotPanics(t, func() {
		bus.Emit(context.Background(), ReservationCreated{Meta: NewMeta(domain.Actor{}, time.Now())})
	})
	assert.Equal(t, int32(1), ran.Load())
	assert.Contains(t, logs.String(), "handler panicked: nil map")
}

func TestBus_OnlyMatchingKind(t *testing.T) {
	bus, _ := newTestBus()
	var created, settledCount atomic.Int32
	bus.On(KindReservationCreated, "created", func(ctx context.Context, e Event) error {
		created.Add(1)
		return nil
	})
	bus.On(KindReservationSettled, "settled", func(ctx context.Context, e Event) error {
		settledCount.Add(1)
		_, ok := e.(ReservationSettled)
		assert.True(t, ok)
		return nil
	})

	bus.Emit(context.Background(), settled())

	assert.Equal(t, int32(0), created.Load())
	assert.Equal(t, int32(1), settledCount.Load())
}

func TestBus_HandlersRunConcurrently(t *testing.T) {
	bus, _ := newTestBus()
	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(2)

	for _, name := range []string{"a", "b"} {
		bus.On(KindReservationApproved, name, func(ctx context.Context, e Event) error {
			started.Done()
			<-release
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		bus.Emit(context.Background(), ReservationApproved{Meta: NewMeta(domain.Actor{}, time.Now())})
		close(done)
	}()

	// Both handlers must be in flight at once for this to return.
	started.Wait()
	select {
	case <-done:
		t.Fatal("Emit returned before handlers finished")
	default:
	}
	close(release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit did not return after handlers finished")
	}
}

func TestBus_OnAll(t *testing.T) {
	bus, _ := newTestBus()
	bus.OnAll(AllKinds, "board", func(ctx context.Context, e Event) error { return nil })
	for _, k := range AllKinds {
		require.Equal(t, 1, bus.HandlerCount(k), k)
	}
}
