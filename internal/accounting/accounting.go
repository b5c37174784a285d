// Package accounting forwards settled reservations to the external
// accounting system as journal entries.
package accounting

import (
	"context"
	"fmt"
	"time"

	"rental-car-dashboard/internal/domain"
	"rental-car-dashboard/internal/events"
	"rental-car-dashboard/internal/logger"
)

const dateLayout = "2006-01-02"

type JournalEntry struct {
	EventID         string    `json:"event_id"`
	ReservationCode string    `json:"reservation_code"`
	PaymentCode     string    `json:"payment_code"`
	CustomerName    string    `json:"customer_name"`
	Amount          int32     `json:"amount"`
	Category        string    `json:"category,omitempty"`
	SettledAt       time.Time `json:"settled_at"`
	RevenueDate     string    `json:"revenue_date,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, entry JournalEntry) error
}

// SyncHandler publishes one journal entry per settlement. Corporate
// customers are invoiced separately and zero amounts carry nothing to book,
// so both are skipped. Failed publishes are retried with linear backoff.
type SyncHandler struct {
	publisher   Publisher
	maxAttempts int
	backoff     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewSyncHandler(publisher Publisher, maxAttempts int, backoff time.Duration) *SyncHandler {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &SyncHandler{
		publisher:   publisher,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		sleep:       sleepContext,
	}
}

func (h *SyncHandler) Register(bus *events.Bus) {
	bus.On(events.KindReservationSettled, "accounting", h.Handle)
}

func (h *SyncHandler) Handle(ctx context.Context, e events.Event) error {
	settled, ok := e.(events.ReservationSettled)
	if !ok {
		return nil
	}
	r := settled.Reservation
	if r.CustomerKind == domain.CustomerKindCorporate {
		logger.Debug("Skipping accounting sync for corporate customer", "code", r.Code)
		return nil
	}
	if settled.Payment.Amount == 0 {
		logger.Debug("Skipping accounting sync for zero amount", "code", r.Code)
		return nil
	}

	entry := JournalEntry{
		EventID:         settled.Metadata().ID.String(),
		ReservationCode: r.Code,
		PaymentCode:     settled.Payment.Code,
		CustomerName:    r.CustomerName,
		Amount:          settled.Payment.Amount,
		Category:        settled.Payment.Category,
		SettledAt:       r.SettledAt.Time,
	}
	if r.RevenueDate.Valid {
		entry.RevenueDate = r.RevenueDate.Time.Format(dateLayout)
	}

	var err error
	for attempt := 1; attempt <= h.maxAttempts; attempt++ {
		logger.ExternalServiceCall("accounting", "Publish", "code", r.Code, "attempt", attempt)
		err = h.publisher.Publish(ctx, entry)
		logger.ExternalServiceResult("accounting", "Publish", err, "code", r.Code, "attempt", attempt)
		if err == nil {
			return nil
		}
		if attempt == h.maxAttempts {
			break
		}
		if serr := h.sleep(ctx, time.Duration(attempt)*h.backoff); serr != nil {
			return fmt.Errorf("publish %s: %w (gave up: %w)", r.Code, err, serr)
		}
	}
	return fmt.Errorf("publish %s after %d attempts: %w", r.Code, h.maxAttempts, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
