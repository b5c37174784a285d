package board

import (
	"context"
	"slices"
	"sync"

	"rental-car-dashboard/internal/domain"
	"rental-car-dashboard/internal/service"
)

// Editor is the edit transition the buffer commits through.
type Editor interface {
	Update(ctx context.Context, id int32, in service.UpdateReservationInput) (*domain.Reservation, error)
}

type CommitResult struct {
	ReservationID int32
	Reservation   *domain.Reservation
	Err           error
}

// PendingChanges buffers proposed intervals per reservation until they are
// committed. Nothing here is persisted.
type PendingChanges struct {
	mu      sync.Mutex
	changes map[int32]domain.Interval
}

func NewPendingChanges() *PendingChanges {
	return &PendingChanges{changes: make(map[int32]domain.Interval)}
}

// Stage records or replaces the proposed interval for a reservation.
func (p *PendingChanges) Stage(id int32, interval domain.Interval) error {
	if !interval.Valid() {
		return domain.NewValidationError("return_at", "must be after pickup_at")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes[id] = interval
	return nil
}

func (p *PendingChanges) Discard(id int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.changes, id)
}

func (p *PendingChanges) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.changes)
}

func (p *PendingChanges) Get(id int32) (domain.Interval, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i, ok := p.changes[id]
	return i, ok
}

// Commit applies every staged change through editor in reservation id order.
// Entries that commit are removed; failed ones stay staged.
func (p *PendingChanges) Commit(ctx context.Context, editor Editor) []CommitResult {
	p.mu.Lock()
	ids := make([]int32, 0, len(p.changes))
	staged := make(map[int32]domain.Interval, len(p.changes))
	for id, i := range p.changes {
		ids = append(ids, id)
		staged[id] = i
	}
	p.mu.Unlock()
	slices.Sort(ids)

	results := make([]CommitResult, 0, len(ids))
	for _, id := range ids {
		r, err := editor.Update(ctx, id, service.Reschedule(staged[id]))
		results = append(results, CommitResult{ReservationID: id, Reservation: r, Err: err})
		if err == nil {
			p.mu.Lock()
			if cur, ok := p.changes[id]; ok && cur.Equal(staged[id]) {
				delete(p.changes, id)
			}
			p.mu.Unlock()
		}
	}
	return results
}
