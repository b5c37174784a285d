// Package memory is an in-process Store used by tests and by the server when
// no database is configured. It enforces the same uniqueness and vehicle
// exclusion rules as the Postgres schema.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"rental-car-dashboard/internal/conflict"
	"rental-car-dashboard/internal/domain"
	"rental-car-dashboard/internal/repository"
	"rental-car-dashboard/internal/utils"
)

type state struct {
	reservations map[int32]domain.Reservation
	vehicles     map[int32]domain.Vehicle
	payments     map[int32]domain.Payment
	nextID       int32
}

func (s *state) clone() state {
	return state{
		reservations: maps.Clone(s.reservations),
		vehicles:     maps.Clone(s.vehicles),
		payments:     maps.Clone(s.payments),
		nextID:       s.nextID,
	}
}

func (s *state) id() int32 {
	s.nextID++
	return s.nextID
}

type Store struct {
	mu    sync.Mutex
	data  state
	clock func() time.Time

	// paymentErr, when set, is returned by the next payment insert.
	paymentErr error
}

func NewStore() *Store {
	return &Store{
		data: state{
			reservations: make(map[int32]domain.Reservation),
			vehicles:     make(map[int32]domain.Vehicle),
			payments:     make(map[int32]domain.Payment),
		},
		clock: time.Now,
	}
}

// AddVehicle seeds a vehicle and returns it with its assigned ID.
func (s *Store) AddVehicle(v domain.Vehicle) domain.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.ID == 0 {
		v.ID = s.data.id()
	} else if v.ID > s.data.nextID {
		s.data.nextID = v.ID
	}
	if v.Status == "" {
		v.Status = domain.VehicleStatusInStock
	}
	s.data.vehicles[v.ID] = v
	return v
}

// FailNextPayment makes the next payment insert fail with err.
func (s *Store) FailNextPayment(err error) {
	s.mu.Lock()
	s.paymentErr = err
	s.mu.Unlock()
}

// Do holds the store lock for the whole unit. fn sees its own writes and the
// previous state is restored when fn fails.
func (s *Store) Do(ctx context.Context, _ repository.TxOptions, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(txView{s: s}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) locked() txView { return txView{s: s, lock: true} }

func (s *Store) Reservations() repository.ReservationRepository { return s.locked() }
func (s *Store) Vehicles() repository.VehicleRepository         { return vehicleView{s.locked()} }
func (s *Store) Payments() repository.PaymentRepository         { return paymentView{s.locked()} }
func (s *Store) Codes() repository.CodeGenerator                { return codeView{s.locked()} }

// txView implements every repository over the shared state. Views handed out
// inside Do run under the lock already held by Do.
type txView struct {
	s    *Store
	lock bool
}

func (v txView) enter() func() {
	if !v.lock {
		return func() {}
	}
	v.s.mu.Lock()
	return v.s.mu.Unlock
}

func (v txView) Reservations() repository.ReservationRepository { return v }
func (v txView) Vehicles() repository.VehicleRepository         { return vehicleView{v} }
func (v txView) Payments() repository.PaymentRepository         { return paymentView{v} }
func (v txView) Codes() repository.CodeGenerator                { return codeView{v} }

func (v txView) Create(_ context.Context, r *domain.Reservation) error {
	defer v.enter()()
	d := &v.s.data
	for _, other := range d.reservations {
		if other.Code == r.Code {
			return fmt.Errorf("insert reservation %s: %w: reservations_code_key", r.Code, domain.ErrUniqueViolation)
		}
	}
	if err := v.checkExclusion(r); err != nil {
		return fmt.Errorf("insert reservation %s: %w", r.Code, err)
	}
	now := v.s.clock()
	r.ID = d.id()
	r.CreatedOn, r.UpdatedOn = now, now
	d.reservations[r.ID] = *r
	return nil
}

func (v txView) GetByID(_ context.Context, id int32) (*domain.Reservation, error) {
	defer v.enter()()
	r, ok := v.s.data.reservations[id]
	if !ok {
		return nil, fmt.Errorf("get reservation %d: %w", id, domain.ErrNotFound)
	}
	return &r, nil
}

func (v txView) Update(_ context.Context, r *domain.Reservation) error {
	defer v.enter()()
	d := &v.s.data
	if _, ok := d.reservations[r.ID]; !ok {
		return fmt.Errorf("update reservation %d: %w", r.ID, domain.ErrNotFound)
	}
	if err := v.checkExclusion(r); err != nil {
		return fmt.Errorf("update reservation %d: %w", r.ID, err)
	}
	r.UpdatedOn = v.s.clock()
	d.reservations[r.ID] = *r
	return nil
}

func (v txView) List(_ context.Context, f domain.ReservationFilter) ([]domain.Reservation, int32, error) {
	defer v.enter()()
	var out []domain.Reservation
	for _, r := range v.s.data.reservations {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.VehicleID != 0 && r.VehicleID.Int64 != int64(f.VehicleID) {
			continue
		}
		if !f.From.IsZero() && r.PickupAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !r.PickupAt.Before(f.To) {
			continue
		}
		out = append(out, r)
	}
	sortByPickup(out)
	total := int32(len(out))

	if f.PageSize > 0 {
		page := max(f.Page, 1)
		start := min(int((page-1)*f.PageSize), len(out))
		end := min(start+int(f.PageSize), len(out))
		out = out[start:end]
	}
	return out, total, nil
}

func (v txView) ListActiveByVehicle(_ context.Context, vehicleID int32) ([]domain.Reservation, error) {
	defer v.enter()()
	return v.activeByVehicle(vehicleID), nil
}

func (v txView) activeByVehicle(vehicleID int32) []domain.Reservation {
	var out []domain.Reservation
	for _, r := range v.s.data.reservations {
		if id, ok := r.AssignedVehicle(); ok && id == vehicleID && r.Status.ClaimsVehicle() {
			out = append(out, r)
		}
	}
	sortByPickup(out)
	return out
}

// checkExclusion mirrors the reservations_vehicle_overlap constraint.
func (v txView) checkExclusion(r *domain.Reservation) error {
	vehicleID, ok := r.AssignedVehicle()
	if !ok || !r.Status.ClaimsVehicle() {
		return nil
	}
	if hit := conflict.Find(r.ID, vehicleID, r.Requested(), v.activeByVehicle(vehicleID)); hit != nil {
		return fmt.Errorf("%w: reservations_vehicle_overlap", domain.ErrScheduleConflict)
	}
	return nil
}

func sortByPickup(rs []domain.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].PickupAt.Equal(rs[j].PickupAt) {
			return rs[i].PickupAt.Before(rs[j].PickupAt)
		}
		return rs[i].ID < rs[j].ID
	})
}

type vehicleView struct{ txView }

func (v vehicleView) GetByID(_ context.Context, id int32) (*domain.Vehicle, error) {
	defer v.enter()()
	veh, ok := v.s.data.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("get vehicle %d: %w", id, domain.ErrNotFound)
	}
	return &veh, nil
}

func (v vehicleView) Update(_ context.Context, veh *domain.Vehicle) error {
	defer v.enter()()
	if _, ok := v.s.data.vehicles[veh.ID]; !ok {
		return fmt.Errorf("update vehicle %d: %w", veh.ID, domain.ErrNotFound)
	}
	veh.UpdatedOn = v.s.clock()
	v.s.data.vehicles[veh.ID] = *veh
	return nil
}

type paymentView struct{ txView }

func (v paymentView) Create(_ context.Context, p *domain.Payment) error {
	defer v.enter()()
	if err := v.s.paymentErr; err != nil {
		v.s.paymentErr = nil
		return fmt.Errorf("insert payment %s: %w", p.Code, err)
	}
	d := &v.s.data
	for _, other := range d.payments {
		if other.Code == p.Code {
			return fmt.Errorf("insert payment %s: %w: payments_code_key", p.Code, domain.ErrUniqueViolation)
		}
	}
	if p.Amount < 0 {
		return fmt.Errorf("insert payment %s: amount must not be negative", p.Code)
	}
	p.ID = d.id()
	p.CreatedOn = v.s.clock()
	d.payments[p.ID] = *p
	return nil
}

func (v paymentView) ListByReservation(_ context.Context, reservationID int32) ([]domain.Payment, error) {
	defer v.enter()()
	var out []domain.Payment
	for _, p := range v.s.data.payments {
		if p.ReservationID == reservationID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type codeView struct{ txView }

func (v codeView) Next(_ context.Context, kind domain.CodeKind) (string, error) {
	defer v.enter()()
	prefix := kind.Prefix()
	if prefix == "" {
		return "", fmt.Errorf("unknown code kind %q", kind)
	}

	var codes []string
	switch kind {
	case domain.CodeKindReservation:
		for _, r := range v.s.data.reservations {
			codes = append(codes, r.Code)
		}
	case domain.CodeKindPayment:
		for _, p := range v.s.data.payments {
			codes = append(codes, p.Code)
		}
	}

	best := -1
	for _, c := range codes {
		if n, err := utils.ParseCode(prefix, c); err == nil && n > best {
			best = n
		}
	}
	if best < 0 {
		return utils.NextCode(prefix, "")
	}
	return utils.FormatCode(prefix, best+1), nil
}
