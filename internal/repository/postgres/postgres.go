package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"rental-car-dashboard/internal/domain"
	"rental-car-dashboard/internal/logger"
	"rental-car-dashboard/internal/repository"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repos struct {
	reservations repository.ReservationRepository
	vehicles     repository.VehicleRepository
	payments     repository.PaymentRepository
	codes        repository.CodeGenerator
}

func newRepos(db DBTX) repos {
	return repos{
		reservations: NewReservationRepository(db),
		vehicles:     NewVehicleRepository(db),
		payments:     NewPaymentRepository(db),
		codes:        NewCodeGenerator(db),
	}
}

func (r repos) Reservations() repository.ReservationRepository { return r.reservations }
func (r repos) Vehicles() repository.VehicleRepository         { return r.vehicles }
func (r repos) Payments() repository.PaymentRepository         { return r.payments }
func (r repos) Codes() repository.CodeGenerator                { return r.codes }

type Store struct {
	db *sql.DB
	repos
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:    db,
		repos: newRepos(db),
	}
}

// Do runs fn inside a database transaction. Serializable units use
// sql.LevelSerializable so concurrent assignments of the same vehicle cannot
// both commit.
func (s *Store) Do(ctx context.Context, opts repository.TxOptions, fn func(tx repository.Tx) error) error {
	txOpts := &sql.TxOptions{}
	if opts.Serializable {
		txOpts.Isolation = sql.LevelSerializable
	}

	tx, err := s.db.BeginTx(ctx, txOpts)
	if err != nil {
		logger.ExitMethodWithError("Store.Do", err)
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(newRepos(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", translate(err))
	}
	return nil
}

// translate maps driver errors onto domain sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", domain.ErrUniqueViolation, pqErr.Constraint)
		case "23P01":
			return fmt.Errorf("%w: %s", domain.ErrScheduleConflict, pqErr.Constraint)
		case "40001":
			return fmt.Errorf("%w: concurrent update, retry the operation", domain.ErrStateConflict)
		}
	}
	return err
}
