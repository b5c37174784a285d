package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"rental-car-dashboard/internal/domain"
	"rental-car-dashboard/internal/logger"
	"rental-car-dashboard/internal/repository"
)

const reservationColumns = `id, code, vehicle_class_id, vehicle_id, customer_kind, customer_name, customer_phone, customer_email,
	pickup_at, return_at, actual_pickup_at, actual_return_at, departure_odometer, return_odometer,
	departure_fuel, return_fuel, driven_vehicle_id, status, approval_status, approved_by, approved_at,
	approval_comment, estimated_amount, actual_amount, settled_at, revenue_date, note, created_by,
	created_on, updated_on`

var claimingStatuses = []string{
	string(domain.ReservationStatusReserved),
	string(domain.ReservationStatusConfirmed),
	string(domain.ReservationStatusDeparted),
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner, r *domain.Reservation) error {
	return row.Scan(
		&r.ID, &r.Code, &r.VehicleClassID, &r.VehicleID, &r.CustomerKind, &r.CustomerName, &r.CustomerPhone, &r.CustomerEmail,
		&r.PickupAt, &r.ReturnAt, &r.ActualPickupAt, &r.ActualReturnAt, &r.DepartureOdometer, &r.ReturnOdometer,
		&r.DepartureFuel, &r.ReturnFuel, &r.DrivenVehicleID, &r.Status, &r.ApprovalStatus, &r.ApprovedBy, &r.ApprovedAt,
		&r.ApprovalComment, &r.EstimatedAmount, &r.ActualAmount, &r.SettledAt, &r.RevenueDate, &r.Note, &r.CreatedBy,
		&r.CreatedOn, &r.UpdatedOn,
	)
}

type reservationRepository struct {
	db DBTX
}

func NewReservationRepository(db DBTX) repository.ReservationRepository {
	return &reservationRepository{db: db}
}

func (r *reservationRepository) Create(ctx context.Context, rsv *domain.Reservation) error {
	logger.EnterMethod("reservationRepository.Create", "code", rsv.Code)

	query := `INSERT INTO reservations (code, vehicle_class_id, vehicle_id, customer_kind, customer_name, customer_phone,
	          customer_email, pickup_at, return_at, status, approval_status, estimated_amount, note, created_by, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16) RETURNING id`
	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		rsv.Code, rsv.VehicleClassID, rsv.VehicleID, rsv.CustomerKind, rsv.CustomerName, rsv.CustomerPhone,
		rsv.CustomerEmail, rsv.PickupAt, rsv.ReturnAt, rsv.Status, rsv.ApprovalStatus, rsv.EstimatedAmount, rsv.Note,
		rsv.CreatedBy, now, now,
	).Scan(&rsv.ID)
	if err != nil {
		logger.ExitMethodWithError("reservationRepository.Create", err, "code", rsv.Code)
		return fmt.Errorf("insert reservation %s: %w", rsv.Code, translate(err))
	}
	rsv.CreatedOn = now
	rsv.UpdatedOn = now

	logger.ExitMethod("reservationRepository.Create", "reservationID", rsv.ID)
	return nil
}

func (r *reservationRepository) GetByID(ctx context.Context, id int32) (*domain.Reservation, error) {
	rsv := &domain.Reservation{}
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	if err := scanReservation(r.db.QueryRowContext(ctx, query, id), rsv); err != nil {
		return nil, fmt.Errorf("get reservation %d: %w", id, translate(err))
	}
	return rsv, nil
}

func (r *reservationRepository) Update(ctx context.Context, rsv *domain.Reservation) error {
	logger.EnterMethod("reservationRepository.Update", "reservationID", rsv.ID, "status", rsv.Status)

	query := `UPDATE reservations SET
			vehicle_class_id = $1, vehicle_id = $2, customer_kind = $3, customer_name = $4, customer_phone = $5,
			customer_email = $6, pickup_at = $7, return_at = $8, actual_pickup_at = $9, actual_return_at = $10,
			departure_odometer = $11, return_odometer = $12, departure_fuel = $13, return_fuel = $14,
			driven_vehicle_id = $15, status = $16, approval_status = $17, approved_by = $18, approved_at = $19,
			approval_comment = $20, estimated_amount = $21, actual_amount = $22, settled_at = $23,
			revenue_date = $24, note = $25, updated_on = $26
		WHERE id = $27`
	now := time.Now()
	res, err := r.db.ExecContext(ctx, query,
		rsv.VehicleClassID, rsv.VehicleID, rsv.CustomerKind, rsv.CustomerName, rsv.CustomerPhone,
		rsv.CustomerEmail, rsv.PickupAt, rsv.ReturnAt, rsv.ActualPickupAt, rsv.ActualReturnAt,
		rsv.DepartureOdometer, rsv.ReturnOdometer, rsv.DepartureFuel, rsv.ReturnFuel,
		rsv.DrivenVehicleID, rsv.Status, rsv.ApprovalStatus, rsv.ApprovedBy, rsv.ApprovedAt,
		rsv.ApprovalComment, rsv.EstimatedAmount, rsv.ActualAmount, rsv.SettledAt,
		rsv.RevenueDate, rsv.Note, now, rsv.ID,
	)
	if err != nil {
		logger.ExitMethodWithError("reservationRepository.Update", err, "reservationID", rsv.ID)
		return fmt.Errorf("update reservation %d: %w", rsv.ID, translate(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update reservation %d: %w", rsv.ID, domain.ErrNotFound)
	}
	rsv.UpdatedOn = now

	logger.ExitMethod("reservationRepository.Update", "reservationID", rsv.ID)
	return nil
}

func (r *reservationRepository) List(ctx context.Context, f domain.ReservationFilter) ([]domain.Reservation, int32, error) {
	var where []string
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.VehicleID != 0 {
		add("vehicle_id = $%d", f.VehicleID)
	}
	if !f.From.IsZero() {
		add("pickup_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("pickup_at < $%d", f.To)
	}

	base := `FROM reservations`
	if len(where) > 0 {
		base += " WHERE " + strings.Join(where, " AND ")
	}

	var count int32
	if err := r.db.QueryRowContext(ctx, "SELECT count(*) "+base, args...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("count reservations: %w", translate(err))
	}

	query := "SELECT " + reservationColumns + " " + base + " ORDER BY pickup_at, id"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		args = append(args, f.PageSize, (page-1)*f.PageSize)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rsvs, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return rsvs, count, nil
}

func (r *reservationRepository) ListActiveByVehicle(ctx context.Context, vehicleID int32) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
	          WHERE vehicle_id = $1 AND status = ANY($2) ORDER BY pickup_at, id`
	return r.query(ctx, query, vehicleID, pq.Array(claimingStatuses))
}

func (r *reservationRepository) query(ctx context.Context, query string, args ...any) ([]domain.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", translate(err))
	}
	defer rows.Close()

	var rsvs []domain.Reservation
	for rows.Next() {
		var rsv domain.Reservation
		if err := scanReservation(rows, &rsv); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		rsvs = append(rsvs, rsv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservations: %w", translate(err))
	}
	return rsvs, nil
}
