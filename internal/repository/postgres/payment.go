package postgres

import (
	"context"
	"fmt"
	"time"

	"rental-car-dashboard/internal/domain"
	"rental-car-dashboard/internal/logger"
	"rental-car-dashboard/internal/repository"
)

type paymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	logger.EnterMethod("paymentRepository.Create", "code", p.Code, "reservationID", p.ReservationID, "amount", p.Amount)

	query := `INSERT INTO payments (code, reservation_id, payer_name, amount, category, status, paid_at, created_by, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		p.Code, p.ReservationID, p.PayerName, p.Amount, p.Category, p.Status, p.PaidAt, p.CreatedBy, now,
	).Scan(&p.ID)
	if err != nil {
		logger.ExitMethodWithError("paymentRepository.Create", err, "code", p.Code)
		return fmt.Errorf("insert payment %s: %w", p.Code, translate(err))
	}
	p.CreatedOn = now

	logger.ExitMethod("paymentRepository.Create", "paymentID", p.ID)
	return nil
}

func (r *paymentRepository) ListByReservation(ctx context.Context, reservationID int32) ([]domain.Payment, error) {
	query := `SELECT id, code, reservation_id, payer_name, amount, category, status, paid_at, created_by, created_on
	          FROM payments WHERE reservation_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, reservationID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", translate(err))
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.Code, &p.ReservationID, &p.PayerName, &p.Amount, &p.Category, &p.Status, &p.PaidAt, &p.CreatedBy, &p.CreatedOn); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", translate(err))
	}
	return payments, nil
}
