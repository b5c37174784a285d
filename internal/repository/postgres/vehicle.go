package postgres

import (
	"context"
	"fmt"
	"time"

	"rental-car-dashboard/internal/domain"
	"rental-car-dashboard/internal/logger"
	"rental-car-dashboard/internal/repository"
)

type vehicleRepository struct {
	db DBTX
}

func NewVehicleRepository(db DBTX) repository.VehicleRepository {
	return &vehicleRepository{db: db}
}

func (r *vehicleRepository) GetByID(ctx context.Context, id int32) (*domain.Vehicle, error) {
	v := &domain.Vehicle{}
	query := `SELECT id, plate_number, vehicle_class_id, status, mileage, updated_on FROM vehicles WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.PlateNumber, &v.VehicleClassID, &v.Status, &v.Mileage, &v.UpdatedOn)
	if err != nil {
		return nil, fmt.Errorf("get vehicle %d: %w", id, translate(err))
	}
	return v, nil
}

func (r *vehicleRepository) Update(ctx context.Context, v *domain.Vehicle) error {
	logger.EnterMethod("vehicleRepository.Update", "vehicleID", v.ID, "status", v.Status, "mileage", v.Mileage)

	now := time.Now()
	query := `UPDATE vehicles SET status = $1, mileage = $2, updated_on = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, v.Status, v.Mileage, now, v.ID)
	if err != nil {
		logger.ExitMethodWithError("vehicleRepository.Update", err, "vehicleID", v.ID)
		return fmt.Errorf("update vehicle %d: %w", v.ID, translate(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update vehicle %d: %w", v.ID, domain.ErrNotFound)
	}
	v.UpdatedOn = now

	logger.ExitMethod("vehicleRepository.Update", "vehicleID", v.ID)
	return nil
}
