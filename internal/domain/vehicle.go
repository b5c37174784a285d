package domain

import "time"

type VehicleStatus string

const (
	VehicleStatusInStock     VehicleStatus = "IN_STOCK"
	VehicleStatusRented      VehicleStatus = "RENTED"
	VehicleStatusLeased      VehicleStatus = "LEASED"
	VehicleStatusMaintenance VehicleStatus = "MAINTENANCE"
	VehicleStatusRetired     VehicleStatus = "RETIRED"
)

type Vehicle struct {
	ID             int32         `json:"id"`
	PlateNumber    string        `json:"plate_number"`
	VehicleClassID int32         `json:"vehicle_class_id"`
	Status         VehicleStatus `json:"status"`
	Mileage        int32         `json:"mileage"`
	UpdatedOn      time.Time     `json:"updated_on"`
}
