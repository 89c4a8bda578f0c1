package models

import "github.com/Temutjin2k/taxi-dispatch/internal/domain/types"

// DriverSnapshot is the read-only view of a driver used for dispatch.
type DriverSnapshot struct {
	DriverID  int64              `json:"driver_id"`
	Status    types.DriverStatus `json:"status"`
	VehicleID *int64             `json:"vehicle_id"`
}
