package dto

import (
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/pkg/validator"
)

// maxDeviceIDLen matches gps_locations.device_id.
const maxDeviceIDLen = 50

// LocationReq is a GPS report sent by a vehicle device.
type LocationReq struct {
	VehicleID int64    `json:"vehicle_id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Speed     *float64 `json:"speed"`
	Heading   *float64 `json:"heading"`
	Accuracy  *float64 `json:"accuracy"`
	Altitude  *float64 `json:"altitude"`
	DeviceID  string   `json:"device_id"`
}

func (r *LocationReq) Validate(v *validator.Validator) {
	v.Check(r.VehicleID > 0, "vehicle_id", "must be a positive integer")

	if r.Latitude == nil || r.Longitude == nil {
		v.Check(r.Latitude != nil, "latitude", "must be provided")
		v.Check(r.Longitude != nil, "longitude", "must be provided")
	} else {
		v.Check(validator.Between(*r.Latitude, -90, 90), "latitude", "must be between -90 and 90")
		v.Check(validator.Between(*r.Longitude, -180, 180), "longitude", "must be between -180 and 180")
	}

	if r.Speed != nil {
		v.Check(*r.Speed >= 0, "speed", "must not be negative")
	}
	if r.Heading != nil {
		v.Check(validator.Between(*r.Heading, 0, 360), "heading", "must be between 0 and 360")
	}
	if r.Accuracy != nil {
		v.Check(*r.Accuracy >= 0, "accuracy", "must not be negative")
	}
	v.Check(len(r.DeviceID) <= maxDeviceIDLen, "device_id", "must not be more than 50 bytes long")
}

func (r *LocationReq) ToModel() models.Fix {
	return models.Fix{
		VehicleID: r.VehicleID,
		Lat:       *r.Latitude,
		Lng:       *r.Longitude,
		Speed:     r.Speed,
		Heading:   r.Heading,
		Accuracy:  r.Accuracy,
		Altitude:  r.Altitude,
		DeviceID:  r.DeviceID,
	}
}
