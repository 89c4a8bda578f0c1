package dto

import (
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	"github.com/Temutjin2k/taxi-dispatch/pkg/validator"
)

type PointReq struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address"`
}

func (p *PointReq) Validate(v *validator.Validator, prefix string) {
	if p.Latitude == nil || p.Longitude == nil {
		v.Check(p.Latitude != nil, prefix+".latitude", "must be provided")
		v.Check(p.Longitude != nil, prefix+".longitude", "must be provided")
		return
	}

	v.Check(validator.Between(*p.Latitude, -90, 90), prefix+".latitude", "must be between -90 and 90")
	v.Check(validator.Between(*p.Longitude, -180, 180), prefix+".longitude", "must be between -180 and 180")
	v.Check(len(p.Address) <= 500, prefix+".address", "must not be more than 500 bytes long")
}

func (p *PointReq) ToModel() models.Point {
	return models.Point{
		Lat:     *p.Latitude,
		Lng:     *p.Longitude,
		Address: p.Address,
	}
}

// RequestTripReq is the body of a trip request. CustomerID is only read for
// admins booking on behalf of a customer.
type RequestTripReq struct {
	CustomerID  *int64   `json:"customer_id,omitempty"`
	Pickup      PointReq `json:"pickup_location"`
	Destination PointReq `json:"destination"`
}

func (r *RequestTripReq) Validate(v *validator.Validator) {
	r.Pickup.Validate(v, "pickup_location")
	r.Destination.Validate(v, "destination")

	if r.CustomerID != nil {
		v.Check(*r.CustomerID > 0, "customer_id", "must be a positive integer")
	}
}

// ValidateTripFilter checks the query parameters of a trip listing.
func ValidateTripFilter(v *validator.Validator, f models.TripFilter) {
	if f.Status != "" {
		v.Check(validator.PermittedValue(f.Status,
			types.TripRequested,
			types.TripAccepted,
			types.TripArrived,
			types.TripInProgress,
			types.TripCompleted,
			types.TripCancelled,
		), "status", "must be a known trip status")
	}
}
