package models

import (
	"slices"
	"time"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
)

// Point is a geographic position with an optional human readable address.
type Point struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// Trip is a single ride from pickup to destination.
// Terminal trips (COMPLETED, CANCELLED) are never mutated.
type Trip struct {
	ID            int64            `json:"id"`
	CustomerID    *int64           `json:"customer_id"`
	VehicleID     *int64           `json:"vehicle_id"`
	DriverID      *int64           `json:"driver_id"`
	Pickup        Point            `json:"pickup_location"`
	Destination   Point            `json:"destination"`
	Status        types.TripStatus `json:"status"`
	EstimatedFare float64          `json:"estimated_fare"`
	FinalFare     *float64         `json:"fare"`
	DistanceKm    float64          `json:"distance"`
	DurationMin   *int             `json:"duration"`
	StartedAt     *time.Time       `json:"start_time"`
	EndedAt       *time.Time       `json:"end_time"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// AssignedTo reports whether driverID is the trip's driver.
func (t *Trip) AssignedTo(driverID int64) bool {
	return t.DriverID != nil && *t.DriverID == driverID
}

// AllowedTransitions lists every legal status change.
var AllowedTransitions = map[types.TripStatus][]types.TripStatus{
	types.TripRequested:  {types.TripAccepted, types.TripCancelled},
	types.TripAccepted:   {types.TripArrived, types.TripCancelled},
	types.TripArrived:    {types.TripInProgress, types.TripCancelled},
	types.TripInProgress: {types.TripCompleted, types.TripCancelled},
}

// CanTransition reports whether a trip may move from one status to another.
func CanTransition(from, to types.TripStatus) bool {
	return slices.Contains(AllowedTransitions[from], to)
}

// TripFilter narrows trip listings. Zero values mean no restriction.
type TripFilter struct {
	CustomerID *int64
	DriverID   *int64
	VehicleID  *int64
	Status     types.TripStatus
	Limit      int
}
