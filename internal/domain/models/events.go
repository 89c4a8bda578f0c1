package models

import (
	"time"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
)

// TripEvent is an audit record of one status change.
type TripEvent struct {
	ID        int64            `json:"id"`
	TripID    int64            `json:"trip_id"`
	From      types.TripStatus `json:"from_status,omitempty"`
	To        types.TripStatus `json:"to_status"`
	DriverID  *int64           `json:"driver_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Message is the wire format of every realtime push.
type Message struct {
	Type types.EventType `json:"type"`
	Trip *Trip           `json:"trip,omitempty"`
	Data *Fix            `json:"data,omitempty"`
}

// Stats is a snapshot of the realtime connection registry.
type Stats struct {
	ConnectedDrivers   int     `json:"connected_drivers"`
	ConnectedCustomers int     `json:"connected_customers"`
	ActiveTripWatchers int     `json:"active_trip_watchers"`
	TrackingViewers    int     `json:"tracking_viewers"`
	VehicleSubscribers int     `json:"vehicle_subscribers"`
	DriverIDs          []int64 `json:"driver_ids"`
	CustomerIDs        []int64 `json:"customer_ids"`
}
