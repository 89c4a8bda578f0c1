package models

import "time"

// Fix is a single GPS report of a vehicle. Fixes are append-only.
type Fix struct {
	ID        int64     `json:"id"`
	VehicleID int64     `json:"vehicle_id"`
	Lat       float64   `json:"latitude"`
	Lng       float64   `json:"longitude"`
	Speed     *float64  `json:"speed"`
	Heading   *float64  `json:"heading"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Altitude  *float64  `json:"altitude,omitempty"`
	DeviceID  string    `json:"device_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Point returns the fix position.
func (f *Fix) Point() Point {
	return Point{Lat: f.Lat, Lng: f.Lng}
}

// FreshAt reports whether the fix is no older than window at now.
func (f *Fix) FreshAt(now time.Time, window time.Duration) bool {
	return !f.Timestamp.Before(now.Add(-window))
}
