package types

// EventType is the "type" field of every message pushed to a realtime channel.
type EventType string

func (e EventType) String() string {
	return string(e)
}

const (
	EventNewTrip        EventType = "new_trip"
	EventTripAccepted   EventType = "trip_accepted"
	EventTripTaken      EventType = "trip_taken"
	EventDriverArrived  EventType = "driver_arrived"
	EventTripStarted    EventType = "trip_started"
	EventTripCompleted  EventType = "trip_completed"
	EventTripUpdate     EventType = "trip_update"
	EventLocationUpdate EventType = "location_update"
)

// EventForStatus returns the event emitted after a trip enters status s.
func EventForStatus(s TripStatus) EventType {
	switch s {
	case TripRequested:
		return EventNewTrip
	case TripAccepted:
		return EventTripAccepted
	case TripArrived:
		return EventDriverArrived
	case TripInProgress:
		return EventTripStarted
	case TripCompleted:
		return EventTripCompleted
	default:
		return EventTripUpdate
	}
}
