package types

// TripStatus is a state of the trip lifecycle.
type TripStatus string

func (s TripStatus) String() string {
	return string(s)
}

const (
	TripRequested  TripStatus = "REQUESTED"
	TripAccepted   TripStatus = "ACCEPTED"
	TripArrived    TripStatus = "ARRIVED"
	TripInProgress TripStatus = "IN_PROGRESS"
	TripCompleted  TripStatus = "COMPLETED"
	TripCancelled  TripStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition is permitted from s.
func (s TripStatus) IsTerminal() bool {
	return s == TripCompleted || s == TripCancelled
}

// IsValid reports whether s is a known trip status.
func (s TripStatus) IsValid() bool {
	switch s {
	case TripRequested, TripAccepted, TripArrived, TripInProgress, TripCompleted, TripCancelled:
		return true
	}
	return false
}

// DriverStatus is the duty status of a driver.
type DriverStatus string

const (
	DriverOnDuty    DriverStatus = "ON_DUTY"
	DriverOffDuty   DriverStatus = "OFF_DUTY"
	DriverOnBreak   DriverStatus = "ON_BREAK"
	DriverSuspended DriverStatus = "SUSPENDED"
)

// UserRole is the role claim carried by an access token.
type UserRole string

func (r UserRole) String() string {
	return string(r)
}

const (
	RoleCustomer  UserRole = "CUSTOMER"
	RoleDriver    UserRole = "DRIVER"
	RoleAdmin     UserRole = "ADMIN"
	RoleAnonymous UserRole = "ANONYMOUS"
)

// Audience is a class of realtime subscribers.
type Audience string

const (
	AudienceDrivers   Audience = "drivers"
	AudienceCustomers Audience = "customers"
	AudienceWatchers  Audience = "watchers"
	AudienceTracking  Audience = "tracking"
	AudienceVehicles  Audience = "vehicles"
)
