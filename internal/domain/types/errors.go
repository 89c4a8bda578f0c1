package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("requested item not found")
	ErrInvalidState      = errors.New("invalid trip state for this operation")
	ErrNoDriverAvailable = errors.New("no driver available")
	ErrInvalidInput      = errors.New("invalid input")

	ErrTripNotFound      = fmt.Errorf("trip: %w", ErrNotFound)
	ErrVehicleNotFound   = fmt.Errorf("vehicle: %w", ErrNotFound)
	ErrDriverNotAssigned = fmt.Errorf("driver is not assigned to this trip: %w", ErrInvalidState)

	ErrDatabaseFailed  = errors.New("database operation failed")
	ErrPublishFailed   = errors.New("failed to publish event")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("action forbidden")
)
