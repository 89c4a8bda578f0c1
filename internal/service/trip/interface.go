package trip

import (
	"context"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
)

type (
	TripRepo interface {
		Create(ctx context.Context, trip *models.Trip) error
		Get(ctx context.Context, tripID int64) (*models.Trip, error)
		// UpdateStatus persists trip only if its stored status still equals from.
		UpdateStatus(ctx context.Context, trip *models.Trip, from types.TripStatus) error
		List(ctx context.Context, filter models.TripFilter) ([]*models.Trip, error)
	}

	TripEventRepo interface {
		Append(ctx context.Context, event *models.TripEvent) error
	}

	DriverRepo interface {
		OnDuty(ctx context.Context) ([]models.DriverSnapshot, error)
	}

	// LocationStore returns types.ErrNotFound when a vehicle has never reported.
	LocationStore interface {
		LatestFix(ctx context.Context, vehicleID int64) (*models.Fix, error)
	}

	Calculator interface {
		DistanceKm(a, b models.Point) float64
		EstimateFare(distanceKm float64) float64
	}

	GeoCoder interface {
		GetAddress(ctx context.Context, longitude, latitude float64) (string, error)
	}

	Notifier interface {
		NotifyTrip(ctx context.Context, event types.EventType, trip *models.Trip) error
	}
)
