package tracking

import (
	"context"
	"time"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
)

type (
	FixStore interface {
		Save(ctx context.Context, fix *models.Fix) error
		// LatestSince returns the newest fix of every vehicle that reported at or after since.
		LatestSince(ctx context.Context, since time.Time) ([]*models.Fix, error)
		History(ctx context.Context, vehicleID int64, since time.Time, limit int) ([]*models.Fix, error)
	}

	VehicleRepo interface {
		Exists(ctx context.Context, vehicleID int64) (bool, error)
	}

	Notifier interface {
		NotifyLocation(ctx context.Context, fix *models.Fix) error
	}
)
