package tracking

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	"github.com/Temutjin2k/taxi-dispatch/internal/service/calculator"
	"github.com/Temutjin2k/taxi-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/taxi-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/taxi-dispatch/pkg/metrics"
)

const (
	DefaultFreshnessWindow = 60 * time.Second

	MinHistoryHours = 1
	MaxHistoryHours = 168
	HistoryLimit    = 1000
)

// Service ingests vehicle locations and serves the live and historical views.
type Service struct {
	fixes    FixStore
	vehicles VehicleRepo
	notifier Notifier

	freshness time.Duration
	now       func() time.Time

	l logger.Logger
}

type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithFreshnessWindow sets how old a fix may be and still count as live.
func WithFreshnessWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.freshness = d
		}
	}
}

func New(fixes FixStore, vehicles VehicleRepo, notifier Notifier, l logger.Logger, opts ...Option) *Service {
	s := &Service{
		fixes:     fixes,
		vehicles:  vehicles,
		notifier:  notifier,
		freshness: DefaultFreshnessWindow,
		now:       time.Now,
		l:         l,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Ingest stores a fix of vehicleID stamped with the server time and
// broadcasts it to tracking subscribers.
func (s *Service) Ingest(ctx context.Context, vehicleID int64, fix models.Fix) (*models.Fix, error) {
	ctx = wrap.WithAction(ctx, types.ActionIngestFix)
	ctx = wrap.WithVehicleID(ctx, strconv.FormatInt(vehicleID, 10))

	if err := validateFix(fix); err != nil {
		metrics.RecordFix(err)
		return nil, wrap.Error(ctx, err)
	}

	exists, err := s.vehicles.Exists(ctx, vehicleID)
	if err != nil {
		metrics.RecordFix(err)
		return nil, wrap.Error(ctx, err)
	}
	if !exists {
		metrics.RecordFix(types.ErrVehicleNotFound)
		return nil, wrap.Error(ctx, types.ErrVehicleNotFound)
	}

	fix.VehicleID = vehicleID
	fix.Timestamp = s.now().UTC()

	if err := s.fixes.Save(ctx, &fix); err != nil {
		metrics.RecordFix(err)
		return nil, wrap.Error(ctx, err)
	}
	metrics.RecordFix(nil)

	s.l.Debug(ctx, "location ingested", "latitude", fix.Lat, "longitude", fix.Lng)

	if s.notifier != nil {
		if err := s.notifier.NotifyLocation(ctx, &fix); err != nil {
			s.l.Error(wrap.ErrorCtx(ctx, err), "failed to publish location update", err)
		}
	}

	return &fix, nil
}

// LiveLocations returns the latest fix of every vehicle that reported within
// the freshness window, newest first.
func (s *Service) LiveLocations(ctx context.Context) ([]*models.Fix, error) {
	since := s.now().UTC().Add(-s.freshness)

	fixes, err := s.fixes.LatestSince(ctx, since)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return fixes, nil
}

// History returns up to HistoryLimit fixes of vehicleID from the last hours, newest first.
func (s *Service) History(ctx context.Context, vehicleID int64, hours int) ([]*models.Fix, error) {
	ctx = wrap.WithVehicleID(ctx, strconv.FormatInt(vehicleID, 10))

	if hours < MinHistoryHours || hours > MaxHistoryHours {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: hours must be between %d and %d", types.ErrInvalidInput, MinHistoryHours, MaxHistoryHours))
	}

	exists, err := s.vehicles.Exists(ctx, vehicleID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if !exists {
		return nil, wrap.Error(ctx, types.ErrVehicleNotFound)
	}

	since := s.now().UTC().Add(-time.Duration(hours) * time.Hour)

	fixes, err := s.fixes.History(ctx, vehicleID, since, HistoryLimit)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return fixes, nil
}

func validateFix(fix models.Fix) error {
	if !calculator.ValidCoordinates(fix.Lat, fix.Lng) {
		return fmt.Errorf("%w: coordinates out of range", types.ErrInvalidInput)
	}
	if fix.Speed != nil && *fix.Speed < 0 {
		return fmt.Errorf("%w: speed must not be negative", types.ErrInvalidInput)
	}
	if fix.Heading != nil && (*fix.Heading < 0 || *fix.Heading > 360) {
		return fmt.Errorf("%w: heading must be between 0 and 360", types.ErrInvalidInput)
	}
	if fix.Accuracy != nil && *fix.Accuracy < 0 {
		return fmt.Errorf("%w: accuracy must not be negative", types.ErrInvalidInput)
	}
	return nil
}
