package trip

import (
	"context"
	"errors"
	"strconv"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	"github.com/Temutjin2k/taxi-dispatch/internal/service/calculator"
	wrap "github.com/Temutjin2k/taxi-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/taxi-dispatch/pkg/metrics"
)

const (
	dispatchAssigned = "assigned"
	dispatchNoDriver = "no_driver"
	dispatchFailed   = "failed"
)

// candidate is an on-duty driver with a fresh location.
type candidate struct {
	driverID  int64
	vehicleID int64
	distance  float64
}

// RequestTrip creates a trip for customerID and pre-assigns it to the nearest
// on-duty driver whose vehicle reported a location within the freshness
// window. No trip is created when no such driver exists.
func (s *Service) RequestTrip(ctx context.Context, customerID int64, pickup, destination models.Point) (*models.Trip, error) {
	ctx = wrap.WithAction(ctx, types.ActionRequestTrip)
	ctx = wrap.WithUserID(ctx, strconv.FormatInt(customerID, 10))

	candidates, err := s.candidates(ctx, pickup)
	if err != nil {
		metrics.RecordDispatch(dispatchFailed, 0)
		return nil, wrap.Error(ctx, err)
	}

	best, ok := nearest(candidates)
	if !ok {
		metrics.RecordDispatch(dispatchNoDriver, 0)
		return nil, wrap.Error(ctx, types.ErrNoDriverAvailable)
	}
	ctx = wrap.WithDriverID(ctx, strconv.FormatInt(best.driverID, 10))

	s.fillAddresses(ctx, &pickup, &destination)

	distance := s.calc.DistanceKm(pickup, destination)
	fare := s.calc.EstimateFare(distance)
	now := s.now().UTC()

	trip := &models.Trip{
		CustomerID:    &customerID,
		DriverID:      &best.driverID,
		VehicleID:     &best.vehicleID,
		Pickup:        pickup,
		Destination:   destination,
		Status:        types.TripRequested,
		EstimatedFare: calculator.RoundMoney(fare),
		DistanceKm:    calculator.RoundMoney(distance),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// the trip lock is taken before commit so no transition can notify ahead of new_trip
	unlock := func() {}
	err = s.txManager.Do(ctx, func(ctx context.Context) error {
		if err := s.trips.Create(ctx, trip); err != nil {
			return err
		}
		unlock = s.locks.Lock(trip.ID)

		return s.events.Append(ctx, &models.TripEvent{
			TripID:    trip.ID,
			To:        types.TripRequested,
			CreatedAt: now,
		})
	})
	defer unlock()
	if err != nil {
		metrics.RecordDispatch(dispatchFailed, len(candidates))
		return nil, wrap.Error(ctx, err)
	}

	ctx = wrap.WithTripID(ctx, strconv.FormatInt(trip.ID, 10))
	metrics.RecordDispatch(dispatchAssigned, len(candidates))
	metrics.RecordTripStatus(types.TripRequested.String())
	s.l.Info(ctx, "trip dispatched",
		"candidates", len(candidates),
		"distance_to_pickup_km", best.distance,
		"distance_km", trip.DistanceKm,
		"estimated_fare", trip.EstimatedFare,
	)

	s.notify(ctx, types.EventNewTrip, trip)

	return trip, nil
}

// candidates returns the on-duty drivers with a fresh location and their distance to pickup.
func (s *Service) candidates(ctx context.Context, pickup models.Point) ([]candidate, error) {
	drivers, err := s.drivers.OnDuty(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	out := make([]candidate, 0, len(drivers))

	for _, d := range drivers {
		if d.Status != types.DriverOnDuty || d.VehicleID == nil {
			continue
		}

		fix, err := s.locations.LatestFix(ctx, *d.VehicleID)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if fix == nil || !fix.FreshAt(now, s.freshness) {
			continue
		}

		out = append(out, candidate{
			driverID:  d.DriverID,
			vehicleID: *d.VehicleID,
			distance:  s.calc.DistanceKm(pickup, fix.Point()),
		})
	}

	return out, nil
}

// nearest picks the closest candidate. Ties go to the lowest driver id.
func nearest(cs []candidate) (candidate, bool) {
	if len(cs) == 0 {
		return candidate{}, false
	}

	best := cs[0]
	for _, c := range cs[1:] {
		if c.distance < best.distance || (c.distance == best.distance && c.driverID < best.driverID) {
			best = c
		}
	}
	return best, true
}

func (s *Service) fillAddresses(ctx context.Context, points ...*models.Point) {
	if s.geocoder == nil {
		return
	}

	for _, p := range points {
		if p.Address != "" {
			continue
		}
		addr, err := s.geocoder.GetAddress(ctx, p.Lng, p.Lat)
		if err != nil {
			s.l.Warn(wrap.ErrorCtx(ctx, err), "reverse geocoding failed", "error", err.Error())
			continue
		}
		p.Address = addr
	}
}
