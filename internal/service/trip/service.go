package trip

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
	"github.com/Temutjin2k/taxi-dispatch/pkg/trm"
)

const (
	DefaultFreshnessWindow = 60 * time.Second
	DefaultListLimit       = 50
	MaxListLimit           = 500
)

// Service owns the trip lifecycle: dispatching new trips to the nearest
// available driver and moving trips through their states.
//
// Transitions on one trip are serialized in process and guarded by a
// compare-and-swap on the stored status across processes. The notification of
// a transition is sent after commit and before the next transition of the same
// trip may start.
type Service struct {
	trips     TripRepo
	events    TripEventRepo
	drivers   DriverRepo
	locations LocationStore
	calc      Calculator
	geocoder  GeoCoder
	notifier  Notifier
	txManager trm.TxManager

	freshness time.Duration
	now       func() time.Time
	locks     *lockMap

	l logger.Logger
}

type Option func(*Service)

// WithGeoCoder fills empty pickup and destination addresses on dispatch.
func WithGeoCoder(g GeoCoder) Option {
	return func(s *Service) {
		s.geocoder = g
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithFreshnessWindow sets the maximum age of a driver location usable for dispatch.
func WithFreshnessWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.freshness = d
		}
	}
}

func New(
	trips TripRepo,
	events TripEventRepo,
	drivers DriverRepo,
	locations LocationStore,
	calc Calculator,
	notifier Notifier,
	txManager trm.TxManager,
	l logger.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		trips:     trips,
		events:    events,
		drivers:   drivers,
		locations: locations,
		calc:      calc,
		notifier:  notifier,
		txManager: txManager,
		freshness: DefaultFreshnessWindow,
		now:       time.Now,
		locks:     newLockMap(),
		l:         l,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Accept moves a REQUESTED trip to ACCEPTED. Only the driver the trip was
// dispatched to may accept it.
func (s *Service) Accept(ctx context.Context, tripID, driverID int64) (*models.Trip, error) {
	ctx = wrap.WithAction(ctx, types.ActionAcceptTrip)
	return s.transition(ctx, tripID, types.TripAccepted, &driverID, nil)
}

// Arrive moves an ACCEPTED trip to ARRIVED.
func (s *Service) Arrive(ctx context.Context, tripID int64, actingDriverID *int64) (*models.Trip, error) {
	ctx = wrap.WithAction(ctx, types.ActionArriveTrip)
	return s.transition(ctx, tripID, types.TripArrived, actingDriverID, nil)
}

// Start moves an ARRIVED trip to IN_PROGRESS and records the start time.
func (s *Service) Start(ctx context.Context, tripID int64, actingDriverID *int64) (*models.Trip, error) {
	ctx = wrap.WithAction(ctx, types.ActionStartTrip)
	return s.transition(ctx, tripID, types.TripInProgress, actingDriverID, func(t *models.Trip, now time.Time) {
		t.StartedAt = &now
	})
}

// Complete moves an IN_PROGRESS trip to COMPLETED. The final fare equals the
// estimate and the duration is the number of whole minutes since start.
func (s *Service) Complete(ctx context.Context, tripID int64, actingDriverID *int64) (*models.Trip, error) {
	ctx = wrap.WithAction(ctx, types.ActionCompleteTrip)
	return s.transition(ctx, tripID, types.TripCompleted, actingDriverID, func(t *models.Trip, now time.Time) {
		t.EndedAt = &now

		fare := t.EstimatedFare
		t.FinalFare = &fare

		duration := 0
		if t.StartedAt != nil {
			duration = calculator.DurationMinutes(*t.StartedAt, now)
		}
		t.DurationMin = &duration
	})
}

// Cancel moves any non-terminal trip to CANCELLED.
func (s *Service) Cancel(ctx context.Context, tripID int64, actingDriverID *int64) (*models.Trip, error) {
	ctx = wrap.WithAction(ctx, types.ActionCancelTrip)
	return s.transition(ctx, tripID, types.TripCancelled, actingDriverID, nil)
}

// Get returns a trip by id.
func (s *Service) Get(ctx context.Context, tripID int64) (*models.Trip, error) {
	trip, err := s.trips.Get(ctx, tripID)
	if err != nil {
		return nil, wrap.Error(wrap.WithTripID(ctx, strconv.FormatInt(tripID, 10)), err)
	}
	return trip, nil
}

// List returns trips matching filter, newest first.
func (s *Service) List(ctx context.Context, filter models.TripFilter) ([]*models.Trip, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: unknown status %q", types.ErrInvalidInput, filter.Status))
	}

	trips, err := s.trips.List(ctx, filter)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return trips, nil
}

// transition applies one state machine step. mutate may set the fields that
// accompany the new status.
func (s *Service) transition(
	ctx context.Context,
	tripID int64,
	to types.TripStatus,
	actingDriverID *int64,
	mutate func(t *models.Trip, now time.Time),
) (*models.Trip, error) {
	ctx = wrap.WithTripID(ctx, strconv.FormatInt(tripID, 10))
	if actingDriverID != nil {
		ctx = wrap.WithDriverID(ctx, strconv.FormatInt(*actingDriverID, 10))
	}

	unlock := s.locks.Lock(tripID)
	defer unlock()

	var trip *models.Trip
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		t, err := s.trips.Get(ctx, tripID)
		if err != nil {
			return err
		}

		if actingDriverID != nil && !t.AssignedTo(*actingDriverID) {
			return types.ErrDriverNotAssigned
		}
		if !models.CanTransition(t.Status, to) {
			return fmt.Errorf("%w: %s -> %s", types.ErrInvalidState, t.Status, to)
		}

		from := t.Status
		now := s.now().UTC()

		t.Status = to
		t.UpdatedAt = now
		if mutate != nil {
			mutate(t, now)
		}

		if err := s.trips.UpdateStatus(ctx, t, from); err != nil {
			return err
		}

		event := &models.TripEvent{
			TripID:    t.ID,
			From:      from,
			To:        to,
			DriverID:  actingDriverID,
			CreatedAt: now,
		}
		if err := s.events.Append(ctx, event); err != nil {
			return err
		}

		trip = t
		return nil
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	metrics.RecordTripStatus(to.String())
	s.l.Info(ctx, "trip status changed", "status", to)

	s.notify(ctx, types.EventForStatus(to), trip)

	return trip, nil
}

func (s *Service) notify(ctx context.Context, event types.EventType, trip *models.Trip) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyTrip(ctx, event, trip); err != nil {
		s.l.Error(wrap.ErrorCtx(ctx, err), "failed to publish trip event", err, "event", event)
	}
}
