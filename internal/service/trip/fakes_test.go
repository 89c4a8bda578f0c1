package trip

import (
	"context"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	"github.com/Temutjin2k/taxi-dispatch/internal/service/calculator"
	"github.com/Temutjin2k/taxi-dispatch/pkg/logger"
)

type memTrips struct {
	mu     sync.Mutex
	nextID int64
	trips  map[int64]models.Trip
}

func newMemTrips() *memTrips {
	return &memTrips{trips: make(map[int64]models.Trip)}
}

func (r *memTrips) Create(_ context.Context, t *models.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t.ID = r.nextID
	r.trips[t.ID] = *t
	return nil
}

func (r *memTrips) Get(_ context.Context, id int64) (*models.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trips[id]
	if !ok {
		return nil, types.ErrTripNotFound
	}
	return &t, nil
}

func (r *memTrips) UpdateStatus(_ context.Context, t *models.Trip, from types.TripStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.trips[t.ID]
	if !ok {
		return types.ErrTripNotFound
	}
	if cur.Status != from {
		return types.ErrInvalidState
	}
	r.trips[t.ID] = *t
	return nil
}

func (r *memTrips) List(_ context.Context, f models.TripFilter) ([]*models.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Trip
	for _, t := range r.trips {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.CustomerID != nil && (t.CustomerID == nil || *t.CustomerID != *f.CustomerID) {
			continue
		}
		t := t
		out = append(out, &t)
	}
	slices.SortFunc(out, func(a, b *models.Trip) int { return int(b.ID - a.ID) })
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *memTrips) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trips)
}

type memEvents struct {
	mu     sync.Mutex
	events []models.TripEvent
}

func (r *memEvents) Append(_ context.Context, e *models.TripEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return nil
}

func (r *memEvents) statuses(tripID int64) []types.TripStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.TripStatus
	for _, e := range r.events {
		if e.TripID == tripID {
			out = append(out, e.To)
		}
	}
	return out
}

type memDrivers struct {
	drivers []models.DriverSnapshot
}

func (r *memDrivers) OnDuty(context.Context) ([]models.DriverSnapshot, error) {
	return r.drivers, nil
}

type memLocations struct {
	fixes map[int64]*models.Fix
}

func (r *memLocations) LatestFix(_ context.Context, vehicleID int64) (*models.Fix, error) {
	f, ok := r.fixes[vehicleID]
	if !ok {
		return nil, types.ErrNotFound
	}
	return f, nil
}

type sentEvent struct {
	event  types.EventType
	status types.TripStatus
	tripID int64
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentEvent
}

func (n *recordingNotifier) NotifyTrip(_ context.Context, e types.EventType, t *models.Trip) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEvent{event: e, status: t.Status, tripID: t.ID})
	return nil
}

func (n *recordingNotifier) events() []types.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]types.EventType, len(n.sent))
	for i, s := range n.sent {
		out[i] = s.event
	}
	return out
}

// passTx runs fn directly; the in-memory repos have no transactions.
type passTx struct{}

func (passTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type stubGeoCoder struct {
	addr string
	err  error
}

func (g stubGeoCoder) GetAddress(context.Context, float64, float64) (string, error) {
	return g.addr, g.err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc       *Service
	trips     *memTrips
	events    *memEvents
	drivers   *memDrivers
	locations *memLocations
	notifier  *recordingNotifier
	clock     *fakeClock
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{
		trips:     newMemTrips(),
		events:    &memEvents{},
		drivers:   &memDrivers{},
		locations: &memLocations{fixes: make(map[int64]*models.Fix)},
		notifier:  &recordingNotifier{},
		clock:     &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)},
	}

	opts = append([]Option{WithClock(f.clock.Now)}, opts...)
	f.svc = New(
		f.trips,
		f.events,
		f.drivers,
		f.locations,
		calculator.New(calculator.DefaultTariff),
		f.notifier,
		passTx{},
		logger.New(io.Discard, "test", logger.LevelError),
		opts...,
	)
	return f
}

// addDriver registers an on-duty driver whose vehicle (id = driverID + 100)
// reported at p, age ago.
func (f *fixture) addDriver(driverID int64, p models.Point, age time.Duration) {
	vehicleID := driverID + 100
	f.drivers.drivers = append(f.drivers.drivers, models.DriverSnapshot{
		DriverID:  driverID,
		Status:    types.DriverOnDuty,
		VehicleID: &vehicleID,
	})
	f.locations.fixes[vehicleID] = &models.Fix{
		VehicleID: vehicleID,
		Lat:       p.Lat,
		Lng:       p.Lng,
		Timestamp: f.clock.Now().Add(-age),
	}
}

func ptr[T any](v T) *T {
	return &v
}
