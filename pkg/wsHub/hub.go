package ws

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	"github.com/Temutjin2k/taxi-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/taxi-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/taxi-dispatch/pkg/metrics"
)

var (
	ErrEmptyConn       = errors.New("connection is empty")
	ErrDeliveryFailure = errors.New("failed to deliver message")
)

// Hub хранит все активные realtime подписки.
//
// Each audience class has its own lock. A failed send evicts and closes the
// peer before the sending call returns. Delivery is best effort and at most once.
type Hub struct {
	driversMu sync.RWMutex
	drivers   map[int64]Peer

	customersMu sync.RWMutex
	customers   map[int64]Peer

	watchersMu sync.RWMutex
	watchers   map[int64]map[string]Peer

	trackingMu sync.RWMutex
	tracking   map[string]Peer
	vehicles   map[int64]map[string]Peer

	l logger.Logger
}

func NewHub(l logger.Logger) *Hub {
	return &Hub{
		drivers:   make(map[int64]Peer),
		customers: make(map[int64]Peer),
		watchers:  make(map[int64]map[string]Peer),
		tracking:  make(map[string]Peer),
		vehicles:  make(map[int64]map[string]Peer),
		l:         l,
	}
}

// AddDriver registers p as the channel of driverID. A previous channel of the
// same driver is closed.
func (h *Hub) AddDriver(driverID int64, p Peer) error {
	if p == nil {
		return ErrEmptyConn
	}

	h.driversMu.Lock()
	old, ok := h.drivers[driverID]
	h.drivers[driverID] = p
	h.driversMu.Unlock()

	h.replaced(types.AudienceDrivers, driverID, old, ok, p)
	return nil
}

// RemoveDriver unregisters p if it is still the channel of driverID.
func (h *Hub) RemoveDriver(driverID int64, p Peer) {
	h.driversMu.Lock()
	defer h.driversMu.Unlock()

	if cur, ok := h.drivers[driverID]; ok && cur == p {
		delete(h.drivers, driverID)
		metrics.WSConnections.WithLabelValues(string(types.AudienceDrivers)).Dec()
	}
}

// AddCustomer registers p as the channel of customerID. A previous channel of
// the same customer is closed.
func (h *Hub) AddCustomer(customerID int64, p Peer) error {
	if p == nil {
		return ErrEmptyConn
	}

	h.customersMu.Lock()
	old, ok := h.customers[customerID]
	h.customers[customerID] = p
	h.customersMu.Unlock()

	h.replaced(types.AudienceCustomers, customerID, old, ok, p)
	return nil
}

// RemoveCustomer unregisters p if it is still the channel of customerID.
func (h *Hub) RemoveCustomer(customerID int64, p Peer) {
	h.customersMu.Lock()
	defer h.customersMu.Unlock()

	if cur, ok := h.customers[customerID]; ok && cur == p {
		delete(h.customers, customerID)
		metrics.WSConnections.WithLabelValues(string(types.AudienceCustomers)).Dec()
	}
}

// Watch subscribes p to every event of tripID.
func (h *Hub) Watch(tripID int64, p Peer) error {
	if p == nil {
		return ErrEmptyConn
	}

	h.watchersMu.Lock()
	defer h.watchersMu.Unlock()

	set, ok := h.watchers[tripID]
	if !ok {
		set = make(map[string]Peer)
		h.watchers[tripID] = set
	}
	if _, exists := set[p.ID()]; !exists {
		set[p.ID()] = p
		metrics.WSConnections.WithLabelValues(string(types.AudienceWatchers)).Inc()
	}
	return nil
}

// Unwatch removes p from the watchers of tripID.
func (h *Hub) Unwatch(tripID int64, p Peer) {
	h.watchersMu.Lock()
	defer h.watchersMu.Unlock()

	h.unwatchLocked(tripID, p)
}

func (h *Hub) unwatchLocked(tripID int64, p Peer) {
	set, ok := h.watchers[tripID]
	if !ok {
		return
	}
	if cur, ok := set[p.ID()]; ok && cur == p {
		delete(set, p.ID())
		metrics.WSConnections.WithLabelValues(string(types.AudienceWatchers)).Dec()
	}
	if len(set) == 0 {
		delete(h.watchers, tripID)
	}
}

// AddTracking subscribes p to the location feed of all vehicles.
func (h *Hub) AddTracking(p Peer) error {
	if p == nil {
		return ErrEmptyConn
	}

	h.trackingMu.Lock()
	defer h.trackingMu.Unlock()

	if _, ok := h.tracking[p.ID()]; !ok {
		h.tracking[p.ID()] = p
		metrics.WSConnections.WithLabelValues(string(types.AudienceTracking)).Inc()
	}
	return nil
}

// SubscribeVehicle narrows the location feed of p to the given vehicles.
// p leaves the all-vehicles feed.
func (h *Hub) SubscribeVehicle(vehicleID int64, p Peer) error {
	if p == nil {
		return ErrEmptyConn
	}

	h.trackingMu.Lock()
	defer h.trackingMu.Unlock()

	if cur, ok := h.tracking[p.ID()]; ok && cur == p {
		delete(h.tracking, p.ID())
		metrics.WSConnections.WithLabelValues(string(types.AudienceTracking)).Dec()
	}

	set, ok := h.vehicles[vehicleID]
	if !ok {
		set = make(map[string]Peer)
		h.vehicles[vehicleID] = set
	}
	if _, exists := set[p.ID()]; !exists {
		set[p.ID()] = p
		metrics.WSConnections.WithLabelValues(string(types.AudienceVehicles)).Inc()
	}
	return nil
}

// Drop removes every registration of p. It does not close p.
func (h *Hub) Drop(p Peer) {
	if p == nil {
		return
	}

	h.driversMu.Lock()
	for id, cur := range h.drivers {
		if cur == p {
			delete(h.drivers, id)
			metrics.WSConnections.WithLabelValues(string(types.AudienceDrivers)).Dec()
		}
	}
	h.driversMu.Unlock()

	h.customersMu.Lock()
	for id, cur := range h.customers {
		if cur == p {
			delete(h.customers, id)
			metrics.WSConnections.WithLabelValues(string(types.AudienceCustomers)).Dec()
		}
	}
	h.customersMu.Unlock()

	h.watchersMu.Lock()
	for tripID := range h.watchers {
		h.unwatchLocked(tripID, p)
	}
	h.watchersMu.Unlock()

	h.trackingMu.Lock()
	if cur, ok := h.tracking[p.ID()]; ok && cur == p {
		delete(h.tracking, p.ID())
		metrics.WSConnections.WithLabelValues(string(types.AudienceTracking)).Dec()
	}
	for vehicleID, set := range h.vehicles {
		if cur, ok := set[p.ID()]; ok && cur == p {
			delete(set, p.ID())
			metrics.WSConnections.WithLabelValues(string(types.AudienceVehicles)).Dec()
		}
		if len(set) == 0 {
			delete(h.vehicles, vehicleID)
		}
	}
	h.trackingMu.Unlock()
}

// BroadcastDrivers sends msg to every connected driver except the excluded ids.
// It returns the number of successful deliveries.
func (h *Hub) BroadcastDrivers(ctx context.Context, msg []byte, exclude ...int64) int {
	h.driversMu.RLock()
	peers := make([]Peer, 0, len(h.drivers))
	for id, p := range h.drivers {
		if slices.Contains(exclude, id) {
			continue
		}
		peers = append(peers, p)
	}
	h.driversMu.RUnlock()

	return h.fanout(ctx, types.AudienceDrivers, peers, msg)
}

// SendDriver sends msg to one driver. An absent driver is not an error.
func (h *Hub) SendDriver(ctx context.Context, driverID int64, msg []byte) error {
	h.driversMu.RLock()
	p, ok := h.drivers[driverID]
	h.driversMu.RUnlock()

	if !ok {
		return nil
	}
	return h.sendOne(ctx, types.AudienceDrivers, p, msg)
}

// SendCustomer sends msg to one customer. An absent customer is not an error.
func (h *Hub) SendCustomer(ctx context.Context, customerID int64, msg []byte) error {
	h.customersMu.RLock()
	p, ok := h.customers[customerID]
	h.customersMu.RUnlock()

	if !ok {
		return nil
	}
	return h.sendOne(ctx, types.AudienceCustomers, p, msg)
}

// BroadcastTrip sends msg to every watcher of tripID.
func (h *Hub) BroadcastTrip(ctx context.Context, tripID int64, msg []byte) int {
	h.watchersMu.RLock()
	set := h.watchers[tripID]
	peers := make([]Peer, 0, len(set))
	for _, p := range set {
		peers = append(peers, p)
	}
	h.watchersMu.RUnlock()

	return h.fanout(ctx, types.AudienceWatchers, peers, msg)
}

// BroadcastTracking sends msg to every subscriber of the all-vehicles feed.
func (h *Hub) BroadcastTracking(ctx context.Context, msg []byte) int {
	h.trackingMu.RLock()
	peers := make([]Peer, 0, len(h.tracking))
	for _, p := range h.tracking {
		peers = append(peers, p)
	}
	h.trackingMu.RUnlock()

	return h.fanout(ctx, types.AudienceTracking, peers, msg)
}

// SendVehicle sends msg to the subscribers of one vehicle.
func (h *Hub) SendVehicle(ctx context.Context, vehicleID int64, msg []byte) int {
	h.trackingMu.RLock()
	set := h.vehicles[vehicleID]
	peers := make([]Peer, 0, len(set))
	for _, p := range set {
		peers = append(peers, p)
	}
	h.trackingMu.RUnlock()

	return h.fanout(ctx, types.AudienceVehicles, peers, msg)
}

// Stats returns a snapshot of the registry.
func (h *Hub) Stats() models.Stats {
	var s models.Stats

	h.driversMu.RLock()
	s.ConnectedDrivers = len(h.drivers)
	s.DriverIDs = make([]int64, 0, len(h.drivers))
	for id := range h.drivers {
		s.DriverIDs = append(s.DriverIDs, id)
	}
	h.driversMu.RUnlock()

	h.customersMu.RLock()
	s.ConnectedCustomers = len(h.customers)
	s.CustomerIDs = make([]int64, 0, len(h.customers))
	for id := range h.customers {
		s.CustomerIDs = append(s.CustomerIDs, id)
	}
	h.customersMu.RUnlock()

	h.watchersMu.RLock()
	s.ActiveTripWatchers = len(h.watchers)
	h.watchersMu.RUnlock()

	h.trackingMu.RLock()
	s.TrackingViewers = len(h.tracking)
	for _, set := range h.vehicles {
		s.VehicleSubscribers += len(set)
	}
	h.trackingMu.RUnlock()

	slices.Sort(s.DriverIDs)
	slices.Sort(s.CustomerIDs)
	return s
}

// Close closes every registered connection and empties the registry.
func (h *Hub) Close() {
	ctx := wrap.WithAction(context.Background(), types.ActionWSHubClose)

	seen := make(map[Peer]struct{})
	collect := func(p Peer) {
		seen[p] = struct{}{}
	}

	h.driversMu.Lock()
	for _, p := range h.drivers {
		collect(p)
	}
	h.drivers = make(map[int64]Peer)
	h.driversMu.Unlock()

	h.customersMu.Lock()
	for _, p := range h.customers {
		collect(p)
	}
	h.customers = make(map[int64]Peer)
	h.customersMu.Unlock()

	h.watchersMu.Lock()
	for _, set := range h.watchers {
		for _, p := range set {
			collect(p)
		}
	}
	h.watchers = make(map[int64]map[string]Peer)
	h.watchersMu.Unlock()

	h.trackingMu.Lock()
	for _, p := range h.tracking {
		collect(p)
	}
	for _, set := range h.vehicles {
		for _, p := range set {
			collect(p)
		}
	}
	h.tracking = make(map[string]Peer)
	h.vehicles = make(map[int64]map[string]Peer)
	h.trackingMu.Unlock()

	metrics.WSConnections.Reset()

	// закрываем вне локов
	for p := range seen {
		if err := p.Close(); err != nil {
			h.l.Debug(ctx, "failed to close connection", "conn_id", p.ID(), "error", err.Error())
		}
	}

	h.l.Info(ctx, "all websocket connections closed", "count", len(seen))
}

// fanout sends msg to peers concurrently and waits for every send.
// Peers whose send failed are evicted and closed.
func (h *Hub) fanout(ctx context.Context, audience types.Audience, peers []Peer, msg []byte) int {
	if len(peers) == 0 {
		return 0
	}

	errs := make([]error, len(peers))
	var wg sync.WaitGroup
	for i, p := range peers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = p.Send(msg)
		}()
	}
	wg.Wait()

	delivered := 0
	for i, err := range errs {
		if err == nil {
			delivered++
			metrics.RecordNotification(string(audience), nil)
			continue
		}
		metrics.RecordNotification(string(audience), err)
		h.evict(ctx, audience, peers[i], err)
	}
	return delivered
}

func (h *Hub) sendOne(ctx context.Context, audience types.Audience, p Peer, msg []byte) error {
	err := p.Send(msg)
	metrics.RecordNotification(string(audience), err)
	if err != nil {
		h.evict(ctx, audience, p, err)
		return fmt.Errorf("%w: %w", ErrDeliveryFailure, err)
	}
	return nil
}

func (h *Hub) evict(ctx context.Context, audience types.Audience, p Peer, cause error) {
	ctx = wrap.WithAction(ctx, types.ActionWSEvicted)
	h.l.Warn(ctx, "evicting connection after failed send", "conn_id", p.ID(), "audience", audience, "error", cause.Error())

	h.Drop(p)
	if err := p.Close(); err != nil {
		h.l.Debug(ctx, "failed to close evicted connection", "conn_id", p.ID(), "error", err.Error())
	}
}

func (h *Hub) replaced(audience types.Audience, id int64, old Peer, existed bool, p Peer) {
	ctx := wrap.WithAction(context.Background(), types.ActionWSConnected)

	if !existed {
		metrics.WSConnections.WithLabelValues(string(audience)).Inc()
		return
	}
	if old == p {
		return
	}

	h.l.Warn(ctx, "replacing existing connection", "audience", audience, "entity_id", id)
	if err := old.Close(); err != nil {
		h.l.Debug(ctx, "failed to close replaced connection", "entity_id", id, "error", err.Error())
	}
}
