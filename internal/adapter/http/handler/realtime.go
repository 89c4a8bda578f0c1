package handler

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	"github.com/Temutjin2k/taxi-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/taxi-dispatch/pkg/logger/wrapper"
	ws "github.com/Temutjin2k/taxi-dispatch/pkg/wsHub"
)

// Registry keeps the realtime subscriptions of this process.
type Registry interface {
	AddDriver(driverID int64, p ws.Peer) error
	AddCustomer(customerID int64, p ws.Peer) error
	Watch(tripID int64, p ws.Peer) error
	AddTracking(p ws.Peer) error
	SubscribeVehicle(vehicleID int64, p ws.Peer) error
	Drop(p ws.Peer)
	Stats() models.Stats
}

type RealtimeConfig struct {
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	ReadBufferSize  int
	WriteBufferSize int
	AllowedOrigins  []string
}

// Realtime upgrades HTTP requests to websocket subscriptions.
type Realtime struct {
	registry Registry
	upgrader websocket.Upgrader
	cfg      RealtimeConfig
	l        logger.Logger
}

func NewRealtime(registry Registry, cfg RealtimeConfig, l logger.Logger) *Realtime {
	return &Realtime{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		cfg: cfg,
		l:   l,
	}
}

// DriverChannel godoc
// @Summary      Driver event channel
// @Description  WebSocket receiving new_trip, trip_taken and the events of trips assigned to the driver
// @Tags         realtime
// @Param        driver_id path int true "Driver ID"
// @Success      101 "Switching Protocols"
// @Router       /ws/trips/driver/{driver_id} [get]
func (h *Realtime) DriverChannel(w http.ResponseWriter, r *http.Request) {
	driverID, err := readIDParam(r, "driver_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	ctx := wrap.WithDriverID(r.Context(), strconv.FormatInt(driverID, 10))
	h.serve(ctx, w, r, types.AudienceDrivers, func(c *ws.Conn) error {
		return h.registry.AddDriver(driverID, c)
	})
}

// CustomerChannel godoc
// @Summary      Customer event channel
// @Description  WebSocket receiving the events of the customer's trips
// @Tags         realtime
// @Param        customer_id path int true "Customer ID"
// @Success      101 "Switching Protocols"
// @Router       /ws/trips/customer/{customer_id} [get]
func (h *Realtime) CustomerChannel(w http.ResponseWriter, r *http.Request) {
	customerID, err := readIDParam(r, "customer_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	ctx := wrap.WithUserID(r.Context(), strconv.FormatInt(customerID, 10))
	h.serve(ctx, w, r, types.AudienceCustomers, func(c *ws.Conn) error {
		return h.registry.AddCustomer(customerID, c)
	})
}

// WatchTrip godoc
// @Summary      Watch a trip
// @Description  WebSocket receiving every event of one trip
// @Tags         realtime
// @Param        trip_id path int true "Trip ID"
// @Success      101 "Switching Protocols"
// @Router       /ws/trips/{trip_id}/watch [get]
func (h *Realtime) WatchTrip(w http.ResponseWriter, r *http.Request) {
	tripID, err := readIDParam(r, "trip_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	ctx := wrap.WithTripID(r.Context(), strconv.FormatInt(tripID, 10))
	h.serve(ctx, w, r, types.AudienceWatchers, func(c *ws.Conn) error {
		return h.registry.Watch(tripID, c)
	})
}

// TrackingChannel godoc
// @Summary      Location feed
// @Description  WebSocket receiving location_update messages of every vehicle, or of one vehicle when vehicle_id is set
// @Tags         realtime
// @Param        vehicle_id query int false "Vehicle ID"
// @Success      101 "Switching Protocols"
// @Router       /ws/tracking [get]
func (h *Realtime) TrackingChannel(w http.ResponseWriter, r *http.Request) {
	var vehicleID int64
	if s := r.URL.Query().Get("vehicle_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id < 1 {
			badRequestResponse(w, "invalid vehicle_id query parameter")
			return
		}
		vehicleID = id
	}

	ctx := r.Context()
	audience := types.AudienceTracking
	if vehicleID != 0 {
		ctx = wrap.WithVehicleID(ctx, strconv.FormatInt(vehicleID, 10))
		audience = types.AudienceVehicles
	}

	h.serve(ctx, w, r, audience, func(c *ws.Conn) error {
		if vehicleID != 0 {
			return h.registry.SubscribeVehicle(vehicleID, c)
		}
		return h.registry.AddTracking(c)
	})
}

// Stats godoc
// @Summary      Realtime connection statistics
// @Tags         realtime
// @Produce      json
// @Success      200 {object} models.Stats
// @Security     BearerAuth
// @Router       /api/v1/trips/ws-stats [get]
func (h *Realtime) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "ws_stats")

	if err := writeJSON(w, http.StatusOK, envelope{"stats": h.registry.Stats()}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// serve upgrades the request, registers the connection and blocks until the
// peer goes away.
func (h *Realtime) serve(ctx context.Context, w http.ResponseWriter, r *http.Request, audience types.Audience, register func(c *ws.Conn) error) {
	ctx = wrap.WithAction(ctx, types.ActionWSConnected)

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		h.l.Warn(ctx, "websocket upgrade failed", "audience", audience, "error", err.Error())
		return
	}

	conn := ws.NewConn(raw, h.cfg.WriteWait)
	defer func() {
		h.registry.Drop(conn)
		_ = conn.Close()
	}()

	if err := register(conn); err != nil {
		h.l.Error(ctx, "failed to register connection", err, "audience", audience)
		return
	}
	h.l.Info(ctx, "websocket connected", "audience", audience, "conn_id", conn.ID(), "remote_addr", r.RemoteAddr)

	err = conn.Listen(ctx, h.cfg.PongWait, h.cfg.PingPeriod, nil)

	ctx = wrap.WithAction(ctx, types.ActionWSDisconnect)
	if err != nil {
		h.l.Debug(ctx, "websocket closed with error", "audience", audience, "conn_id", conn.ID(), "error", err.Error())
		return
	}
	h.l.Info(ctx, "websocket disconnected", "audience", audience, "conn_id", conn.ID())
}

// originChecker allows every origin when the list is empty or contains "*".
// Requests without an Origin header come from non-browser clients and pass.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
