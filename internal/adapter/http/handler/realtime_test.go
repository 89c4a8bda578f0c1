package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "github.com/Temutjin2k/taxi-dispatch/pkg/wsHub"
)

func newRealtimeServer(t *testing.T, origins ...string) (*ws.Hub, *httptest.Server) {
	t.Helper()

	hub := ws.NewHub(testLogger())
	h := NewRealtime(hub, RealtimeConfig{
		WriteWait:      time.Second,
		PongWait:       time.Minute,
		PingPeriod:     30 * time.Second,
		AllowedOrigins: origins,
	}, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/trips/driver/{driver_id}", h.DriverChannel)
	mux.HandleFunc("GET /ws/trips/customer/{customer_id}", h.CustomerChannel)
	mux.HandleFunc("GET /ws/trips/{trip_id}/watch", h.WatchTrip)
	mux.HandleFunc("GET /ws/tracking", h.TrackingChannel)

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, path string, header http.Header) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	c, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func readText(t *testing.T, c *websocket.Conn) string {
	t.Helper()

	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := c.ReadMessage()
	require.NoError(t, err)
	return string(msg)
}

func TestRealtimeChannels(t *testing.T) {
	hub, srv := newRealtimeServer(t)
	ctx := context.Background()

	driverConn := dial(t, srv, "/ws/trips/driver/5", nil)
	customerConn := dial(t, srv, "/ws/trips/customer/10", nil)
	watchConn := dial(t, srv, "/ws/trips/7/watch", nil)
	trackingConn := dial(t, srv, "/ws/tracking", nil)
	vehicleConn := dial(t, srv, "/ws/tracking?vehicle_id=101", nil)

	require.Eventually(t, func() bool {
		s := hub.Stats()
		return s.ConnectedDrivers == 1 && s.ConnectedCustomers == 1 && s.ActiveTripWatchers == 1 &&
			s.TrackingViewers == 1 && s.VehicleSubscribers == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, hub.BroadcastDrivers(ctx, []byte(`{"type":"new_trip"}`)))
	assert.Equal(t, `{"type":"new_trip"}`, readText(t, driverConn))

	require.NoError(t, hub.SendCustomer(ctx, 10, []byte(`{"type":"trip_accepted"}`)))
	assert.Equal(t, `{"type":"trip_accepted"}`, readText(t, customerConn))

	assert.Equal(t, 1, hub.BroadcastTrip(ctx, 7, []byte(`{"type":"driver_arrived"}`)))
	assert.Equal(t, `{"type":"driver_arrived"}`, readText(t, watchConn))

	assert.Equal(t, 1, hub.BroadcastTracking(ctx, []byte(`{"type":"location_update"}`)))
	assert.Equal(t, `{"type":"location_update"}`, readText(t, trackingConn))

	assert.Equal(t, 1, hub.SendVehicle(ctx, 101, []byte(`{"type":"location_update","data":{"vehicle_id":101}}`)))
	assert.Contains(t, readText(t, vehicleConn), `"vehicle_id":101`)
}

func TestRealtimeDisconnectDropsRegistration(t *testing.T) {
	hub, srv := newRealtimeServer(t)

	c := dial(t, srv, "/ws/trips/driver/5", nil)
	require.Eventually(t, func() bool { return hub.Stats().ConnectedDrivers == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	c.Close()

	require.Eventually(t, func() bool { return hub.Stats().ConnectedDrivers == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRealtimeLatestDriverConnectionWins(t *testing.T) {
	hub, srv := newRealtimeServer(t)

	first := dial(t, srv, "/ws/trips/driver/5", nil)
	require.Eventually(t, func() bool { return hub.Stats().ConnectedDrivers == 1 }, 2*time.Second, 10*time.Millisecond)

	second := dial(t, srv, "/ws/trips/driver/5", nil)

	// the replaced connection is closed by the server
	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := first.ReadMessage()
	require.Error(t, err)

	require.Eventually(t, func() bool {
		return hub.BroadcastDrivers(context.Background(), []byte("ping")) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "ping", readText(t, second))
	assert.Equal(t, 1, hub.Stats().ConnectedDrivers)
}

func TestRealtimeRejectsBadRequests(t *testing.T) {
	_, srv := newRealtimeServer(t, "https://dispatch.example.com")

	for _, path := range []string{"/ws/trips/driver/abc", "/ws/tracking?vehicle_id=-1"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/tracking"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	dial(t, srv, "/ws/tracking", http.Header{"Origin": {"https://dispatch.example.com"}})
}
