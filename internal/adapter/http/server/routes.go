package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Temutjin2k/taxi-dispatch/docs"
	"github.com/Temutjin2k/taxi-dispatch/internal/adapter/http/middleware"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
)

// setupRoutes - setups http routes
func setupRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	// System Health
	mux.HandleFunc("GET /health", routes.health.HealthCheck)

	setupSwaggerRoutes(mux)
	setupMetricsRoute(mux)
	setupTripRoutes(mux, routes, m)
	setupTrackingRoutes(mux, routes, m)
	setupRealtimeRoutes(mux, routes)
}

func setupTripRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("POST /api/v1/trips", m.RequireRoles(routes.trip.RequestTrip, types.RoleCustomer, types.RoleAdmin)) // Request a trip
	mux.Handle("GET /api/v1/trips", m.RequireRoles(routes.trip.List))                                              // List trips
	mux.Handle("GET /api/v1/trips/ws-stats", m.RequireRoles(routes.realtime.Stats, types.RoleAdmin))               // Realtime registry stats
	mux.Handle("GET /api/v1/trips/{trip_id}", m.RequireRoles(routes.trip.Get))                                     // Get a trip
	mux.Handle("POST /api/v1/trips/{trip_id}/accept", m.RequireRoles(routes.trip.Accept, types.RoleDriver))        // Driver accepts
	mux.Handle("POST /api/v1/trips/{trip_id}/arrive", m.RequireRoles(routes.trip.Arrive, types.RoleDriver))        // Driver arrived at pickup
	mux.Handle("POST /api/v1/trips/{trip_id}/start", m.RequireRoles(routes.trip.Start, types.RoleDriver))          // Passenger on board
	mux.Handle("POST /api/v1/trips/{trip_id}/complete", m.RequireRoles(routes.trip.Complete, types.RoleDriver))    // Trip finished
	mux.Handle("POST /api/v1/trips/{trip_id}/cancel", m.RequireRoles(routes.trip.Cancel))                          // Cancel a trip
}

func setupTrackingRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.HandleFunc("POST /api/v1/tracking/location", routes.tracking.UpdateLocation)                         // Device location report
	mux.Handle("GET /api/v1/tracking/live", m.RequireRoles(routes.tracking.LiveLocations))                   // Live vehicle locations
	mux.Handle("GET /api/v1/tracking/vehicle/{vehicle_id}/history", m.RequireRoles(routes.tracking.History)) // Location history
}

func setupRealtimeRoutes(mux *http.ServeMux, routes *handlers) {
	mux.HandleFunc("GET /ws/trips/driver/{driver_id}", routes.realtime.DriverChannel)       // Driver channel
	mux.HandleFunc("GET /ws/trips/customer/{customer_id}", routes.realtime.CustomerChannel) // Customer channel
	mux.HandleFunc("GET /ws/trips/{trip_id}/watch", routes.realtime.WatchTrip)              // Trip watchers
	mux.HandleFunc("GET /ws/tracking", routes.realtime.TrackingChannel)                     // Location feed
}

// setupSwaggerRoutes serves the Swagger UI of the dispatch API
func setupSwaggerRoutes(mux *http.ServeMux) {
	swaggerURL := httpSwagger.InstanceName(docs.InstanceName)
	mux.HandleFunc("/swagger/", httpSwagger.Handler(swaggerURL))
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func setupMetricsRoute(mux *http.ServeMux) {
	mux.Handle("GET /metrics", promhttp.Handler())
}
