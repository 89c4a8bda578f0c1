package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/taxi-dispatch/config"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	"github.com/Temutjin2k/taxi-dispatch/internal/service/auth"
	"github.com/Temutjin2k/taxi-dispatch/pkg/logger"
	ws "github.com/Temutjin2k/taxi-dispatch/pkg/wsHub"
)

const testSecret = "server-test-secret"

type stubTrips struct{}

func (stubTrips) RequestTrip(_ context.Context, customerID int64, pickup, destination models.Point) (*models.Trip, error) {
	return &models.Trip{ID: 1, CustomerID: &customerID, Pickup: pickup, Destination: destination, Status: types.TripRequested}, nil
}

func (stubTrips) Accept(context.Context, int64, int64) (*models.Trip, error) {
	return nil, types.ErrInvalidState
}

func (stubTrips) Arrive(context.Context, int64, *int64) (*models.Trip, error) {
	return nil, types.ErrInvalidState
}

func (stubTrips) Start(context.Context, int64, *int64) (*models.Trip, error) {
	return nil, types.ErrInvalidState
}

func (stubTrips) Complete(context.Context, int64, *int64) (*models.Trip, error) {
	return nil, types.ErrInvalidState
}

func (stubTrips) Cancel(context.Context, int64, *int64) (*models.Trip, error) {
	return nil, types.ErrInvalidState
}

func (stubTrips) Get(_ context.Context, id int64) (*models.Trip, error) {
	if id != 7 {
		return nil, types.ErrTripNotFound
	}
	customer := int64(10)
	return &models.Trip{ID: 7, CustomerID: &customer, Status: types.TripRequested}, nil
}

func (stubTrips) List(context.Context, models.TripFilter) ([]*models.Trip, error) {
	return nil, nil
}

type stubTracking struct{}

func (stubTracking) Ingest(_ context.Context, vehicleID int64, fix models.Fix) (*models.Fix, error) {
	fix.VehicleID = vehicleID
	return &fix, nil
}

func (stubTracking) LiveLocations(context.Context) ([]*models.Fix, error) {
	return nil, nil
}

func (stubTracking) History(context.Context, int64, int) ([]*models.Fix, error) {
	return nil, nil
}

type testAPI struct {
	handler http.Handler
	tokens  *auth.TokenService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	log := logger.New(io.Discard, "test", logger.LevelError)

	cfg := config.Config{ServiceName: "dispatch-test"}
	cfg.Auth.JWTSecret = testSecret
	cfg.SetDefaults()

	tokens := auth.NewTokenService(testSecret, log)
	hub := ws.NewHub(log)
	t.Cleanup(hub.Close)

	api, err := New(cfg, Deps{
		Trips:    stubTrips{},
		Tracking: stubTracking{},
		Registry: hub,
		Auth:     tokens,
	}, log)
	require.NoError(t, err)

	return &testAPI{handler: api.Handler(), tokens: tokens}
}

func (a *testAPI) do(t *testing.T, method, path string, user *models.User) *httptest.ResponseRecorder {
	t.Helper()

	r := httptest.NewRequest(method, path, nil)
	if user != nil {
		token, err := a.tokens.Sign(user, time.Hour)
		require.NoError(t, err)
		r.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, r)
	return rec
}

func TestNewRequiresDeps(t *testing.T) {
	log := logger.New(io.Discard, "test", logger.LevelError)

	_, err := New(config.Config{}, Deps{}, log)
	assert.Error(t, err)

	_, err = New(config.Config{}, Deps{Auth: auth.NewTokenService(testSecret, log)}, log)
	assert.Error(t, err)
}

func TestRoutes(t *testing.T) {
	api := newTestAPI(t)

	customer := &models.User{ID: 10, Role: types.RoleCustomer}
	stranger := &models.User{ID: 11, Role: types.RoleCustomer}
	admin := &models.User{ID: 1, Role: types.RoleAdmin}

	tests := []struct {
		name   string
		method string
		path   string
		user   *models.User
		code   int
	}{
		{"health is public", http.MethodGet, "/health", nil, http.StatusOK},
		{"list needs a token", http.MethodGet, "/api/v1/trips", nil, http.StatusUnauthorized},
		{"owner reads trip", http.MethodGet, "/api/v1/trips/7", customer, http.StatusOK},
		{"other customer cannot see trip", http.MethodGet, "/api/v1/trips/7", stranger, http.StatusNotFound},
		{"unknown trip", http.MethodGet, "/api/v1/trips/8", customer, http.StatusNotFound},
		{"customer cannot accept", http.MethodPost, "/api/v1/trips/7/accept", customer, http.StatusForbidden},
		{"stats are admin only", http.MethodGet, "/api/v1/trips/ws-stats", customer, http.StatusForbidden},
		{"admin reads stats", http.MethodGet, "/api/v1/trips/ws-stats", admin, http.StatusOK},
		{"wrong method", http.MethodDelete, "/api/v1/trips/7", customer, http.StatusMethodNotAllowed},
		{"unknown path", http.MethodGet, "/nope", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, tt.method, tt.path, tt.user)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestStatsBody(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/trips/ws-stats", &models.User{ID: 1, Role: types.RoleAdmin})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Stats models.Stats `json:"stats"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Zero(t, body.Stats.ConnectedDrivers)
}

func TestMetricsUseRoutePatterns(t *testing.T) {
	api := newTestAPI(t)

	api.do(t, http.MethodGet, "/api/v1/trips/7", &models.User{ID: 10, Role: types.RoleCustomer})

	rec := api.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `path="GET /api/v1/trips/{trip_id}"`)
	assert.NotContains(t, rec.Body.String(), `path="/api/v1/trips/7"`)
}
