package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Temutjin2k/taxi-dispatch/config"
	"github.com/Temutjin2k/taxi-dispatch/internal/adapter/http/handler"
	"github.com/Temutjin2k/taxi-dispatch/internal/adapter/http/middleware"
	"github.com/Temutjin2k/taxi-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/taxi-dispatch/pkg/logger/wrapper"
)

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *handlers
	m      *middleware.Middleware

	addr string
	cfg  config.Config
	log  logger.Logger
}

type handlers struct {
	health   *handler.Health
	trip     *handler.Trip
	tracking *handler.Tracking
	realtime *handler.Realtime
}

// Deps are the services behind the HTTP API.
type Deps struct {
	Trips    handler.TripService
	Tracking handler.TrackingService
	Registry handler.Registry
	Auth     middleware.AuthService
	Checks   map[string]handler.Check
}

func New(cfg config.Config, deps Deps, log logger.Logger) (*API, error) {
	switch {
	case deps.Auth == nil:
		return nil, errors.New("auth service is required")
	case deps.Trips == nil || deps.Tracking == nil:
		return nil, errors.New("trip and tracking services are required")
	case deps.Registry == nil:
		return nil, errors.New("connection registry is required")
	}

	routes := &handlers{
		health:   handler.NewHealth(cfg.ServiceName, deps.Checks, log),
		trip:     handler.NewTrip(deps.Trips, log),
		tracking: handler.NewTracking(deps.Tracking, log),
		realtime: handler.NewRealtime(deps.Registry, handler.RealtimeConfig{
			WriteWait:       cfg.WebSocket.WriteWait,
			PongWait:        cfg.WebSocket.PongWait,
			PingPeriod:      cfg.WebSocket.PingPeriod,
			ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.WebSocket.WriteBufferSize,
			AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
		}, log),
	}

	api := &API{
		mux:    http.NewServeMux(),
		routes: routes,
		addr:   cfg.Server.Addr(),
		cfg:    cfg,
		log:    log,
	}
	api.m = middleware.NewMiddleware(cfg.ServiceName, deps.Auth, api.route, log)

	api.server = &http.Server{
		Addr:              api.addr,
		Handler:           api.withMiddleware(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	setupRoutes(api.mux, routes, api.m)

	return api, nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *API) Handler() http.Handler {
	return a.server.Handler
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// route returns the mux pattern r resolves to, keeping path ids out of metric labels.
func (a *API) route(r *http.Request) string {
	_, pattern := a.mux.Handler(r)
	return pattern
}

// withMiddleware applies middlewares to the mux
func (a *API) withMiddleware() http.Handler {
	return a.m.Recover(
		a.m.RequestID(
			a.m.Metrics(
				a.m.Logging(
					a.m.Auth(a.mux),
				),
			),
		),
	)
}
