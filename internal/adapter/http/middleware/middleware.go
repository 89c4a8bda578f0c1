package middleware

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/pkg/logger"
)

const unmatchedRoute = "unmatched"

type (
	AuthService interface {
		RoleCheck(ctx context.Context, token string) (*models.User, error)
	}

	// RouteFunc returns the pattern a request matched, e.g. "GET /api/v1/trips/{trip_id}".
	RouteFunc func(r *http.Request) string

	Middleware struct {
		auth    AuthService
		service string
		route   RouteFunc
		log     logger.Logger
	}
)

// NewMiddleware builds the middleware set. route labels logs and metrics; a
// nil route reports every request as unmatched.
func NewMiddleware(service string, auth AuthService, route RouteFunc, log logger.Logger) *Middleware {
	return &Middleware{
		auth:    auth,
		service: service,
		route:   route,
		log:     log,
	}
}

func (m *Middleware) routeOf(r *http.Request) string {
	if m.route == nil {
		return unmatchedRoute
	}
	if p := m.route(r); p != "" {
		return p
	}
	return unmatchedRoute
}
