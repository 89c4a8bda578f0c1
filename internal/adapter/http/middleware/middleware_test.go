package middleware

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	"github.com/Temutjin2k/taxi-dispatch/internal/service/auth"
	"github.com/Temutjin2k/taxi-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/taxi-dispatch/pkg/logger/wrapper"
)

type stubAuth struct {
	users map[string]*models.User
}

func (a stubAuth) RoleCheck(_ context.Context, token string) (*models.User, error) {
	if token == "expired" {
		return nil, fmt.Errorf("parse: %w", auth.ErrExpToken)
	}
	u, ok := a.users[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return u, nil
}

func newTestMiddleware() *Middleware {
	return NewMiddleware("test", stubAuth{users: map[string]*models.User{
		"customer": {ID: 10, Role: types.RoleCustomer},
		"admin":    {ID: 1, Role: types.RoleAdmin},
		"driver":   {ID: 20, Role: types.RoleDriver, DriverID: ptr(int64(3))},
	}}, func(*http.Request) string { return "GET /ws" }, logger.New(io.Discard, "test", logger.LevelError))
}

func ptr[T any](v T) *T {
	return &v
}

func TestAuth(t *testing.T) {
	m := newTestMiddleware()

	var (
		seen   *models.User
		logCtx wrap.LogCtx
	)
	h := m.Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = models.UserFromContext(r.Context())
		logCtx = wrap.FromContext(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		code   int
		role   types.UserRole
		body   string
	}{
		{"anonymous", "", http.StatusOK, types.RoleAnonymous, ""},
		{"valid token", "Bearer customer", http.StatusOK, types.RoleCustomer, ""},
		{"lowercase scheme", "bearer admin", http.StatusOK, types.RoleAdmin, ""},
		{"bad scheme", "Basic abc", http.StatusUnauthorized, "", "invalid Authorization header format"},
		{"empty token", "Bearer  ", http.StatusUnauthorized, "", "invalid Authorization header format"},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, "", "invalid credentials"},
		{"expired token", "Bearer expired", http.StatusUnauthorized, "", "token expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)

			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusOK {
				require.NotNil(t, seen)
				assert.Equal(t, tt.role, seen.Role)
			} else {
				assert.Nil(t, seen)
				assert.Contains(t, rec.Body.String(), tt.body)
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer driver")
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "20", logCtx.UserID)
	assert.Equal(t, "3", logCtx.DriverID)
}

func TestRequireRoles(t *testing.T) {
	m := newTestMiddleware()
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }

	serve := func(h http.Handler, u *models.User) int {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(models.WithUser(r.Context(), u))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	adminOnly := m.RequireRoles(ok, types.RoleAdmin)
	assert.Equal(t, http.StatusNoContent, serve(adminOnly, &models.User{ID: 1, Role: types.RoleAdmin}))
	assert.Equal(t, http.StatusForbidden, serve(adminOnly, &models.User{ID: 2, Role: types.RoleDriver}))
	assert.Equal(t, http.StatusUnauthorized, serve(adminOnly, models.AnonymousUser()))

	anyone := m.RequireRoles(ok)
	assert.Equal(t, http.StatusNoContent, serve(anyone, &models.User{ID: 2, Role: types.RoleCustomer}))
	assert.Equal(t, http.StatusUnauthorized, serve(anyone, nil))
}

func TestRequestID(t *testing.T) {
	m := newTestMiddleware()

	var logged string
	h := m.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logged = wrap.FromContext(r.Context()).RequestID
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, logged)
	assert.Equal(t, logged, rec.Header().Get(requestIDHeader))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, "abc-123", logged)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestRecover(t *testing.T) {
	m := newTestMiddleware()
	h := m.Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() { h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil)) })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "close", rec.Header().Get("Connection"))
	assert.NotContains(t, rec.Body.String(), "boom")
}

type hijackRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (h *hijackRecorder) Hijack() (c net.Conn, rw *bufio.ReadWriter, err error) {
	h.hijacked = true
	return nil, nil, nil
}

func TestWrappersKeepHijacker(t *testing.T) {
	m := newTestMiddleware()

	var status int
	h := m.Logging(m.Metrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		_, _, err := hj.Hijack()
		require.NoError(t, err)
		status = w.(*statusRecorder).Status()
	})))

	rec := &hijackRecorder{ResponseRecorder: httptest.NewRecorder()}
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.True(t, rec.hijacked)
	assert.Equal(t, http.StatusSwitchingProtocols, status)
}

func TestStatusRecorder(t *testing.T) {
	tests := []struct {
		name  string
		serve func(w http.ResponseWriter)
		want  int
	}{
		{"implicit ok", func(w http.ResponseWriter) { w.Write([]byte("x")) }, http.StatusOK},
		{"nothing written", func(http.ResponseWriter) {}, http.StatusOK},
		{"explicit", func(w http.ResponseWriter) { w.WriteHeader(http.StatusConflict) }, http.StatusConflict},
		{"first wins", func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusCreated)
			w.WriteHeader(http.StatusInternalServerError)
		}, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := recordStatus(httptest.NewRecorder())
			tt.serve(rec)
			assert.Equal(t, tt.want, rec.Status())
			assert.Same(t, rec, recordStatus(rec))
		})
	}
}

func TestRouteFallback(t *testing.T) {
	m := NewMiddleware("test", stubAuth{}, nil, logger.New(io.Discard, "test", logger.LevelError))
	assert.Equal(t, unmatchedRoute, m.routeOf(httptest.NewRequest(http.MethodGet, "/", nil)))

	m.route = func(*http.Request) string { return "" }
	assert.Equal(t, unmatchedRoute, m.routeOf(httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestRecoverPassesAbortHandler(t *testing.T) {
	m := newTestMiddleware()
	h := m.Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
