package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/models"
	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
	"github.com/Temutjin2k/taxi-dispatch/internal/service/auth"
	wrap "github.com/Temutjin2k/taxi-dispatch/pkg/logger/wrapper"
)

// Auth resolves the bearer token into a user stored in the request context.
// A request without Authorization continues as anonymous; a malformed or
// rejected token ends with 401.
func (m *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r.WithContext(models.WithUser(ctx, models.AnonymousUser())))
			return
		}

		token, ok := bearerToken(header)
		if !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			errorResponse(w, http.StatusUnauthorized, "invalid Authorization header format")
			return
		}

		user, err := m.auth.RoleCheck(ctx, token)
		if err != nil || user == nil {
			if err == nil {
				err = auth.ErrInvalidToken
			}
			m.log.Warn(wrap.ErrorCtx(ctx, err), "rejected access token", "error", err.Error())

			msg := "invalid credentials"
			if errors.Is(err, auth.ErrExpToken) {
				msg = "token expired"
			}
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			errorResponse(w, http.StatusUnauthorized, msg)
			return
		}

		ctx = wrap.WithUserID(ctx, strconv.FormatInt(user.ID, 10))
		if user.DriverID != nil {
			ctx = wrap.WithDriverID(ctx, strconv.FormatInt(*user.DriverID, 10))
		}
		next.ServeHTTP(w, r.WithContext(models.WithUser(ctx, user)))
	})
}

// RequireRoles lets through authenticated users holding one of roles. No
// roles means any authenticated user.
func (m *Middleware) RequireRoles(next http.HandlerFunc, roles ...types.UserRole) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := models.UserFromContext(r.Context())
		if user.IsAnonymous() {
			errorResponse(w, http.StatusUnauthorized, "authorization required")
			return
		}
		if len(roles) > 0 && !slices.Contains(roles, user.Role) {
			errorResponse(w, http.StatusForbidden, "forbidden: insufficient role")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}
