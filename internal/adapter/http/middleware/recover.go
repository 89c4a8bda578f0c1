package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	wrap "github.com/Temutjin2k/taxi-dispatch/pkg/logger/wrapper"
)

// Recover turns a handler panic into a 500 response. http.ErrAbortHandler is
// passed on to the server.
func (m *Middleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if p == http.ErrAbortHandler {
				panic(p)
			}

			ctx := wrap.WithAction(r.Context(), "panic_recovered")
			m.log.Error(ctx, "handler panicked", fmt.Errorf("%v", p), "path", r.URL.Path, "stack", string(debug.Stack()))

			w.Header().Set("Connection", "close")
			errorResponse(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
		}()

		next.ServeHTTP(w, r)
	})
}
