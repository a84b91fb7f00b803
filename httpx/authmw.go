package httpx

import (
	"net/http"

	"github.com/chesspulse/chesspulse/auth"
)

// AuthMiddleware bridges the net/http session middleware into the echo
// middleware chain for admin routes.
func AuthMiddleware(mw *auth.Middleware) MiddlewareFunc {
	if mw == nil {
		return func(next HandlerFunc) HandlerFunc {
			return func(c Context) error {
				return HTTPError(StatusServiceUnavailable, "admin auth not configured")
			}
		}
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			var handlerErr error
			downstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)
				handlerErr = next(c)
			})
			mw.Handler(downstream).ServeHTTP(c.Response(), c.Request())
			return handlerErr
		}
	}
}
