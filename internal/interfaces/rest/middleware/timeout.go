package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds a request twice over: the context deadline cuts off
// downstream database and mailer calls, and http.TimeoutHandler cuts off
// the response itself, answering with the standard error envelope when the
// handler overruns.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	const body = `{"success":false,"error":{"code":"TIMEOUT","message":"Request timeout"}}`

	return func(next http.Handler) http.Handler {
		bounded := http.TimeoutHandler(next, timeout, body)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			bounded.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
