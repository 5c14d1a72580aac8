package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// OfficialsAuth guards the admin and officials endpoints with a shared
// bearer token. A missing or wrong token is a 401 with the standard error
// envelope.
func OfficialsAuth(token string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			presented, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				logger.Warn("rejected unauthorized request",
					"method", r.Method,
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"success":false,"error":{"code":"UNAUTHORIZED","message":"Missing or invalid officials token"}}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
