// AngelaMos | 2026
// secret.go

package middleware

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/voice-tutor/internal/core"
)

// RequireURLSecret rejects requests whose {param} path segment does not
// match expected. Mismatches answer 404 so the route is not advertised.
func RequireURLSecret(param, expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !core.CompareSecret(chi.URLParam(r, param), expected) {
				slog.WarnContext(r.Context(), "rejected request with bad secret",
					"route", routeLabel(r),
					"remote", KeyByIP(r),
				)
				core.NotFound(w, "route")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
