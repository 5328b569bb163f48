package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/newthinker/strata/internal/api/response"
	"github.com/newthinker/strata/internal/core"
)

// APIKeyAuth returns middleware that validates the X-API-Key header or an
// "Authorization: Bearer" token. If apiKey is empty, authentication is
// disabled.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			providedKey := r.Header.Get("X-API-Key")
			if providedKey == "" {
				providedKey, _ = strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			}
			if providedKey == "" {
				response.Error(w, http.StatusUnauthorized,
					core.Errorf(core.ErrUnauthorized, "API key required"))
				return
			}

			// Constant-time comparison to prevent timing attacks
			if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
				response.Error(w, http.StatusUnauthorized,
					core.Errorf(core.ErrUnauthorized, "API key rejected"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
