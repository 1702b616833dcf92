package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

type contextKey string

const userIDKey contextKey = "auth.user_id"

// UserIDFromContext returns the authenticated user ID set by Middleware
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// Middleware returns a chi-compatible middleware enforcing bearer-token
// authentication. Requests without a valid token get 401 with a JSON
// error body; valid requests carry the owning user ID in the context.
func Middleware(tokens *TokenRepository, log zerolog.Logger) func(http.Handler) http.Handler {
	log = log.With().Str("middleware", "auth").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				writeUnauthorized(w, "Missing bearer token")
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if token == "" {
				writeUnauthorized(w, "Missing bearer token")
				return
			}

			userID, err := tokens.Resolve(token)
			if err != nil {
				log.Error().Err(err).Msg("Token lookup failed")
				writeUnauthorized(w, "Invalid token")
				return
			}
			if userID == "" {
				writeUnauthorized(w, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
