package devserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/binSaed/flutter-redirectly/internal/store"
)

type contextKey string

const usernameKey contextKey = "username"

// authenticate accepts requests carrying a live API key as a Bearer token and
// puts the key owner's username in the context. Anything else gets 401.
func (s *server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeUnauthorized(w)
			return
		}
		plaintext := strings.TrimPrefix(header, "Bearer ")
		if plaintext == "" {
			writeUnauthorized(w)
			return
		}

		key, err := s.keys.GetByHash(r.Context(), store.HashKey(plaintext))
		if err != nil || key.RevokedAt.Valid {
			writeUnauthorized(w)
			return
		}
		if err := s.keys.UpdateLastUsed(r.Context(), key.ID); err != nil {
			s.log.Warn().Err(err).Str("key_id", key.ID).Msg("update key last_used_at")
		}

		ctx := context.WithValue(r.Context(), usernameKey, key.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// usernameFrom returns the authenticated username.
func usernameFrom(ctx context.Context) string {
	u, _ := ctx.Value(usernameKey).(string)
	return u
}

func writeUnauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
}
