package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/hdowatch/hdowatch/pkg/log"
)

// authMiddleware protects mutating API endpoints with an OIDC ID token.
// Read endpoints stay open; the state they expose is the same thing anyone
// can read off the distributor's public portal.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("reqPath", r.URL.Path)))
		r = r.WithContext(ctx)

		if r.Method == http.MethodGet || s.bypassAuth {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSONError(w, "missing authorization header", http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeJSONError(w, "invalid authorization header", http.StatusUnauthorized)
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		if _, err := s.oidcVerifier(ctx, token); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "token validation failed", slog.Any("error", err))
			writeJSONError(w, "invalid id token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
