// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/yeschef/yeschef-api/internal/api"
	"github.com/yeschef/yeschef-api/internal/service"
)

// Auth validates the Bearer token on incoming requests and stores the
// authenticated user ID in the request context.
type Auth struct {
	tokens *service.JWTTokenService
	logger *slog.Logger
}

// NewAuth creates the authentication middleware.
func NewAuth(tokens *service.JWTTokenService, logger *slog.Logger) *Auth {
	return &Auth{
		tokens: tokens,
		logger: logger.With(slog.String("component", "auth_middleware")),
	}
}

// Require rejects requests without a valid token.
func (a *Auth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			api.RespondWithError(w, http.StatusUnauthorized, "missing or malformed authorization header")
			return
		}

		userID, err := a.tokens.ValidateToken(r.Context(), token)
		if err != nil {
			a.logger.DebugContext(r.Context(), "token rejected",
				slog.String("error", err.Error()))
			api.RespondWithError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(api.WithUserID(r.Context(), userID)))
	})
}
