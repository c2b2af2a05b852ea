package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"pickmate-backend/internal/apperr"
	"pickmate-backend/internal/identity"
	"pickmate-backend/internal/services"

	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	voterKey  contextKey = "voter"
)

// AuthMiddleware creates a middleware for JWT authentication
func AuthMiddleware(userService *services.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			userID, err := userService.ValidateJWT(parts[1])
			if err != nil {
				respondError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// VoterIdentity resolves the voter of a public voting request and stores it
// in the request context
func VoterIdentity(resolver *identity.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			voter, err := resolver.Resolve(w, r)
			if err != nil {
				log.Error().Err(err).Msg("Failed to resolve voter identity")
				respondError(w, "Failed to resolve voter identity", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), voterKey, voter)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

// GetVoter extracts the voter identity from context
func GetVoter(ctx context.Context) identity.Identity {
	voter, _ := ctx.Value(voterKey).(identity.Identity)
	return voter
}

func respondError(w http.ResponseWriter, message string, statusCode int) {
	code := apperr.CodeUnauthorized
	if statusCode == http.StatusInternalServerError {
		code = apperr.CodeInternal
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": string(code)})
}
