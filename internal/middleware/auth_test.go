package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pickmate-backend/internal/config"
	"pickmate-backend/internal/identity"
	"pickmate-backend/internal/services"
)

func TestAuthMiddleware(t *testing.T) {
	users := services.NewUserService(nil, "secret")
	token, err := users.GenerateJWT("user-1")
	require.NoError(t, err)

	var seen string
	h := AuthMiddleware(users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"ok", "Bearer " + token, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)

			if tt.status == http.StatusUnauthorized {
				var body map[string]string
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, "UNAUTHORIZED", body["code"])
			}
		})
	}
	assert.Equal(t, "user-1", seen)
}

func TestVoterIdentity(t *testing.T) {
	users := services.NewUserService(nil, "secret")
	resolver := identity.NewResolver(users, config.VotingConfig{CookieName: "pickmate_voter", CookieMaxAge: time.Hour})

	var voter identity.Identity
	h := VoterIdentity(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		voter = GetVoter(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/vote/d1", nil))

	assert.True(t, voter.Anonymous)
	assert.NotEmpty(t, voter.VoterID)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, voter.VoterID, rec.Result().Cookies()[0].Value)
}
