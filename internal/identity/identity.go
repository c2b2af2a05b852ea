// Package identity works out who is voting: a signed-in account or an
// anonymous device that keeps its id in a cookie.
package identity

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"pickmate-backend/internal/config"
)

// HeaderName lets clients without cookie support send their stored id
const HeaderName = "X-Voter-ID"

// AnonymousPrefix marks device ids. Account ids are bare UUIDs, so a stored
// id can never name an account.
const AnonymousPrefix = "anon_"

// TokenValidator resolves a bearer token to an account id
type TokenValidator interface {
	ValidateJWT(token string) (string, error)
}

// Identity is the resolved voter
type Identity struct {
	VoterID   string `json:"voter_id"`
	Anonymous bool   `json:"anonymous"`
}

// Resolver resolves voter identities. The same client gets the same id on
// every call as long as it keeps the cookie.
type Resolver struct {
	tokens       TokenValidator
	cookieName   string
	cookieMaxAge time.Duration
	secure       bool
}

// NewResolver creates a resolver
func NewResolver(tokens TokenValidator, cfg config.VotingConfig) *Resolver {
	return &Resolver{
		tokens:       tokens,
		cookieName:   cfg.CookieName,
		cookieMaxAge: cfg.CookieMaxAge,
		secure:       cfg.SecureCookie,
	}
}

// Resolve returns the account id for a valid bearer token, otherwise the
// device id from the cookie or header, otherwise a fresh id that is written
// back as a cookie.
func (r *Resolver) Resolve(w http.ResponseWriter, req *http.Request) (Identity, error) {
	if token, ok := bearerToken(req); ok {
		userID, err := r.tokens.ValidateJWT(token)
		if err == nil {
			return Identity{VoterID: userID}, nil
		}
		log.Debug().Err(err).Msg("Ignoring invalid bearer token for voter identity")
	}

	if c, err := req.Cookie(r.cookieName); err == nil {
		if id, ok := parseVoterID(c.Value); ok {
			return Identity{VoterID: id, Anonymous: true}, nil
		}
	}

	if id, ok := parseVoterID(req.Header.Get(HeaderName)); ok {
		r.setCookie(w, id)
		return Identity{VoterID: id, Anonymous: true}, nil
	}

	raw, err := uuid.NewRandom()
	if err != nil {
		return Identity{}, fmt.Errorf("failed to generate voter id: %w", err)
	}
	id := AnonymousPrefix + raw.String()
	r.setCookie(w, id)

	log.Debug().Str("voter_id", id).Msg("Issued anonymous voter id")
	return Identity{VoterID: id, Anonymous: true}, nil
}

func (r *Resolver) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     r.cookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(r.cookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   r.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func bearerToken(req *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(req.Header.Get("Authorization"), " ")
	if !ok || scheme != "Bearer" || token == "" {
		return "", false
	}
	return token, true
}

// parseVoterID accepts only prefixed device ids and returns them in
// canonical form
func parseVoterID(raw string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(raw), AnonymousPrefix)
	if !ok {
		return "", false
	}
	id, err := uuid.Parse(rest)
	if err != nil {
		return "", false
	}
	return AnonymousPrefix + id.String(), true
}
