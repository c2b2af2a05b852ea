package identity

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pickmate-backend/internal/config"
)

type fakeTokens map[string]string

func (f fakeTokens) ValidateJWT(token string) (string, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid token")
}

func newResolver() *Resolver {
	return NewResolver(fakeTokens{"good": "user-1"}, config.VotingConfig{
		CookieName:   "pickmate_voter",
		CookieMaxAge: 24 * time.Hour,
	})
}

func TestResolve_BearerToken(t *testing.T) {
	r := newResolver()
	req := httptest.NewRequest(http.MethodGet, "/vote/d1", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()

	id, err := r.Resolve(rec, req)
	require.NoError(t, err)
	assert.Equal(t, Identity{VoterID: "user-1"}, id)
	assert.Empty(t, rec.Result().Cookies())
}

func TestResolve_InvalidTokenFallsBackToCookie(t *testing.T) {
	r := newResolver()
	voter := AnonymousPrefix + uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/vote/d1", nil)
	req.Header.Set("Authorization", "Bearer expired")
	req.AddCookie(&http.Cookie{Name: "pickmate_voter", Value: voter})

	id, err := r.Resolve(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Equal(t, voter, id.VoterID)
	assert.True(t, id.Anonymous)
}

func TestResolve_HeaderIsPersistedAsCookie(t *testing.T) {
	r := newResolver()
	voter := AnonymousPrefix + uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/vote/d1", nil)
	req.Header.Set(HeaderName, voter)
	rec := httptest.NewRecorder()

	id, err := r.Resolve(rec, req)
	require.NoError(t, err)
	assert.Equal(t, voter, id.VoterID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, voter, cookies[0].Value)
}

func TestResolve_IssuesStableAnonymousID(t *testing.T) {
	r := newResolver()

	rec := httptest.NewRecorder()
	first, err := r.Resolve(rec, httptest.NewRequest(http.MethodGet, "/vote/d1", nil))
	require.NoError(t, err)
	assert.True(t, first.Anonymous)
	require.True(t, strings.HasPrefix(first.VoterID, AnonymousPrefix))
	_, err = uuid.Parse(strings.TrimPrefix(first.VoterID, AnonymousPrefix))
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "pickmate_voter", c.Name)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, int((24 * time.Hour).Seconds()), c.MaxAge)

	// the same device comes back with its cookie
	req := httptest.NewRequest(http.MethodGet, "/vote/d1", nil)
	req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	second, err := r.Resolve(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Equal(t, first.VoterID, second.VoterID)
}

func TestResolve_RejectsMalformedStoredID(t *testing.T) {
	r := newResolver()

	req := httptest.NewRequest(http.MethodGet, "/vote/d1", nil)
	req.AddCookie(&http.Cookie{Name: "pickmate_voter", Value: "not-a-uuid"})
	rec := httptest.NewRecorder()

	id, err := r.Resolve(rec, req)
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-uuid", id.VoterID)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestResolve_BareUUIDCannotClaimAnAccount(t *testing.T) {
	r := newResolver()
	account := uuid.NewString()

	for _, tc := range []struct {
		name  string
		setup func(req *http.Request)
	}{
		{"header", func(req *http.Request) { req.Header.Set(HeaderName, account) }},
		{"cookie", func(req *http.Request) { req.AddCookie(&http.Cookie{Name: "pickmate_voter", Value: account}) }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/vote/d1", nil)
			tc.setup(req)

			id, err := r.Resolve(httptest.NewRecorder(), req)
			require.NoError(t, err)
			assert.True(t, id.Anonymous)
			assert.NotEqual(t, account, id.VoterID)
			assert.True(t, strings.HasPrefix(id.VoterID, AnonymousPrefix))
		})
	}
}
