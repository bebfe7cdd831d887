package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whoAmI(w http.ResponseWriter, r *http.Request) {
	user, ok := ExtractUserFromContext(r.Context())
	if !ok {
		w.Write([]byte("anonymous"))
		return
	}
	w.Write([]byte(user.UserID))
}

func serve(h http.Handler, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestJWTRoundTrip(t *testing.T) {
	a := NewJWTAuth("s3cret", "jira-assistant")
	token, err := a.IssueToken("user-1", "u@example.com", time.Minute)
	require.NoError(t, err)

	user, err := a.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.UserID)
	assert.Equal(t, "u@example.com", user.Email)

	_, err = NewJWTAuth("other", "jira-assistant").VerifyToken(token)
	assert.Error(t, err)
}

func TestJWTRejectsExpiredAndForeignAlgorithms(t *testing.T) {
	a := NewJWTAuth("s3cret", "")

	expired, err := a.IssueToken("user-1", "", -time.Minute)
	require.NoError(t, err)
	_, err = a.VerifyToken(expired)
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = a.VerifyToken(none)
	assert.Error(t, err)
}

func TestNewJWTAuthWithoutSecret(t *testing.T) {
	assert.Nil(t, NewJWTAuth("", "x"))
}

func TestMiddleware(t *testing.T) {
	a := NewJWTAuth("s3cret", "")
	hash, err := HashServiceToken("svc-token")
	require.NoError(t, err)
	h := RequireAuth(a, hash).Handler(http.HandlerFunc(whoAmI))

	rec := serve(h, "/api/tools", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, "/api/tools", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := a.IssueToken("user-7", "", time.Minute)
	require.NoError(t, err)
	rec = serve(h, "/api/tools", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-7", rec.Body.String())

	rec = serve(h, "/api/tools?user_id=alice", "svc-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", rec.Body.String())

	rec = serve(h, "/sse?token="+token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-7", rec.Body.String())
}

func TestMiddlewareDisabledPassesThrough(t *testing.T) {
	m := RequireAuth(nil, "")
	assert.False(t, m.Enabled())

	rec := serve(m.Handler(http.HandlerFunc(whoAmI)), "/api/tools", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestOptionalAuth(t *testing.T) {
	h := OptionalAuth(NewJWTAuth("s3cret", ""), "").Handler(http.HandlerFunc(whoAmI))

	rec := serve(h, "/", "not-a-jwt")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}
