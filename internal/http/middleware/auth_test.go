package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/advisor-match/internal/identity"
)

func captureIdentity(got *identity.Identity, seen *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, *seen = identity.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateValidToken(t *testing.T) {
	token, err := IssueToken("secret", identity.Identity{UserID: "adv-1", Type: identity.Advisor, FirmID: "firm-1"}, 5*time.Minute)
	require.NoError(t, err)

	var got identity.Identity
	var seen bool
	req := httptest.NewRequest(http.MethodGet, "/me/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Authenticate("secret", nil)(captureIdentity(&got, &seen)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, seen)
	assert.Equal(t, "adv-1", got.UserID)
	assert.Equal(t, identity.Advisor, got.Type)
	assert.Equal(t, "firm-1", got.FirmID)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	wrongKey, err := IssueToken("wrong", identity.Identity{UserID: "adv-1", Type: identity.Advisor}, time.Minute)
	require.NoError(t, err)
	expired, err := IssueToken("secret", identity.Identity{UserID: "adv-1", Type: identity.Advisor}, -time.Minute)
	require.NoError(t, err)
	noRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "x", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
		UserType:         "root",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{"wrong key": wrongKey, "expired": expired, "unknown role": noRole, "garbage": "abc.def"} {
		t.Run(name, func(t *testing.T) {
			var got identity.Identity
			var seen bool
			req := httptest.NewRequest(http.MethodGet, "/me/profile", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			Authenticate("secret", nil)(captureIdentity(&got, &seen)).ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, seen)
		})
	}
}

func TestAuthenticateAnonymousPassesThrough(t *testing.T) {
	var got identity.Identity
	var seen bool
	rec := httptest.NewRecorder()
	Authenticate("secret", nil)(captureIdentity(&got, &seen)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/advisors", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, seen)
}

func TestAuthenticateRealtimeQueryToken(t *testing.T) {
	token, err := IssueToken("secret", identity.Identity{UserID: "con-1", Type: identity.Consumer}, time.Minute)
	require.NoError(t, err)

	var got identity.Identity
	var seen bool
	rec := httptest.NewRecorder()
	Authenticate("secret", nil)(captureIdentity(&got, &seen)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/realtime?access_token="+token, nil))
	require.True(t, seen)
	assert.Equal(t, "con-1", got.UserID)

	seen = false
	rec = httptest.NewRecorder()
	Authenticate("secret", nil)(captureIdentity(&got, &seen)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/appointments?access_token="+token, nil))
	assert.False(t, seen, "query tokens are only honoured on the websocket endpoint")
}

func TestAuthenticateHeaderModeWithoutSecret(t *testing.T) {
	var got identity.Identity
	var seen bool
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("X-User-Id", "admin-1")
	req.Header.Set("X-User-Type", "firm_admin")
	req.Header.Set("X-Firm-Id", "firm-1")
	rec := httptest.NewRecorder()
	Authenticate("", nil)(captureIdentity(&got, &seen)).ServeHTTP(rec, req)

	require.True(t, seen)
	assert.True(t, got.IsFirmAdmin())
	assert.Equal(t, "firm-1", got.FirmID)
}

func TestRequireIdentity(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	rec := httptest.NewRecorder()
	RequireIdentity(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chats", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/chats", nil)
	req = req.WithContext(identity.WithIdentity(req.Context(), identity.Identity{UserID: "con-1", Type: identity.Consumer}))
	rec = httptest.NewRecorder()
	RequireIdentity(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
