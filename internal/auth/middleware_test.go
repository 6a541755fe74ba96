package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoUser writes the user ID from the context, or "anonymous".
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if id, ok := UserIDFromContext(r.Context()); ok {
		w.Write([]byte(id))
		return
	}
	w.Write([]byte("anonymous"))
})

func TestMiddleware(t *testing.T) {
	ts := newTestTokenService(t)
	token, err := ts.Generate("user-1")
	require.NoError(t, err)

	withCookie := func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: token}) }
	withBearer := func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
	withBadCookie := func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "junk"}) }
	none := func(*http.Request) {}

	tests := []struct {
		name       string
		middleware func(http.Handler) http.Handler
		prepare    func(*http.Request)
		wantStatus int
		wantBody   string
		wantLoc    string
	}{
		{"require with cookie", RequireAuth(ts), withCookie, http.StatusOK, "user-1", ""},
		{"require with bearer", RequireAuth(ts), withBearer, http.StatusOK, "user-1", ""},
		{"require anonymous", RequireAuth(ts), none, http.StatusUnauthorized, "", ""},
		{"require bad cookie", RequireAuth(ts), withBadCookie, http.StatusUnauthorized, "", ""},
		{"page with cookie", RequirePage(ts), withCookie, http.StatusOK, "user-1", ""},
		{"page anonymous", RequirePage(ts), none, http.StatusSeeOther, "", "/login?next=%2Fprofile%3Ftab%3D1"},
		{"optional with cookie", OptionalAuth(ts), withCookie, http.StatusOK, "user-1", ""},
		{"optional anonymous", OptionalAuth(ts), none, http.StatusOK, "anonymous", ""},
		{"optional bad cookie", OptionalAuth(ts), withBadCookie, http.StatusOK, "anonymous", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/profile?tab=1", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()

			tt.middleware(echoUser).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
			if tt.wantLoc != "" {
				assert.Equal(t, tt.wantLoc, rec.Header().Get("Location"))
			}
		})
	}
}

func TestSessionCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "tok", 2*time.Hour, true)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, SessionCookie, c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.Equal(t, 7200, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)

	rec = httptest.NewRecorder()
	ClearSessionCookie(rec, false)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
