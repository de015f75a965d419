package account_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivhq/viv/modules/account"
	"github.com/vivhq/viv/pkg/auth"
	"github.com/vivhq/viv/pkg/session"
)

const (
	testAppURL = "https://app.example.com/app"
	testSecret = "0123456789abcdef0123456789abcdef"
)

type linkCapture struct {
	token string
}

func (c *linkCapture) send(_ context.Context, _, tok string) error {
	c.token = tok
	return nil
}

func newTestHandler(t *testing.T) (http.Handler, *linkCapture, *session.Store, *auth.MemoryStore) {
	t.Helper()

	users := auth.NewMemoryStore()
	capture := &linkCapture{}
	magicLinks, err := auth.NewMagicLinkService(users, auth.NewMemoryReplayGuard(), capture.send, testSecret)
	require.NoError(t, err)

	sessions, err := session.New(session.Config{Secret: testSecret})
	require.NoError(t, err)

	svc, err := account.NewService(magicLinks, sessions, testAppURL)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/auth", svc.Router())
	return r, capture, sessions, users
}

func TestRequestMagicLink_UniformResponse(t *testing.T) {
	t.Parallel()

	handler, capture, _, users := newTestHandler(t)

	// Unknown address: registered silently, same response shape.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/magic-link",
		strings.NewReader(`{"email":"fresh@example.com"}`)))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	unknownBody := rec.Body.String()
	assert.NotEmpty(t, capture.token)

	_, err := users.GetUserByEmail(context.Background(), "fresh@example.com")
	require.NoError(t, err)

	// Known address: identical status and body.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/magic-link",
		strings.NewReader(`{"email":"fresh@example.com"}`)))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, unknownBody, rec.Body.String())
}

func TestRequestMagicLink_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	handler, _, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/magic-link",
		strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/magic-link",
		strings.NewReader(`{"email":"not-an-email"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyMagicLink_IssuesSessionAndRedirects(t *testing.T) {
	t.Parallel()

	handler, capture, sessions, users := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/magic-link",
		strings.NewReader(`{"email":"verify@example.com"}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/verify?token="+capture.token, nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, testAppURL, rec.Header().Get("Location"))

	// The redirect carries a valid session cookie for the new user.
	req := httptest.NewRequest(http.MethodGet, "/app", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	userID, err := sessions.Validate(req)
	require.NoError(t, err)

	user, err := users.GetUserByID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "verify@example.com", user.Email)
	assert.True(t, user.IsVerified)
}

func TestVerifyMagicLink_ErrorRedirects(t *testing.T) {
	t.Parallel()

	handler, capture, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/magic-link",
		strings.NewReader(`{"email":"reuse@example.com"}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	cases := []struct {
		name      string
		target    string
		wantError string
	}{
		{"missing token", "/auth/verify", "missing_token"},
		{"garbage token", "/auth/verify?token=garbage", "link_invalid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.target, nil))
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Contains(t, rec.Header().Get("Location"), "auth_error="+tc.wantError)
		})
	}

	t.Run("second use redirects with link_used", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/verify?token="+capture.token, nil))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, testAppURL, rec.Header().Get("Location"))

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/verify?token="+capture.token, nil))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Contains(t, rec.Header().Get("Location"), "auth_error=link_used")
	})
}

func TestLogout_ClearsSessionCookie(t *testing.T) {
	t.Parallel()

	handler, _, sessions, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessions.CookieName() && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "logout must expire the session cookie")
}
