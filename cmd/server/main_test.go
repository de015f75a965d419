package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountmod "github.com/vivhq/viv/modules/account"
	billingmod "github.com/vivhq/viv/modules/billing"
	"github.com/vivhq/viv/pkg/auth"
	"github.com/vivhq/viv/pkg/authz"
	"github.com/vivhq/viv/pkg/billing"
	"github.com/vivhq/viv/pkg/session"
)

const (
	e2eSecret = "0123456789abcdef0123456789abcdef"
	e2eAppURL = "http://localhost:8080/app"
)

type e2eProvider struct {
	event *billing.Event
}

func (p *e2eProvider) CreateCheckout(_ context.Context, params billing.CheckoutParams) (string, error) {
	return "https://pay.example.com/cs_1?ref=" + params.UserID, nil
}

func (p *e2eProvider) ParseWebhook(r *http.Request, _ []byte) (*billing.Event, error) {
	if r.Header.Get("X-Test-Signature") != "valid" {
		return nil, billing.ErrInvalidWebhook
	}
	return p.event, nil
}

type e2eStack struct {
	router   chi.Router
	provider *e2eProvider
	lastLink string
}

// newE2EStack assembles the full request path the way run does, with
// in-memory storage and a stub payment provider.
func newE2EStack(t *testing.T) *e2eStack {
	t.Helper()

	stack := &e2eStack{provider: &e2eProvider{}}

	users := auth.NewMemoryStore()
	subscriptions := billing.NewMemoryStore()

	sessions, err := session.New(session.Config{Secret: e2eSecret})
	require.NoError(t, err)

	capture := func(_ context.Context, _, tok string) error {
		stack.lastLink = "/auth/verify?token=" + tok
		return nil
	}
	magicLinks, err := auth.NewMagicLinkService(users, auth.NewMemoryReplayGuard(), capture, e2eSecret)
	require.NoError(t, err)

	billingSvc, err := billing.NewService(subscriptions, stack.provider)
	require.NoError(t, err)

	guard := authz.NewGuard()
	authnCap := authz.AuthCapability(sessions, users)
	guard.BindAuth(authnCap)
	guard.BindSubscription(authz.SubscriptionCapability(authnCap, billingSvc))

	accountSvc, err := accountmod.NewService(magicLinks, sessions, e2eAppURL)
	require.NoError(t, err)
	billingMod, err := billingmod.NewService(billingSvc, stack.provider, guard, e2eAppURL)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/auth", accountSvc.Router())
	r.Mount("/billing", billingMod.Router())
	r.Mount("/webhooks", billingMod.WebhookRouter())
	r.Group(func(r chi.Router) {
		r.Use(authz.RequireSubscription(guard))
		r.Get("/app", func(w http.ResponseWriter, req *http.Request) {
			user, _ := authz.UserFromContext(req.Context())
			w.Write([]byte("welcome back, " + user.Email))
		})
	})

	stack.router = r
	return stack
}

func (s *e2eStack) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func withCookies(req *http.Request, from *http.Response) *http.Request {
	for _, c := range from.Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestSignupToEntitlementFlow(t *testing.T) {
	t.Parallel()

	stack := newE2EStack(t)

	// Anonymous requests never reach the app.
	rec := stack.do(httptest.NewRequest(http.MethodGet, "/app", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Request a magic link; first login doubles as signup.
	rec = stack.do(httptest.NewRequest(http.MethodPost, "/auth/magic-link",
		strings.NewReader(`{"email":"a@example.com"}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NotEmpty(t, stack.lastLink)

	// Verify the link: session cookie plus redirect into the app.
	rec = stack.do(httptest.NewRequest(http.MethodGet, stack.lastLink, nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, e2eAppURL, rec.Header().Get("Location"))
	authed := rec.Result()
	require.NotEmpty(t, authed.Cookies())

	// Authenticated but unsubscribed: the app asks for payment.
	rec = stack.do(withCookies(httptest.NewRequest(http.MethodGet, "/app", nil), authed))
	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	// Start checkout; the user ID rides along as the client reference.
	rec = stack.do(withCookies(httptest.NewRequest(http.MethodPost, "/billing/checkout", nil), authed))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "https://pay.example.com/cs_1?ref=")
	userID := body[strings.LastIndex(body, "ref=")+4 : strings.LastIndex(body, `"`)]
	require.NotEmpty(t, userID)

	// The provider confirms payment by webhook.
	stack.provider.event = &billing.Event{
		ID:               "evt_1",
		Type:             billing.EventCheckoutCompleted,
		SubscriptionID:   "sub_1",
		UserID:           userID,
		Status:           billing.StatusActive,
		CurrentPeriodEnd: time.Now().Add(30 * 24 * time.Hour),
	}
	webhookReq := httptest.NewRequest(http.MethodPost, "/webhooks/billing", strings.NewReader(`{}`))
	webhookReq.Header.Set("X-Test-Signature", "valid")
	rec = stack.do(webhookReq)
	require.Equal(t, http.StatusOK, rec.Code)

	// Entitlement is live without any session change.
	rec = stack.do(withCookies(httptest.NewRequest(http.MethodGet, "/app", nil), authed))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "a@example.com")

	// Replaying the same webhook changes nothing.
	webhookReq = httptest.NewRequest(http.MethodPost, "/webhooks/billing", strings.NewReader(`{}`))
	webhookReq.Header.Set("X-Test-Signature", "valid")
	rec = stack.do(webhookReq)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = stack.do(withCookies(httptest.NewRequest(http.MethodGet, "/billing/subscription", nil), authed))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"active"`)
}

func TestUsedMagicLinkCannotBeReplayed(t *testing.T) {
	t.Parallel()

	stack := newE2EStack(t)

	rec := stack.do(httptest.NewRequest(http.MethodPost, "/auth/magic-link",
		strings.NewReader(`{"email":"replay@example.com"}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)
	link := stack.lastLink

	rec = stack.do(httptest.NewRequest(http.MethodGet, link, nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, e2eAppURL, rec.Header().Get("Location"))

	rec = stack.do(httptest.NewRequest(http.MethodGet, link, nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "auth_error=link_used")
}

func TestLogoutEndsAccess(t *testing.T) {
	t.Parallel()

	stack := newE2EStack(t)

	rec := stack.do(httptest.NewRequest(http.MethodPost, "/auth/magic-link",
		strings.NewReader(`{"email":"bye@example.com"}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = stack.do(httptest.NewRequest(http.MethodGet, stack.lastLink, nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	authed := rec.Result()

	rec = stack.do(withCookies(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), authed))
	require.Equal(t, http.StatusOK, rec.Code)

	// A client honoring the cleared cookie is anonymous again.
	rec = stack.do(httptest.NewRequest(http.MethodGet, "/app", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
