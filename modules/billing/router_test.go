package billing_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivhq/viv/modules/billing"
	"github.com/vivhq/viv/pkg/auth"
	"github.com/vivhq/viv/pkg/authz"
	billingsvc "github.com/vivhq/viv/pkg/billing"
)

const testAppURL = "https://app.example.com/app"

// fakeProvider verifies webhooks with a shared-secret header and emits
// the pre-programmed event, standing in for a real provider SDK.
type fakeProvider struct {
	checkoutURL string
	event       *billingsvc.Event
	parseErr    error
}

func (p *fakeProvider) CreateCheckout(_ context.Context, params billingsvc.CheckoutParams) (string, error) {
	return p.checkoutURL + "?ref=" + params.UserID, nil
}

func (p *fakeProvider) ParseWebhook(r *http.Request, _ []byte) (*billingsvc.Event, error) {
	if p.parseErr != nil {
		return nil, p.parseErr
	}
	if r.Header.Get("X-Test-Signature") != "valid" {
		return nil, billingsvc.ErrInvalidWebhook
	}
	return p.event, nil
}

type fixture struct {
	authed   http.Handler
	webhooks http.Handler
	store    *billingsvc.MemoryStore
	provider *fakeProvider
}

func newFixture(t *testing.T, user *auth.User) *fixture {
	t.Helper()

	store := billingsvc.NewMemoryStore()
	provider := &fakeProvider{checkoutURL: "https://pay.example.com/cs_1"}
	svc, err := billingsvc.NewService(store, provider)
	require.NoError(t, err)

	guard := authz.NewGuard()
	if user != nil {
		guard.BindAuth(authz.DevBypassCapability(user))
	} else {
		guard.BindAuth(func(*http.Request) (*auth.User, error) {
			return nil, authz.ErrNotAuthenticated
		})
	}

	module, err := billing.NewService(svc, provider, guard, testAppURL)
	require.NoError(t, err)

	authed := chi.NewRouter()
	authed.Mount("/billing", module.Router())
	webhooks := chi.NewRouter()
	webhooks.Mount("/webhooks", module.WebhookRouter())

	return &fixture{
		authed:   authed,
		webhooks: webhooks,
		store:    store,
		provider: provider,
	}
}

func TestCheckout_RequiresAuthentication(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	rec := httptest.NewRecorder()
	f.authed.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/billing/checkout", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckout_ReturnsProviderURL(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &auth.User{ID: "user-1", Email: "a@example.com"})

	rec := httptest.NewRecorder()
	f.authed.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/billing/checkout", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://pay.example.com/cs_1?ref=user-1", resp["checkout_url"])

	// Checkout creation must not write local subscription state.
	_, err := f.store.GetByUserID(context.Background(), "user-1")
	assert.ErrorIs(t, err, billingsvc.ErrSubscriptionNotFound)
}

func TestGetSubscription_NoneBeforeWebhook(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &auth.User{ID: "user-1"})

	rec := httptest.NewRecorder()
	f.authed.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/billing/subscription", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status   string `json:"status"`
		Entitled bool   `json:"entitled"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "none", resp.Status)
	assert.False(t, resp.Entitled)
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.provider.event = &billingsvc.Event{ID: "evt_1"}

	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	f.webhooks.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_AcknowledgesIgnoredEventTypes(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.provider.parseErr = billingsvc.ErrUnknownEventType

	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", strings.NewReader(`{}`))
	req.Header.Set("X-Test-Signature", "valid")
	rec := httptest.NewRecorder()
	f.webhooks.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhook_AppliesEventAndFlipsEntitlement(t *testing.T) {
	t.Parallel()

	user := &auth.User{ID: "user-1", Email: "a@example.com"}
	f := newFixture(t, user)
	f.provider.event = &billingsvc.Event{
		ID:               "evt_1",
		Type:             billingsvc.EventCheckoutCompleted,
		SubscriptionID:   "sub_1",
		UserID:           "user-1",
		Status:           billingsvc.StatusActive,
		CurrentPeriodEnd: time.Now().Add(30 * 24 * time.Hour),
	}

	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", strings.NewReader(`{}`))
	req.Header.Set("X-Test-Signature", "valid")
	rec := httptest.NewRecorder()
	f.webhooks.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	f.authed.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/billing/subscription", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status   string `json:"status"`
		Entitled bool   `json:"entitled"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "active", resp.Status)
	assert.True(t, resp.Entitled)
}
