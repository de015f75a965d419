package authz_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivhq/viv/pkg/auth"
	"github.com/vivhq/viv/pkg/authz"
	"github.com/vivhq/viv/pkg/billing"
	"github.com/vivhq/viv/pkg/session"
)

type stubSessions struct {
	userID string
	err    error
}

func (s *stubSessions) Validate(*http.Request) (string, error) {
	return s.userID, s.err
}

type countingEntitlements struct {
	calls int
	err   error
}

func (c *countingEntitlements) CheckEntitlement(context.Context, string) error {
	c.calls++
	return c.err
}

func testRequest() *http.Request {
	return httptest.NewRequest(http.MethodGet, "/app", nil)
}

func TestGuard_UnboundSlotsFailClosed(t *testing.T) {
	t.Parallel()

	guard := authz.NewGuard()

	_, err := guard.RequireAuth(testRequest())
	assert.ErrorIs(t, err, authz.ErrNotBound)

	_, err = guard.RequireSubscription(testRequest())
	assert.ErrorIs(t, err, authz.ErrNotBound)
}

func TestGuard_BoundCapabilityResolves(t *testing.T) {
	t.Parallel()

	guard := authz.NewGuard()
	want := &auth.User{ID: "user-1", Email: "a@example.com"}
	guard.BindAuth(func(*http.Request) (*auth.User, error) { return want, nil })

	user, err := guard.RequireAuth(testRequest())
	require.NoError(t, err)
	assert.Equal(t, want, user)
}

func TestAuthCapability(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := auth.NewMemoryStore()
	user := &auth.User{ID: "user-1", Email: "a@example.com"}
	require.NoError(t, store.CreateUser(ctx, user))

	t.Run("valid session resolves user", func(t *testing.T) {
		t.Parallel()
		capability := authz.AuthCapability(&stubSessions{userID: "user-1"}, store)
		got, err := capability(testRequest())
		require.NoError(t, err)
		assert.Equal(t, "user-1", got.ID)
	})

	t.Run("invalid session maps to not authenticated", func(t *testing.T) {
		t.Parallel()
		capability := authz.AuthCapability(&stubSessions{err: session.ErrInvalidSession}, store)
		_, err := capability(testRequest())
		assert.ErrorIs(t, err, authz.ErrNotAuthenticated)
	})

	t.Run("deleted user maps to not authenticated", func(t *testing.T) {
		t.Parallel()
		capability := authz.AuthCapability(&stubSessions{userID: "gone"}, store)
		_, err := capability(testRequest())
		assert.ErrorIs(t, err, authz.ErrNotAuthenticated)
	})
}

func TestSubscriptionCapability_ShortCircuitsOnAuthFailure(t *testing.T) {
	t.Parallel()

	entitlements := &countingEntitlements{}
	failing := func(*http.Request) (*auth.User, error) { return nil, authz.ErrNotAuthenticated }

	capability := authz.SubscriptionCapability(failing, entitlements)
	_, err := capability(testRequest())

	assert.ErrorIs(t, err, authz.ErrNotAuthenticated)
	assert.Zero(t, entitlements.calls, "billing must not be consulted for anonymous requests")
}

func TestSubscriptionCapability_ForwardsUserID(t *testing.T) {
	t.Parallel()

	user := &auth.User{ID: "user-42"}
	authn := func(*http.Request) (*auth.User, error) { return user, nil }

	store := billing.NewMemoryStore()
	stub := &stubProviderForAuthz{}
	svc, err := billing.NewService(store, stub)
	require.NoError(t, err)

	capability := authz.SubscriptionCapability(authn, svc)

	_, err = capability(testRequest())
	assert.ErrorIs(t, err, authz.ErrNotEntitled)

	require.NoError(t, svc.HandleWebhook(context.Background(), &billing.Event{
		ID: "evt_1", Type: billing.EventCheckoutCompleted, SubscriptionID: "sub_1",
		UserID: "user-42", Status: billing.StatusActive,
	}))

	got, err := capability(testRequest())
	require.NoError(t, err)
	assert.Equal(t, "user-42", got.ID)
}

type stubProviderForAuthz struct{}

func (stubProviderForAuthz) CreateCheckout(context.Context, billing.CheckoutParams) (string, error) {
	return "", errors.New("not implemented")
}

func (stubProviderForAuthz) ParseWebhook(*http.Request, []byte) (*billing.Event, error) {
	return nil, billing.ErrInvalidWebhook
}

func TestRequireAuthMiddleware(t *testing.T) {
	t.Parallel()

	guard := authz.NewGuard()
	handler := authz.RequireAuth(guard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := authz.UserFromContext(r.Context())
		require.True(t, ok)
		w.Write([]byte(user.ID))
	}))

	t.Run("unbound slot returns 500", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, testRequest())
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("unauthenticated returns 401", func(t *testing.T) {
		guard.BindAuth(func(*http.Request) (*auth.User, error) { return nil, authz.ErrNotAuthenticated })
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, testRequest())
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("authenticated passes user through context", func(t *testing.T) {
		guard.BindAuth(func(*http.Request) (*auth.User, error) {
			return &auth.User{ID: "user-1"}, nil
		})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, testRequest())
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", rec.Body.String())
	})
}

func TestMiddlewareRedirectOptions(t *testing.T) {
	t.Parallel()

	guard := authz.NewGuard()
	guard.BindAuth(func(*http.Request) (*auth.User, error) { return nil, authz.ErrNotAuthenticated })
	guard.BindSubscription(func(*http.Request) (*auth.User, error) { return nil, authz.ErrNotEntitled })

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("unauthenticated browser redirects to login", func(t *testing.T) {
		t.Parallel()
		handler := authz.RequireAuth(guard, authz.WithLoginRedirect("/login"))(next)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, testRequest())
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("unsubscribed browser redirects to checkout", func(t *testing.T) {
		t.Parallel()
		handler := authz.RequireSubscription(guard, authz.WithCheckoutRedirect("/upgrade"))(next)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, testRequest())
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/upgrade", rec.Header().Get("Location"))
	})
}

func TestRequireSubscriptionMiddleware_NotEntitledReturns402(t *testing.T) {
	t.Parallel()

	guard := authz.NewGuard()
	guard.BindSubscription(func(*http.Request) (*auth.User, error) { return nil, authz.ErrNotEntitled })

	handler := authz.RequireSubscription(guard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, testRequest())
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}
