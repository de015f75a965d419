package authz

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vivhq/viv/pkg/auth"
)

type middlewareConfig struct {
	loginURL    string
	checkoutURL string
}

// MiddlewareOption configures how guard failures are answered.
type MiddlewareOption func(*middlewareConfig)

// WithLoginRedirect answers unauthenticated browser requests with a
// redirect to the given URL instead of a 401 JSON body.
func WithLoginRedirect(url string) MiddlewareOption {
	return func(c *middlewareConfig) { c.loginURL = url }
}

// WithCheckoutRedirect answers unsubscribed browser requests with a
// redirect to the given URL instead of a 402 JSON body.
func WithCheckoutRedirect(url string) MiddlewareOption {
	return func(c *middlewareConfig) { c.checkoutURL = url }
}

// RequireAuth rejects unauthenticated requests and stores the resolved
// user in the request context for downstream handlers.
func RequireAuth(guard *Guard, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	return middleware(guard.RequireAuth, opts)
}

// RequireSubscription rejects unauthenticated requests and
// authenticated-but-unsubscribed requests, distinguishably.
func RequireSubscription(guard *Guard, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	return middleware(guard.RequireSubscription, opts)
}

func middleware(resolve func(*http.Request) (*auth.User, error), opts []MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolve(r)
			if err != nil {
				cfg.deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func (c *middlewareConfig) deny(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		if c.loginURL != "" {
			http.Redirect(w, r, c.loginURL, http.StatusSeeOther)
			return
		}
		writeJSONError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, ErrNotEntitled):
		if c.checkoutURL != "" {
			http.Redirect(w, r, c.checkoutURL, http.StatusSeeOther)
			return
		}
		writeJSONError(w, http.StatusPaymentRequired, "active subscription required")
	default:
		// Covers ErrNotBound (a startup wiring bug) and backend
		// failures, surfaced as a 500 without detail.
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
