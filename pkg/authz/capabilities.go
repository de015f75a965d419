package authz

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/vivhq/viv/pkg/auth"
	"github.com/vivhq/viv/pkg/billing"
	"github.com/vivhq/viv/pkg/session"
)

// EntitlementChecker answers whether a user holds an entitling
// subscription. Implemented by billing.Service.
type EntitlementChecker interface {
	CheckEntitlement(ctx context.Context, userID string) error
}

// SessionValidator extracts a verified user ID from a request.
// Implemented by session.Store.
type SessionValidator interface {
	Validate(r *http.Request) (string, error)
}

// AuthCapability authenticates via the session cookie and loads the
// user record. All session failures collapse to ErrNotAuthenticated.
func AuthCapability(sessions SessionValidator, users auth.UserStorage) Capability {
	return func(r *http.Request) (*auth.User, error) {
		userID, err := sessions.Validate(r)
		if err != nil {
			if errors.Is(err, session.ErrInvalidSession) {
				return nil, ErrNotAuthenticated
			}
			return nil, fmt.Errorf("failed to validate session: %w", err)
		}

		user, err := users.GetUserByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, auth.ErrUserNotFound) {
				return nil, ErrNotAuthenticated
			}
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
		return user, nil
	}
}

// DevBypassCapability returns a fixed identity without touching the
// session layer. Local development only; never bind it in production.
func DevBypassCapability(user *auth.User) Capability {
	return func(*http.Request) (*auth.User, error) {
		return user, nil
	}
}

// SubscriptionCapability layers an entitlement check over an
// authentication capability. Authentication failures short-circuit:
// the entitlement checker is never consulted for anonymous requests.
func SubscriptionCapability(authn Capability, entitlements EntitlementChecker) Capability {
	return func(r *http.Request) (*auth.User, error) {
		user, err := authn(r)
		if err != nil {
			return nil, err
		}

		if err := entitlements.CheckEntitlement(r.Context(), user.ID); err != nil {
			if errors.Is(err, billing.ErrNotEntitled) {
				return nil, ErrNotEntitled
			}
			return nil, fmt.Errorf("failed to check entitlement: %w", err)
		}
		return user, nil
	}
}
