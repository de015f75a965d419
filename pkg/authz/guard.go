package authz

import (
	"net/http"
	"sync/atomic"

	"github.com/vivhq/viv/pkg/auth"
)

// Capability resolves an HTTP request to an authenticated user, or
// explains why it may not proceed.
type Capability func(r *http.Request) (*auth.User, error)

// Guard holds the route protection capabilities behind stable slots.
// A zero-value Guard fails closed: both slots return ErrNotBound until
// bound. Binding is atomic, so a Guard may be shared with handlers
// before main finishes wiring.
type Guard struct {
	authn      atomic.Pointer[Capability]
	subscribed atomic.Pointer[Capability]
}

func NewGuard() *Guard {
	return &Guard{}
}

// BindAuth installs the capability behind RequireAuth.
func (g *Guard) BindAuth(capability Capability) {
	g.authn.Store(&capability)
}

// BindSubscription installs the capability behind RequireSubscription.
func (g *Guard) BindSubscription(capability Capability) {
	g.subscribed.Store(&capability)
}

// RequireAuth resolves the caller's identity.
func (g *Guard) RequireAuth(r *http.Request) (*auth.User, error) {
	return invoke(g.authn.Load(), r)
}

// RequireSubscription resolves the caller's identity and confirms an
// entitling subscription.
func (g *Guard) RequireSubscription(r *http.Request) (*auth.User, error) {
	return invoke(g.subscribed.Load(), r)
}

func invoke(capability *Capability, r *http.Request) (*auth.User, error) {
	if capability == nil {
		return nil, ErrNotBound
	}
	return (*capability)(r)
}
