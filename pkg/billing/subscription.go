package billing

import "time"

// SubscriptionStatus mirrors the provider's subscription lifecycle.
type SubscriptionStatus string

const (
	StatusActive   SubscriptionStatus = "active"
	StatusTrialing SubscriptionStatus = "trialing"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusCanceled SubscriptionStatus = "canceled"
)

// Subscription is the locally cached view of a provider subscription.
// UserID is the opaque string identifier forwarded through checkout as
// the provider's client reference.
type Subscription struct {
	UserID             string
	ProviderSubID      string
	ProviderCustomerID string
	Status             SubscriptionStatus
	CurrentPeriodEnd   time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CanceledAt         *time.Time
}

// Customer links a local user to the provider's customer record. The
// mapping comes from webhooks, so it exists only after the first
// provider event for the user.
type Customer struct {
	UserID             string
	ProviderCustomerID string
}

// outranks reports whether s should be chosen over other when a user
// has accumulated several subscription rows (cancel, then resubscribe
// under a new provider subscription ID). Rows with an entitling status
// win, recency breaks ties. PGStore.GetByUserID encodes the same
// ordering in SQL.
func (s *Subscription) outranks(other *Subscription) bool {
	if other == nil {
		return true
	}
	sGrants := s.Status == StatusActive || s.Status == StatusTrialing
	otherGrants := other.Status == StatusActive || other.Status == StatusTrialing
	if sGrants != otherGrants {
		return sGrants
	}
	return s.UpdatedAt.After(other.UpdatedAt)
}

// IsEntitled reports whether the subscription grants access at the given
// time. A zero CurrentPeriodEnd means the provider has not reported a
// period yet (checkout completed, first renewal pending); the status
// alone decides until it does.
func (s *Subscription) IsEntitled(now time.Time) bool {
	if s == nil {
		return false
	}
	if s.Status != StatusActive && s.Status != StatusTrialing {
		return false
	}
	return s.CurrentPeriodEnd.IsZero() || s.CurrentPeriodEnd.After(now)
}
