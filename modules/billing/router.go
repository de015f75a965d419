package billing

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vivhq/viv/pkg/authz"
	"github.com/vivhq/viv/pkg/billing"
)

// maxWebhookBody bounds webhook payload reads. Provider events are a
// few kilobytes; anything near the limit is hostile.
const maxWebhookBody = 1 << 20

// Service wires the billing service and provider webhook to HTTP.
type Service struct {
	billing  *billing.Service
	provider billing.Provider
	guard    *authz.Guard
	appURL   string
	logger   *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to a discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(svc *billing.Service, provider billing.Provider, guard *authz.Guard, appURL string, opts ...Option) (*Service, error) {
	if svc == nil {
		return nil, errors.New("billing service is required")
	}
	if provider == nil {
		return nil, errors.New("billing provider is required")
	}
	if guard == nil {
		return nil, errors.New("guard is required")
	}
	if appURL == "" {
		return nil, errors.New("app URL is required")
	}

	s := &Service{
		billing:  svc,
		provider: provider,
		guard:    guard,
		appURL:   appURL,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Router returns the authenticated billing endpoints, meant to be
// mounted under /billing.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(authz.RequireAuth(s.guard))
	r.Post("/checkout", s.handleCreateCheckout)
	r.Get("/subscription", s.handleGetSubscription)
	return r
}

// WebhookRouter returns the provider webhook endpoint, meant to be
// mounted under /webhooks, outside any session middleware: webhooks
// authenticate by signature, not cookie.
func (s *Service) WebhookRouter() chi.Router {
	r := chi.NewRouter()
	r.Post("/billing", s.handleWebhook)
	return r
}

func (s *Service) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	user, ok := authz.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	url, err := s.billing.CreateCheckout(r.Context(), billing.CheckoutParams{
		UserID:     user.ID,
		Email:      user.Email,
		SuccessURL: s.appURL + "?checkout=success",
		CancelURL:  s.appURL + "?checkout=canceled",
	})
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to create checkout",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to create checkout session"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"checkout_url": url})
}

type subscriptionResponse struct {
	Status           string     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	Entitled         bool       `json:"entitled"`
}

func (s *Service) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	user, ok := authz.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	sub, err := s.billing.GetSubscription(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, billing.ErrSubscriptionNotFound) {
			writeJSON(w, http.StatusOK, subscriptionResponse{Status: "none"})
			return
		}
		s.logger.ErrorContext(r.Context(), "failed to load subscription",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	resp := subscriptionResponse{
		Status:   string(sub.Status),
		Entitled: sub.IsEntitled(time.Now()),
	}
	if !sub.CurrentPeriodEnd.IsZero() {
		resp.CurrentPeriodEnd = &sub.CurrentPeriodEnd
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleWebhook acknowledges with 200 only after the event is verified
// and durably applied, so the provider retries anything that failed
// mid-flight.
func (s *Service) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	event, err := s.provider.ParseWebhook(r, body)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrUnknownEventType):
			// Acknowledge event types we deliberately ignore, or the
			// provider will retry them forever.
			w.WriteHeader(http.StatusOK)
		case errors.Is(err, billing.ErrInvalidWebhook):
			s.logger.WarnContext(r.Context(), "rejected webhook",
				slog.String("error", err.Error()))
			http.Error(w, "invalid webhook", http.StatusBadRequest)
		default:
			s.logger.ErrorContext(r.Context(), "failed to parse webhook",
				slog.String("error", err.Error()))
			http.Error(w, "invalid webhook", http.StatusBadRequest)
		}
		return
	}

	if err := s.billing.HandleWebhook(r.Context(), event); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to apply webhook",
			slog.String("error", err.Error()),
			slog.String("event_id", event.ID))
		http.Error(w, "failed to process webhook", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
