package account

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/vivhq/viv/pkg/auth"
	"github.com/vivhq/viv/pkg/session"
	"github.com/vivhq/viv/pkg/validator"
)

// Service wires the magic link flow to HTTP. Verification redirects
// into the app, so errors on that path render as redirects with an
// error code rather than JSON.
type Service struct {
	magicLinks *auth.MagicLinkService
	sessions   *session.Store
	appURL     string
	logger     *slog.Logger
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

func NewService(magicLinks *auth.MagicLinkService, sessions *session.Store, appURL string, opts ...Option) (*Service, error) {
	if magicLinks == nil {
		return nil, errors.New("magic link service is required")
	}
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if appURL == "" {
		return nil, errors.New("app URL is required")
	}

	s := &Service{
		magicLinks: magicLinks,
		sessions:   sessions,
		appURL:     appURL,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Router returns the authentication endpoints, meant to be mounted
// under /auth.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/magic-link", s.handleRequestMagicLink)
	r.Get("/verify", s.handleVerifyMagicLink)
	r.Post("/logout", s.handleLogout)
	return r
}

type magicLinkRequest struct {
	Email string `json:"email"`
}

// handleRequestMagicLink accepts an email and responds 202 whether or
// not the address is known, so the endpoint cannot be used to probe
// which emails have accounts.
func (s *Service) handleRequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req magicLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := s.magicLinks.RequestMagicLink(r.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, auth.ErrTooManyRequests):
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
			return
		case isValidationError(err):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "valid email is required"})
			return
		default:
			// Delivery and storage failures stay behind the uniform
			// response; the details go to the log only.
			s.logger.ErrorContext(r.Context(), "failed to process magic link request",
				slog.String("error", err.Error()))
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "if the address exists, a sign-in link is on its way",
	})
}

// handleVerifyMagicLink exchanges a valid token for a session cookie
// and redirects into the app.
func (s *Service) handleVerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	if tok == "" {
		s.redirectWithError(w, r, "missing_token")
		return
	}

	user, err := s.magicLinks.VerifyMagicLink(r.Context(), tok)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			s.redirectWithError(w, r, "link_expired")
		case errors.Is(err, auth.ErrTokenAlreadyUsed):
			s.redirectWithError(w, r, "link_used")
		case errors.Is(err, auth.ErrTokenInvalid):
			s.redirectWithError(w, r, "link_invalid")
		default:
			s.logger.ErrorContext(r.Context(), "magic link verification failed",
				slog.String("error", err.Error()))
			s.redirectWithError(w, r, "verification_failed")
		}
		return
	}

	if err := s.sessions.Issue(w, user.ID); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to issue session",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID))
		s.redirectWithError(w, r, "verification_failed")
		return
	}

	http.Redirect(w, r, s.appURL, http.StatusSeeOther)
}

func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Invalidate(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "signed out"})
}

func (s *Service) redirectWithError(w http.ResponseWriter, r *http.Request, code string) {
	target, err := url.Parse(s.appURL)
	if err != nil {
		http.Error(w, "invalid app URL", http.StatusInternalServerError)
		return
	}
	q := target.Query()
	q.Set("auth_error", code)
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func isValidationError(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs)
}
