package session

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/vivhq/viv/pkg/cookie"
)

// Store issues, validates and invalidates encrypted session tokens carried
// in an HTTP-only cookie. It holds no per-session server state.
type Store struct {
	cookies    *cookie.Manager
	cookieName string
	ttl        time.Duration
	now        func() time.Time
}

// Option configures a Store during construction.
type Option func(*Store)

// WithClock overrides the time source, used by tests to control expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a session store from the given config.
func New(cfg Config, opts ...Option) (*Store, error) {
	secrets := splitSecrets(cfg.Secret)
	if len(secrets) == 0 {
		return nil, ErrNoSecret
	}

	cookieOpts := []cookie.Option{
		cookie.WithHTTPOnly(true),
		cookie.WithSameSite(http.SameSiteLaxMode),
	}
	if cfg.Secure {
		cookieOpts = append(cookieOpts, cookie.WithSecure(true))
	}

	cookies, err := cookie.New(secrets, cookieOpts...)
	if err != nil {
		return nil, err
	}

	s := &Store{
		cookies:    cookies,
		cookieName: cfg.CookieName,
		ttl:        cfg.TTL,
		now:        time.Now,
	}
	if s.cookieName == "" {
		s.cookieName = "viv_session"
	}
	if s.ttl <= 0 {
		s.ttl = 30 * 24 * time.Hour
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Issue encrypts a new session token for the user and sets it as a cookie.
func (s *Store) Issue(w http.ResponseWriter, userID string) error {
	now := s.now()
	p := payload{
		UserID:    userID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	}

	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	return s.cookies.SetEncrypted(w, s.cookieName, string(data),
		cookie.WithMaxAge(int(s.ttl.Seconds())),
	)
}

// Validate decrypts the session cookie and returns the bound user ID.
// Any failure, whether a missing cookie, a failed decryption or an expired
// token, yields ErrInvalidSession.
func (s *Store) Validate(r *http.Request) (string, error) {
	sess, err := s.Get(r)
	if err != nil {
		return "", ErrInvalidSession
	}
	return sess.UserID, nil
}

// Get returns the full decrypted session. Most callers want Validate;
// Get exists for handlers that need the issue/expiry timestamps.
func (s *Store) Get(r *http.Request) (*Session, error) {
	raw, err := s.cookies.GetEncrypted(r, s.cookieName)
	if err != nil {
		return nil, ErrInvalidSession
	}

	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, ErrInvalidSession
	}
	if p.UserID == "" {
		return nil, ErrInvalidSession
	}

	sess := &Session{
		UserID:    p.UserID,
		IssuedAt:  time.Unix(p.IssuedAt, 0),
		ExpiresAt: time.Unix(p.ExpiresAt, 0),
	}
	if sess.IsExpired(s.now()) {
		return nil, ErrInvalidSession
	}

	return sess, nil
}

// Invalidate clears the session cookie. The token itself remains
// cryptographically valid until its expiry; see the package doc for the
// revocation tradeoff.
func (s *Store) Invalidate(w http.ResponseWriter) {
	s.cookies.Delete(w, s.cookieName)
}

// CookieName returns the name of the session cookie.
func (s *Store) CookieName() string {
	return s.cookieName
}

func splitSecrets(raw string) []string {
	parts := strings.Split(raw, ",")
	secrets := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			secrets = append(secrets, p)
		}
	}
	return secrets
}
