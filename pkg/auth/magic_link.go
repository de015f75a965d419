package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vivhq/viv/pkg/sanitizer"
	"github.com/vivhq/viv/pkg/token"
	"github.com/vivhq/viv/pkg/validator"
)

const (
	defaultMagicLinkTTL = 15 * time.Minute
	defaultSendInterval = time.Minute
	defaultSendBurst    = 3
)

// MagicLinkTokenPayload is embedded in signed magic link tokens.
type MagicLinkTokenPayload struct {
	TokenID   string `json:"tid"`
	UserID    string `json:"uid"`
	Email     string `json:"eml"`
	Subject   string `json:"sub"`
	ExpiresAt int64  `json:"exp"`
}

// SendMagicLinkFunc delivers the magic link token to the user, typically
// by email. The implementation builds the full verification URL.
type SendMagicLinkFunc func(ctx context.Context, email, tok string) error

// MagicLinkService implements passwordless authentication. Requesting a
// link for an unknown email registers the user; verification is
// single-use, enforced through the ReplayGuard.
type MagicLinkService struct {
	storage  UserStorage
	replay   ReplayGuard
	sendFunc SendMagicLinkFunc
	secret   string
	ttl      time.Duration
	throttle *sendThrottle
	logger   *slog.Logger
	now      func() time.Time
}

// MagicLinkOption configures the MagicLinkService.
type MagicLinkOption func(*MagicLinkService)

// WithMagicLinkTTL overrides the default 15 minute token lifetime.
func WithMagicLinkTTL(ttl time.Duration) MagicLinkOption {
	return func(s *MagicLinkService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMagicLinkLogger sets the logger. Defaults to a discard logger.
func WithMagicLinkLogger(logger *slog.Logger) MagicLinkOption {
	return func(s *MagicLinkService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSendThrottle overrides the per-email send limit of one link per
// minute with a burst of three.
func WithSendThrottle(interval time.Duration, burst int) MagicLinkOption {
	return func(s *MagicLinkService) {
		if interval > 0 && burst > 0 {
			s.throttle = newSendThrottle(interval, burst)
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) MagicLinkOption {
	return func(s *MagicLinkService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMagicLinkService creates a magic link authentication service.
// The secret signs tokens and must match between request and verify.
func NewMagicLinkService(storage UserStorage, replay ReplayGuard, sendFunc SendMagicLinkFunc, secret string, opts ...MagicLinkOption) (*MagicLinkService, error) {
	if storage == nil {
		return nil, errors.New("storage is required")
	}
	if replay == nil {
		return nil, errors.New("replay guard is required")
	}
	if sendFunc == nil {
		return nil, errors.New("send function is required")
	}
	if secret == "" {
		return nil, errors.New("token secret is required")
	}

	s := &MagicLinkService{
		storage:  storage,
		replay:   replay,
		sendFunc: sendFunc,
		secret:   secret,
		ttl:      defaultMagicLinkTTL,
		throttle: newSendThrottle(defaultSendInterval, defaultSendBurst),
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RequestMagicLink sends a magic link to the given email, registering
// the user first if the address is unknown. Callers should respond
// identically whether or not the address existed before.
func (s *MagicLinkService) RequestMagicLink(ctx context.Context, email string) error {
	email = sanitizer.NormalizeEmail(email)
	if errs := validator.Apply(
		validator.Required("email", email),
		validator.ValidEmail("email", email),
	); errs != nil {
		return errs
	}

	if !s.throttle.Allow(email) {
		return ErrTooManyRequests
	}

	user, err := s.storage.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		user = &User{
			ID:        NewUserID(),
			Email:     email,
			CreatedAt: s.now().UTC(),
		}
		if err := s.storage.CreateUser(ctx, user); err != nil {
			// Concurrent request registered the same email first.
			if errors.Is(err, ErrEmailAlreadyExists) {
				user, err = s.storage.GetUserByEmail(ctx, email)
				if err != nil {
					return fmt.Errorf("failed to load user: %w", err)
				}
			} else {
				return fmt.Errorf("failed to register user: %w", err)
			}
		} else {
			s.logger.InfoContext(ctx, "user registered via magic link request",
				slog.String("user_id", user.ID))
		}
	} else if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	payload := MagicLinkTokenPayload{
		TokenID:   uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		Subject:   SubjectMagicLink,
		ExpiresAt: s.now().Add(s.ttl).Unix(),
	}
	tok, err := token.GenerateToken(payload, s.secret)
	if err != nil {
		return fmt.Errorf("failed to generate magic link token: %w", err)
	}

	if err := s.sendFunc(ctx, user.Email, tok); err != nil {
		return fmt.Errorf("failed to send magic link: %w", err)
	}

	s.logger.InfoContext(ctx, "magic link sent", slog.String("user_id", user.ID))
	return nil
}

// VerifyMagicLink validates a magic link token and returns the
// authenticated user. Each token verifies at most once.
func (s *MagicLinkService) VerifyMagicLink(ctx context.Context, tok string) (*User, error) {
	payload, err := token.ParseToken[MagicLinkTokenPayload](tok, s.secret)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if payload.Subject != SubjectMagicLink || payload.TokenID == "" {
		return nil, ErrTokenInvalid
	}

	expiresAt := time.Unix(payload.ExpiresAt, 0)
	if s.now().After(expiresAt) {
		return nil, ErrTokenExpired
	}

	// Consume before any state change so a replayed token can never
	// reach the verified path, even across concurrent requests.
	if err := s.replay.Consume(ctx, payload.TokenID, time.Until(expiresAt)); err != nil {
		if errors.Is(err, ErrTokenAlreadyUsed) {
			return nil, ErrTokenAlreadyUsed
		}
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}

	user, err := s.storage.GetUserByID(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Email != payload.Email {
		return nil, ErrTokenInvalid
	}

	if !user.IsVerified {
		if err := s.storage.MarkUserVerified(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("failed to mark user verified: %w", err)
		}
		user.IsVerified = true
		now := s.now().UTC()
		user.VerifiedAt = &now
	}

	s.logger.InfoContext(ctx, "magic link verified", slog.String("user_id", user.ID))
	return user, nil
}
