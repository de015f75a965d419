package session

import "errors"

var (
	// ErrInvalidSession covers missing, expired, malformed and tampered
	// tokens alike. Callers get one failure mode on purpose.
	ErrInvalidSession = errors.New("session.invalid")

	// ErrNoSecret indicates the store was constructed without an encryption secret.
	ErrNoSecret = errors.New("session.no_secret")
)
