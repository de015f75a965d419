package auth

import "errors"

// General authentication errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
)

// Token-related errors
var (
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenInvalid     = errors.New("invalid token")
	ErrTokenAlreadyUsed = errors.New("token already used")
)

// Request throttling
var (
	ErrTooManyRequests = errors.New("too many magic link requests")
)
