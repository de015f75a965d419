package auth

import (
	"time"

	"github.com/google/uuid"
)

// Token subjects embedded in signed tokens to prevent cross-purpose reuse.
const (
	SubjectMagicLink = "magic_link"
)

// User represents a user account. ID is an opaque string identifier
// assigned at registration.
type User struct {
	ID         string
	Email      string
	IsVerified bool
	CreatedAt  time.Time
	VerifiedAt *time.Time
}

// NewUserID returns a new opaque user identifier.
func NewUserID() string {
	return uuid.NewString()
}
