package session

import "time"

// Session is the decrypted content of a session token.
type Session struct {
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// payload is the wire form encrypted into the cookie. The user ID is an
// opaque string identifier; nothing here is readable by the client.
type payload struct {
	UserID    string `json:"uid"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// IsExpired reports whether the session expired at the given time.
func (s *Session) IsExpired(now time.Time) bool {
	return now.Unix() > s.ExpiresAt.Unix()
}
