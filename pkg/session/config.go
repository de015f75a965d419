package session

import "time"

// Config holds session store configuration.
// Secret encrypts the token payload and must be at least 32 bytes.
// Multiple comma-separated secrets are supported for key rotation; the
// first one encrypts, all of them decrypt.
type Config struct {
	Secret     string        `env:"SESSION_SECRET,required"`
	CookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"viv_session"`
	TTL        time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	Secure     bool          `env:"SESSION_SECURE_COOKIES" envDefault:"false"`
}
