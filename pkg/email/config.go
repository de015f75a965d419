package email

import "fmt"

// Config holds email service configuration. Exactly one backend is chosen
// at startup: Resend when RESEND_API_KEY is set, Postmark when its tokens
// are set, otherwise the development sender writing emails to disk.
type Config struct {
	ResendAPIKey         string `env:"RESEND_API_KEY"`
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	FromEmail            string `env:"FROM_EMAIL,required"`
	DevOutputDir         string `env:"EMAIL_DEV_DIR" envDefault:"tmp/emails"`
}

// NewFromConfig selects and constructs a sender backend from config.
func NewFromConfig(cfg Config) (EmailSender, error) {
	if cfg.FromEmail == "" {
		return nil, fmt.Errorf("%w: FromEmail is required", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(cfg.FromEmail) {
		return nil, fmt.Errorf("%w: FromEmail must be a valid email address", ErrInvalidConfig)
	}

	switch {
	case cfg.ResendAPIKey != "":
		return NewResendClient(cfg)
	case cfg.PostmarkServerToken != "":
		return NewPostmarkClient(cfg)
	default:
		return NewDevSender(cfg.DevOutputDir), nil
	}
}
