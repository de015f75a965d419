package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
)

type resendClient struct {
	client *resend.Client
	config Config
}

// NewResendClient creates a Resend-backed email sender.
func NewResendClient(cfg Config) (EmailSender, error) {
	if cfg.ResendAPIKey == "" {
		return nil, fmt.Errorf("%w: ResendAPIKey is required", ErrInvalidConfig)
	}
	if cfg.FromEmail == "" {
		return nil, fmt.Errorf("%w: FromEmail is required", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(cfg.FromEmail) {
		return nil, fmt.Errorf("%w: FromEmail must be a valid email address", ErrInvalidConfig)
	}

	return &resendClient{
		client: resend.NewClient(cfg.ResendAPIKey),
		config: cfg,
	}, nil
}

// SendEmail implements EmailSender using Resend's transactional API.
func (c *resendClient) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	req := &resend.SendEmailRequest{
		From:    c.config.FromEmail,
		To:      []string{params.SendTo},
		Subject: params.Subject,
		Html:    params.BodyHTML,
	}
	if params.Tag != "" {
		req.Tags = []resend.Tag{{Name: "category", Value: params.Tag}}
	}

	if _, err := c.client.Emails.SendWithContext(ctx, req); err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	return nil
}
