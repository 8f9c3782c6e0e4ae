// Package mail sends transactional email. Delivery is best effort: callers log
// failures and carry on.
package mail

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/techfemme/academy/backend/go-services/internal/config"
)

const (
	defaultHost = "https://api.sendgrid.com"
	endpoint    = "/v3/mail/send"
)

// Sender delivers the welcome message after a completed sign-up.
type Sender interface {
	SendWelcome(ctx context.Context, email, firstName string) error
}

// SendGridSender delivers through the SendGrid v3 API.
type SendGridSender struct {
	key  string
	host string
	from *sgmail.Email
}

var _ Sender = (*SendGridSender)(nil)

// NewSendGridSender builds a sender. An empty host uses the public API.
func NewSendGridSender(key, fromName, fromEmail, host string) *SendGridSender {
	if host == "" {
		host = defaultHost
	}
	return &SendGridSender{key: key, host: host, from: sgmail.NewEmail(fromName, fromEmail)}
}

// NewFromConfig returns a SendGrid sender when an API key is configured, and a
// LogSender otherwise.
func NewFromConfig(cfg config.SendGridConfig, logger *zap.Logger) Sender {
	if cfg.APIKey == "" {
		return NewLogSender(logger)
	}
	return NewSendGridSender(cfg.APIKey, cfg.FromName, cfg.FromEmail, "")
}

func (s *SendGridSender) SendWelcome(ctx context.Context, email, firstName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := welcomeMessage(s.from, email, firstName)

	req := sendgrid.GetRequest(s.key, endpoint, s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

func welcomeMessage(from *sgmail.Email, email, firstName string) *sgmail.SGMailV3 {
	name := firstName
	if name == "" {
		name = "there"
	}
	p := sgmail.NewPersonalization()
	p.Subject = "Welcome to the academy"
	p.AddTos(sgmail.NewEmail(firstName, email))

	m := sgmail.NewV3Mail()
	m.SetFrom(from)
	m.AddPersonalizations(p)
	m.AddContent(
		sgmail.NewContent("text/plain", fmt.Sprintf("Hi %s,\n\nyour account is ready. Sign in to pick up your first course.\n", name)),
		sgmail.NewContent("text/html", fmt.Sprintf("<p>Hi %s,</p><p>your account is ready. Sign in to pick up your first course.</p>", name)),
	)
	return m
}

// LogSender only logs. Used in development and by the CLI.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) SendWelcome(ctx context.Context, email, firstName string) error {
	s.logger.Info("welcome email skipped (no provider configured)", zap.String("to", email), zap.String("name", firstName))
	return nil
}
