package email

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// =============================================================================
// SendGrid Relay Implementation
// =============================================================================

const sendGridSendPath = "/v3/mail/send"

// SendGridRelay sends email through SendGrid's v3 mail/send endpoint.
type SendGridRelay struct {
	config  SendGridConfig
	host    string
	timeout time.Duration
	logger  *slog.Logger
}

// NewSendGridRelay creates a new SendGrid relay. An empty host uses the
// public API.
func NewSendGridRelay(config SendGridConfig, host string, timeout time.Duration, logger *slog.Logger) *SendGridRelay {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &SendGridRelay{
		config:  config,
		host:    host,
		timeout: timeout,
		logger:  logger,
	}
}

// Configured reports whether an API key and sender address are present.
func (s *SendGridRelay) Configured() bool {
	return s.config.APIKey != "" && s.config.From != ""
}

// Send delivers the message in a single attempt.
func (s *SendGridRelay) Send(ctx context.Context, msg Message) error {
	if !s.Configured() {
		return ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// Clients carry the request body, so each send gets its own.
	request := sendgrid.GetRequest(s.config.APIKey, sendGridSendPath, s.host)
	request.Method = http.MethodPost
	client := &sendgrid.Client{Request: request}

	start := time.Now()
	resp, err := client.SendWithContext(ctx, s.buildMail(msg))
	if err == nil && resp.StatusCode >= 300 {
		err = &TransportError{Kind: statusKind(resp.StatusCode), Err: fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)}
	}
	if err != nil {
		te := Classify(err)
		s.logger.Error("failed to send email",
			"relay", "sendgrid",
			"to", msg.To,
			"subject", msg.Subject,
			"kind", te.Kind,
			"error", te.Detail(),
		)
		return te
	}

	s.logger.Info("email sent",
		"relay", "sendgrid",
		"to", msg.To,
		"subject", msg.Subject,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (s *SendGridRelay) buildMail(msg Message) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(s.config.FromName, s.config.From))
	m.Subject = msg.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail("", msg.To))
	m.AddPersonalizations(p)

	if msg.TextBody != "" {
		m.AddContent(mail.NewContent("text/plain", msg.TextBody))
	}
	if msg.HTMLBody != "" {
		m.AddContent(mail.NewContent("text/html", msg.HTMLBody))
	}

	for _, a := range msg.Attachments {
		att := mail.NewAttachment()
		att.SetContent(base64.StdEncoding.EncodeToString(a.Data))
		att.SetType(a.ContentType)
		att.SetFilename(a.Filename)
		att.SetDisposition("attachment")
		m.AddAttachment(att)
	}

	return m
}

// statusKind maps a SendGrid HTTP status onto a failure kind.
func statusKind(code int) FailureKind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return FailureAuth
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return FailureTimeout
	default:
		return FailureUnknown
	}
}

// =============================================================================
// Compile-time interface check
// =============================================================================

var _ Relay = (*SendGridRelay)(nil)
