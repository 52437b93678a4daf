// Package email delivers proforma invoices through a mail relay.
//
// This package defines a Relay interface with implementations for:
// - SMTP (Gmail, Postmark SMTP, Mailhog in development)
// - SendGrid's v3 HTTP API
//
// Relays never retry. Failures come back as *TransportError with a fixed,
// user-facing message per failure kind.
package email

import (
	"context"
	"errors"
	"time"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Relay sends one fully composed message.
//
// Implementations:
// - SMTPRelay: Uses the SMTP protocol
// - SendGridRelay: Uses the SendGrid HTTP API
type Relay interface {
	// Send transmits the message. It returns ErrNotConfigured when the relay
	// has no credentials, before any network activity, and *TransportError
	// for delivery failures.
	Send(ctx context.Context, msg Message) error

	// Configured reports whether the relay has the credentials it needs.
	Configured() bool
}

// =============================================================================
// Message Types
// =============================================================================

// Message is a single outgoing email.
type Message struct {
	To          string       // Recipient email address
	Subject     string       // Email subject line
	TextBody    string       // Plain text content
	HTMLBody    string       // HTML content
	Attachments []Attachment // Binary attachments
}

// Attachment is a file attached to a Message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// =============================================================================
// Configuration Types
// =============================================================================

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string // SMTP server hostname (e.g., "smtp.gmail.com")
	Port     int    // SMTP server port (587 for STARTTLS, 465 for implicit TLS)
	Username string // Sender identity
	Password string // Sender secret (app password for Gmail)
	From     string // Sender address, defaults to Username
	FromName string // Sender display name

	// Timeout bounds one delivery attempt, dial through QUIT.
	Timeout time.Duration
}

// SendGridConfig holds SendGrid API configuration.
type SendGridConfig struct {
	APIKey   string
	From     string
	FromName string
}

// DefaultTimeout bounds a delivery attempt when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// ErrNotConfigured is returned by Send when sender credentials are absent.
var ErrNotConfigured = errors.New("email service not configured")
