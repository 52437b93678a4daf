package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// SMTP Relay Implementation
// =============================================================================

// SMTPRelay sends email over SMTP.
//
// This implementation works with:
// - Gmail (smtp.gmail.com:587 with an app password)
// - Implicit TLS servers on port 465
// - Any standard SMTP server that offers AUTH PLAIN
//
// STARTTLS is negotiated whenever the server advertises it.
type SMTPRelay struct {
	config SMTPConfig
	logger *slog.Logger
}

// NewSMTPRelay creates a new SMTP relay.
//
// Example usage:
//
//	relay := email.NewSMTPRelay(
//	    email.SMTPConfig{
//	        Host:     "smtp.gmail.com",
//	        Port:     587,
//	        Username: "quotes@example.com",
//	        Password: os.Getenv("SMTP_PASSWORD"),
//	        FromName: "Our Own Marble House",
//	    },
//	    logger,
//	)
func NewSMTPRelay(config SMTPConfig, logger *slog.Logger) *SMTPRelay {
	// Set defaults
	if config.From == "" {
		config.From = config.Username
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	return &SMTPRelay{
		config: config,
		logger: logger,
	}
}

// =============================================================================
// Relay Interface Implementation
// =============================================================================

// Configured reports whether both sender credentials are present.
func (s *SMTPRelay) Configured() bool {
	return s.config.Username != "" && s.config.Password != ""
}

// Send delivers the message in a single attempt.
func (s *SMTPRelay) Send(ctx context.Context, msg Message) error {
	if !s.Configured() {
		return ErrNotConfigured
	}

	raw, err := s.buildMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to build email: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	start := time.Now()
	if err := s.deliver(ctx, msg.To, raw); err != nil {
		te := Classify(err)
		s.logger.Error("failed to send email",
			"relay", "smtp",
			"to", msg.To,
			"subject", msg.Subject,
			"kind", te.Kind,
			"error", te.Detail(),
		)
		return te
	}

	s.logger.Info("email sent",
		"relay", "smtp",
		"to", msg.To,
		"subject", msg.Subject,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// =============================================================================
// Internal Methods
// =============================================================================

// deliver runs one SMTP session. The connection is closed if ctx ends.
func (s *SMTPRelay) deliver(ctx context.Context, to string, raw []byte) (err error) {
	host := s.config.Host
	addr := net.JoinHostPort(host, strconv.Itoa(s.config.Port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	// Report the context error rather than the closed-connection error it
	// caused.
	defer func() {
		if err != nil && ctx.Err() != nil {
			err = fmt.Errorf("%w: %v", ctx.Err(), err)
		}
	}()

	tlsConfig := &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	if s.config.Port == 465 {
		conn = tls.Client(conn, tlsConfig)
	}

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(tlsConfig); err != nil {
			return err
		}
	}

	if ok, _ := c.Extension("AUTH"); ok {
		if err := c.Auth(smtp.PlainAuth("", s.config.Username, s.config.Password, host)); err != nil {
			return err
		}
	}

	if err := c.Mail(s.config.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return c.Quit()
}

// buildMessage constructs the raw email message with headers.
//
// Layout: multipart/mixed wrapping a multipart/alternative body (text and
// HTML) followed by one part per attachment.
func (s *SMTPRelay) buildMessage(email Message) ([]byte, error) {
	var buf bytes.Buffer

	// From header with display name
	fromHeader := s.config.From
	if s.config.FromName != "" {
		fromHeader = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.config.FromName), s.config.From)
	}

	mixed := multipart.NewWriter(&buf)

	// Write headers
	buf.WriteString(fmt.Sprintf("From: %s\r\n", fromHeader))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", email.To))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", email.Subject)))
	buf.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=\"%s\"\r\n", mixed.Boundary()))
	buf.WriteString("\r\n")

	// Body: text + HTML alternatives
	var body bytes.Buffer
	alt := multipart.NewWriter(&body)
	for _, part := range []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=utf-8", email.TextBody},
		{"text/html; charset=utf-8", email.HTMLBody},
	} {
		if part.content == "" {
			continue
		}
		w, err := alt.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"base64"},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64(w, []byte(part.content)); err != nil {
			return nil, err
		}
	}
	if err := alt.Close(); err != nil {
		return nil, err
	}

	w, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {fmt.Sprintf("multipart/alternative; boundary=\"%s\"", alt.Boundary())},
	})
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return nil, err
	}

	// Attachments
	for _, a := range email.Attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w, err := mixed.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {mime.FormatMediaType(contentType, map[string]string{"name": a.Filename})},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename})},
			"Content-Transfer-Encoding": {"base64"},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64(w, a.Data); err != nil {
			return nil, err
		}
	}

	if err := mixed.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// writeBase64 writes data base64-encoded in 76-column lines.
func writeBase64(w io.Writer, data []byte) error {
	const lineLen = 76
	encoded := base64.StdEncoding.EncodeToString(data)
	var sb strings.Builder
	for len(encoded) > lineLen {
		sb.WriteString(encoded[:lineLen])
		sb.WriteString("\r\n")
		encoded = encoded[lineLen:]
	}
	sb.WriteString(encoded)
	sb.WriteString("\r\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// =============================================================================
// Compile-time interface check
// =============================================================================

var _ Relay = (*SMTPRelay)(nil)
