package email

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"os"
	"syscall"
)

// FailureKind classifies why a relay could not deliver a message.
type FailureKind string

const (
	FailureAuth         FailureKind = "auth"
	FailureSocket       FailureKind = "socket"
	FailureRefused      FailureKind = "refused"
	FailureTimeout      FailureKind = "timeout"
	FailureAddressInUse FailureKind = "address_in_use"
	FailureUnknown      FailureKind = "unknown"
)

var failureMessages = map[FailureKind]string{
	FailureAuth:         "Invalid email credentials. Please check the configuration.",
	FailureSocket:       "Connection error. Please check your internet connection.",
	FailureRefused:      "Connection refused. Please try again later.",
	FailureTimeout:      "Connection timed out. Please try again.",
	FailureAddressInUse: "Port is already in use. Please try again later.",
	FailureUnknown:      "Failed to send email. Please try again.",
}

// Message returns the user-facing text for the kind.
func (k FailureKind) Message() string {
	if msg, ok := failureMessages[k]; ok {
		return msg
	}
	return failureMessages[FailureUnknown]
}

// TransportError reports a failed delivery attempt.
//
// Error() returns the fixed user-facing message for Kind; the underlying
// cause is kept for logging only.
type TransportError struct {
	Kind FailureKind
	Err  error
}

func (e *TransportError) Error() string {
	return e.Kind.Message()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Detail includes the underlying cause, for logs.
func (e *TransportError) Detail() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Classify maps a raw relay failure onto a TransportError. It returns nil
// for a nil error and passes existing TransportErrors through unchanged.
func Classify(err error) *TransportError {
	if err == nil {
		return nil
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te
	}

	return &TransportError{Kind: classifyKind(err), Err: err}
}

func classifyKind(err error) FailureKind {
	// SMTP auth rejections: 530 auth required, 534 mechanism too weak,
	// 535 credentials invalid.
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch tpErr.Code {
		case 530, 534, 535:
			return FailureAuth
		}
		return FailureUnknown
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return FailureTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		return FailureRefused
	case errors.Is(err, syscall.EADDRINUSE):
		return FailureAddressInUse
	case errors.Is(err, syscall.ETIMEDOUT):
		return FailureTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr), errors.As(err, &opErr):
		return FailureSocket
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return FailureSocket
	}

	return FailureUnknown
}
