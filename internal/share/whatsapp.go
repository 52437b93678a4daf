// Package share builds links that hand a quotation summary to messaging apps.
package share

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/DukeRupert/proforma/internal/domain"
)

// WhatsAppBaseURL is the click-to-chat endpoint.
const WhatsAppBaseURL = "https://wa.me/"

// DefaultRecipientName stands in for a blank client name.
const DefaultRecipientName = "Client"

// WhatsAppURL returns the click-to-chat link that pre-fills a short quotation
// summary for the given phone number.
//
// The phone is reduced to its digits; it must contain at least one. The
// grand total is included verbatim, so rate-only quotes read "Total: N/A".
func WhatsAppURL(phone, clientName, grandTotal, business string) (string, error) {
	const op = "share.whatsapp_url"

	digits := Digits(phone)
	if digits == "" {
		return "", domain.NewValidationError(op, "phone", "Please enter a phone number")
	}

	name := strings.TrimSpace(clientName)
	if name == "" {
		name = DefaultRecipientName
	}

	text := fmt.Sprintf("Proforma Invoice from %s for %s\nTotal: %s", business, name, grandTotal)

	return WhatsAppBaseURL + digits + "?text=" + encodeURIComponent(text), nil
}

// Digits strips everything but ASCII digits from s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// encodeURIComponent percent-encodes s the way browsers encode a query
// component: spaces become %20 and unreserved marks stay literal.
func encodeURIComponent(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	for _, keep := range []struct{ enc, lit string }{
		{"%21", "!"}, {"%27", "'"}, {"%28", "("}, {"%29", ")"}, {"%2A", "*"},
	} {
		escaped = strings.ReplaceAll(escaped, keep.enc, keep.lit)
	}
	return escaped
}
