package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// QuoteValidity is how long a proforma invoice's prices hold.
const QuoteValidity = 30 * 24 * time.Hour

// Snapshot is a read-only copy of a Quote taken at one instant. Renderers
// and delivery adapters consume snapshots so they never observe a quote
// mid-edit.
type Snapshot struct {
	Client     ClientDetails
	Items      []LineItem
	RateOnly   bool
	GrandTotal string          // formatted, NotApplicable in rate-only mode
	Amount     decimal.Decimal // numeric grand total, zero in rate-only mode
	IssuedAt   time.Time
}

// Snapshot copies the quote's current state.
func (q *Quote) Snapshot(now time.Time) Snapshot {
	s := Snapshot{
		Client:     q.Client,
		Items:      q.Items(),
		RateOnly:   q.rateOnly,
		GrandTotal: q.GrandTotal(),
		IssuedAt:   now,
	}
	if !q.rateOnly {
		s.Amount = q.GrandTotalAmount()
	}
	return s
}

// Number is the invoice number, derived from the issue date.
func (s Snapshot) Number() string {
	return "INV-" + s.IssuedAt.Format("2006-0102")
}

// IssuedOn is the long-form issue date printed on the document.
func (s Snapshot) IssuedOn() string {
	return s.IssuedAt.Format("Monday, January 2, 2006")
}

// ValidUntil is the last day the quoted prices hold.
func (s Snapshot) ValidUntil() string {
	return s.IssuedAt.Add(QuoteValidity).Format("January 2, 2006")
}

// DownloadFilename is the name offered when the PDF is saved locally.
func (s Snapshot) DownloadFilename(ext string) string {
	name := strings.TrimSpace(s.Client.Name)
	if name == "" {
		return "Proforma Invoice." + ext
	}
	return sanitizeFilename(name) + " Proforma Invoice." + ext
}

// AttachmentFilename is the name of the PDF attached to outgoing email.
func (s Snapshot) AttachmentFilename() string {
	return "Proforma Invoice for " + sanitizeFilename(strings.TrimSpace(s.Client.Name)) + ".pdf"
}

// sanitizeFilename drops characters that break Content-Disposition headers
// or filesystem paths.
func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', '\r', '\n', ':', '*', '?', '<', '>', '|':
			return -1
		}
		return r
	}, name)
}
