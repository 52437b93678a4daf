// Package domain contains core business types and interfaces.
//
// This file defines the Quote aggregate: the ordered line items of a proforma
// invoice, the client it is addressed to, and the display mode that decides
// whether per-item totals are calculated.
package domain

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// CurrencySymbol prefixes every formatted money amount.
	CurrencySymbol = "₹"

	// NotApplicable is shown for blank client fields and for the grand total
	// in rate-only mode.
	NotApplicable = "N/A"
)

// =============================================================================
// Client
// =============================================================================

// ClientDetails identifies who the quotation is addressed to.
// Every field may be blank.
type ClientDetails struct {
	Name  string `json:"name" yaml:"name"`
	Phone string `json:"phone" yaml:"phone"`
	Email string `json:"email" yaml:"email"`
}

// Normalize trims surrounding whitespace from every field.
func (c ClientDetails) Normalize() ClientDetails {
	return ClientDetails{
		Name:  strings.TrimSpace(c.Name),
		Phone: strings.TrimSpace(c.Phone),
		Email: strings.TrimSpace(c.Email),
	}
}

// OrNA returns s, or NotApplicable when s is blank.
func OrNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotApplicable
	}
	return s
}

// =============================================================================
// Line Items
// =============================================================================

// LineItemDraft holds the user's in-progress entry before it is added.
type LineItemDraft struct {
	ItemName string `json:"itemName" yaml:"item_name"`
	Size     string `json:"size" yaml:"size"`
	Area     string `json:"area" yaml:"area"`
	Rate     string `json:"rate" yaml:"rate"`
	Finish   string `json:"finish,omitempty" yaml:"finish"`
	Remarks  string `json:"remarks" yaml:"remarks"`
}

// LineItem is one quoted product row.
//
// Numeric fields are kept as the strings the user typed. Total is empty in
// rate-only mode and otherwise always equals DeriveTotal(item).
type LineItem struct {
	ID       string `json:"id"`
	ItemName string `json:"itemName"`
	Size     string `json:"size"`
	Area     string `json:"area"`
	Rate     string `json:"rate"`
	Finish   string `json:"finish,omitempty"`
	Remarks  string `json:"remarks"`
	Total    string `json:"total,omitempty"`
}

// HasTotal reports whether the derived total is present.
func (li LineItem) HasTotal() bool {
	return li.Total != ""
}

var numericPrefix = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

const (
	// maxMagnitude bounds both the exponent and the integer digits of a
	// parsed number. Larger values (a 9-character "1e4000000") would expand
	// into megabytes of digits when formatted, so they are unusable.
	maxMagnitude = 16

	// maxDigits bounds the significant digits of a parsed number.
	maxDigits = 32
)

// ParseNumericOrZero reads the leading number of s, ignoring any trailing
// text ("12.5 sqft" is 12.5, "2x4" is 2). Input without a leading number,
// or with more than 16 integer digits, yields zero.
func ParseNumericOrZero(s string) decimal.Decimal {
	v, _ := parseNumeric(s)
	return v
}

func parseNumeric(s string) (decimal.Decimal, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	m := numericPrefix.FindString(s)
	if m == "" {
		return decimal.Zero, false
	}
	if !withinBounds(m) {
		return decimal.Zero, false
	}
	// "5." is a valid prefix but not a valid decimal literal.
	m = strings.Replace(m, ".e", "e", 1)
	m = strings.Replace(m, ".E", "E", 1)
	m = strings.TrimSuffix(m, ".")
	v, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

// withinBounds reports whether the numeric literal m has at most
// maxMagnitude integer digits and maxDigits digits overall.
func withinBounds(m string) bool {
	mantissa, exp := m, 0
	if i := strings.IndexAny(m, "eE"); i >= 0 {
		mantissa = m[:i]
		e, err := strconv.Atoi(m[i+1:])
		if err != nil || e > maxMagnitude || e < -maxMagnitude {
			return false
		}
		exp = e
	}

	mantissa = strings.TrimLeft(mantissa, "+-")
	intPart, frac, _ := strings.Cut(mantissa, ".")
	intPart = strings.TrimLeft(intPart, "0")
	if len(intPart)+exp > maxMagnitude {
		return false
	}
	return len(intPart)+len(frac) <= maxDigits
}

// DeriveTotal computes area × rate rounded to two decimals.
//
// The area comes from Area, or from Size when Area is blank. A non-blank
// Area that does not parse counts as zero; it does not fall back to Size.
// Anything unparsable contributes zero; this never fails.
func DeriveTotal(item LineItem) string {
	source := item.Area
	if strings.TrimSpace(source) == "" {
		source = item.Size
	}
	area := ParseNumericOrZero(source)
	rate := ParseNumericOrZero(item.Rate)
	return area.Mul(rate).StringFixed(2)
}

// =============================================================================
// Quote Aggregate
// =============================================================================

// Quote is the invoice aggregate for one session.
//
// Items keep insertion order. Quote is not safe for concurrent use; callers
// serialize access (see session.Workspace).
type Quote struct {
	Client ClientDetails

	items    []LineItem
	rateOnly bool
	newID    func() string
}

// NewQuote returns an empty quote in full-calculation mode.
func NewQuote() *Quote {
	return &Quote{newID: uuid.NewString}
}

// Items returns a copy of the line items in display order.
func (q *Quote) Items() []LineItem {
	out := make([]LineItem, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the number of line items.
func (q *Quote) Len() int {
	return len(q.items)
}

// RateOnly reports whether the quote is in rate-only mode.
func (q *Quote) RateOnly() bool {
	return q.rateOnly
}

// AddItem validates the draft, appends it as a new line item and resets the
// draft. On validation failure neither the quote nor the draft changes.
func (q *Quote) AddItem(draft *LineItemDraft) (LineItem, error) {
	const op = "quote.add_item"

	if draft == nil || strings.TrimSpace(draft.ItemName) == "" {
		return LineItem{}, NewValidationError(op, "item_name", "item name required")
	}

	id := uuid.NewString
	if q.newID != nil {
		id = q.newID
	}

	item := LineItem{
		ID:       id(),
		ItemName: draft.ItemName,
		Size:     draft.Size,
		Area:     draft.Area,
		Rate:     draft.Rate,
		Finish:   draft.Finish,
		Remarks:  draft.Remarks,
	}
	if !q.rateOnly {
		item.Total = DeriveTotal(item)
	}

	q.items = append(q.items, item)
	*draft = LineItemDraft{}

	return item, nil
}

// RemoveItem deletes the item with the given id. Unknown ids are ignored.
func (q *Quote) RemoveItem(id string) {
	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i:i], q.items[i+1:]...)
			return
		}
	}
}

// SetMode switches between rate-only and full-calculation mode, clearing or
// recomputing the total of every item.
func (q *Quote) SetMode(rateOnly bool) {
	q.rateOnly = rateOnly
	for i := range q.items {
		if rateOnly {
			q.items[i].Total = ""
		} else {
			q.items[i].Total = DeriveTotal(q.items[i])
		}
	}
}

// GrandTotalAmount sums the item totals. Absent or unparsable totals count
// as zero.
func (q *Quote) GrandTotalAmount() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range q.items {
		sum = sum.Add(ParseNumericOrZero(item.Total))
	}
	return sum
}

// GrandTotal returns the formatted grand total, or NotApplicable in
// rate-only mode.
func (q *Quote) GrandTotal() string {
	if q.rateOnly {
		return NotApplicable
	}
	return FormatMoney(q.GrandTotalAmount())
}

// Reset discards every item and the client details and returns to
// full-calculation mode.
func (q *Quote) Reset() {
	q.items = nil
	q.rateOnly = false
	q.Client = ClientDetails{}
}

// FormatMoney renders an amount with the currency symbol and two decimals.
func FormatMoney(d decimal.Decimal) string {
	return CurrencySymbol + d.StringFixed(2)
}
