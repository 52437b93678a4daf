// Package report renders proforma invoices as PDF and XLSX documents.
//
// This package defines a Generator interface implemented by PDFGenerator and
// XLSXGenerator, along with the letterhead, column layout and styling shared
// by both formats.
package report

import (
	"context"
	"io"
	"strconv"

	"github.com/DukeRupert/proforma/internal/domain"
)

// =============================================================================
// Formats
// =============================================================================

// Format identifies an output document format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	return string(f)
}

// =============================================================================
// Generator Interface
// =============================================================================

// Generator defines the interface for document generators.
type Generator interface {
	// Generate renders the document and writes it to w.
	// Returns the number of bytes written and any error.
	Generate(ctx context.Context, doc *Document, w io.Writer) (int64, error)

	// Format returns the output format of this generator.
	Format() Format
}

// =============================================================================
// Document
// =============================================================================

// Business is the letterhead printed on every document.
type Business struct {
	Name         string
	Headquarters string
	Showroom     string
	Phone        string
	Email        string
}

// Document is one rendering request: a quote snapshot plus the letterhead.
type Document struct {
	domain.Snapshot

	Business Business

	// Logo is an optional PNG drawn in the header.
	Logo []byte
}

// Terms are printed under the item table.
var Terms = []string{
	"This is a proforma invoice and not a tax invoice.",
	"Payment terms: 50% advance, remaining before delivery.",
	"Delivery within 2-3 weeks from confirmation and receipt of advance payment.",
	"Prices are valid for 30 days from the date of this proforma invoice.",
	"Installation charges are not included unless specifically mentioned.",
}

// =============================================================================
// Columns
// =============================================================================

// Column is one column of the item table.
type Column struct {
	Header string
	Width  float64 // mm in the PDF; spreadsheet widths are derived from it
	Align  string  // fpdf alignment: "L", "C" or "R"

	// Value renders the cell for the item at position index.
	Value func(index int, item domain.LineItem, currency string) string

	// Amount marks columns whose value is a money amount.
	Amount bool
}

// Columns returns the item table layout for the display mode. Rate-only
// tables show Finish in place of Area and drop the Total column.
func Columns(rateOnly bool) []Column {
	sr := Column{Header: "SR.", Width: 12, Align: "C", Value: func(i int, _ domain.LineItem, _ string) string {
		return strconv.Itoa(i + 1)
	}}
	name := Column{Header: "Item Name", Align: "L", Value: func(_ int, it domain.LineItem, _ string) string {
		return it.ItemName
	}}
	size := Column{Header: "Size", Align: "L", Value: func(_ int, it domain.LineItem, _ string) string {
		return it.Size
	}}
	rate := Column{Header: "Rate", Align: "R", Value: func(_ int, it domain.LineItem, cur string) string {
		return cur + it.Rate
	}}
	remarks := Column{Header: "Remarks", Align: "L", Value: func(_ int, it domain.LineItem, _ string) string {
		return domain.OrNA(it.Remarks)
	}}

	if rateOnly {
		finish := Column{Header: "Finish", Width: 28, Align: "L", Value: func(_ int, it domain.LineItem, _ string) string {
			return domain.OrNA(it.Finish)
		}}
		name.Width, size.Width, rate.Width, remarks.Width = 50, 28, 26, 36
		return []Column{sr, name, size, finish, rate, remarks}
	}

	area := Column{Header: "Area (Sqft)", Width: 22, Align: "R", Value: func(_ int, it domain.LineItem, _ string) string {
		return domain.OrNA(it.Area)
	}}
	total := Column{Header: "Total", Width: 26, Align: "R", Amount: true, Value: func(_ int, it domain.LineItem, cur string) string {
		if !it.HasTotal() {
			return cur + "0.00"
		}
		return cur + it.Total
	}}
	name.Width, size.Width, rate.Width, remarks.Width = 44, 24, 24, 28
	return []Column{sr, name, size, area, rate, total, remarks}
}

// =============================================================================
// Brand Colors
// =============================================================================

// BrandColors defines the color palette for documents.
var BrandColors = struct {
	Charcoal   string // Header band
	Gold       string // Accent
	TextDark   string // Primary text
	TextMuted  string // Secondary text
	Border     string // Borders and dividers
	Background string // Alternating rows
	White      string
}{
	Charcoal:   "#2B2B2B",
	Gold:       "#B8860B",
	TextDark:   "#1F2937",
	TextMuted:  "#6B7280",
	Border:     "#D1D5DB",
	Background: "#F5F3EF",
	White:      "#FFFFFF",
}

// =============================================================================
// Color Conversion Helpers
// =============================================================================

// HexToRGB converts a hex color string to RGB values.
// Input format: "#RRGGBB" or "RRGGBB"
func HexToRGB(hex string) (r, g, b int) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return 0, 0, 0
	}

	r = hexToDec(hex[0:2])
	g = hexToDec(hex[2:4])
	b = hexToDec(hex[4:6])
	return
}

// hexToDec converts a 2-character hex string to decimal.
func hexToDec(hex string) int {
	val := 0
	for _, c := range hex {
		val *= 16
		switch {
		case c >= '0' && c <= '9':
			val += int(c - '0')
		case c >= 'a' && c <= 'f':
			val += int(c - 'a' + 10)
		case c >= 'A' && c <= 'F':
			val += int(c - 'A' + 10)
		}
	}
	return val
}
