package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/DukeRupert/proforma/internal/domain"
	"github.com/go-pdf/fpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// =============================================================================
// PDF Generator
// =============================================================================

// PDFGenerator renders a proforma invoice as a single-section A4 PDF.
type PDFGenerator struct {
	// Page dimensions (A4 in mm)
	pageWidth  float64
	pageHeight float64
	margin     float64
	footer     float64

	// Content area
	contentWidth float64

	// fontPath is an optional UTF-8 TrueType font. Without it the core
	// Helvetica font is used and the rupee sign is spelled "Rs.".
	fontPath string
	compress bool
}

// NewPDFGenerator creates a new PDF generator. fontPath may be empty.
func NewPDFGenerator(fontPath string) *PDFGenerator {
	margin := 15.0
	pageWidth := 210.0 // A4 width in mm
	return &PDFGenerator{
		pageWidth:    pageWidth,
		pageHeight:   297.0, // A4 height in mm
		margin:       margin,
		footer:       20,
		contentWidth: pageWidth - (2 * margin),
		fontPath:     fontPath,
		compress:     true,
	}
}

// Format returns the output format of this generator.
func (g *PDFGenerator) Format() Format {
	return FormatPDF
}

// pdfDoc carries per-render state: the fpdf document and the font choice.
type pdfDoc struct {
	*fpdf.Fpdf
	g        *PDFGenerator
	family   string
	tr       func(string) string
	currency string
}

// Generate creates the PDF and writes it to the provided writer.
func (g *PDFGenerator) Generate(ctx context.Context, doc *Document, w io.Writer) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(g.compress)
	pdf.SetMargins(g.margin, g.margin, g.margin)
	pdf.AliasNbPages("{nb}")

	d := &pdfDoc{Fpdf: pdf, g: g}
	d.setupFont()

	// Set document metadata
	pdf.SetTitle("Proforma Invoice "+doc.Number(), true)
	pdf.SetAuthor(doc.Business.Name, true)
	pdf.SetCreator(doc.Business.Name, true)

	// Enable automatic page breaks with footer space
	pdf.SetAutoPageBreak(true, g.footer)

	// Set up footer on each page
	pdf.SetFooterFunc(func() {
		d.addFooter(doc)
	})

	pdf.AddPage()
	d.addLetterhead(doc)
	d.addInvoiceDetails(doc)
	d.addItemTable(doc)
	if !doc.RateOnly {
		d.addTotal(doc)
	}
	d.addTerms()
	d.addSignatures()

	// Check for errors during generation
	if err := pdf.Error(); err != nil {
		return 0, fmt.Errorf("pdf generation error: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	// Write to buffer to count bytes
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return 0, fmt.Errorf("pdf output error: %w", err)
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

func (d *pdfDoc) setupFont() {
	if d.g.fontPath != "" {
		for _, style := range []string{"", "B", "I"} {
			d.AddUTF8Font("body", style, d.g.fontPath)
		}
		d.family = "body"
		d.tr = func(s string) string { return s }
		d.currency = "₹"
		return
	}

	d.family = "Helvetica"
	d.tr = d.UnicodeTranslatorFromDescriptor("")
	d.currency = "Rs. "
}

func (d *pdfDoc) font(style string, size float64) {
	d.SetFont(d.family, style, size)
}

func (d *pdfDoc) textColor(hex string) {
	r, g, b := HexToRGB(hex)
	d.SetTextColor(r, g, b)
}

// =============================================================================
// Letterhead
// =============================================================================

const headerHeight = 40.0

func (d *pdfDoc) addLetterhead(doc *Document) {
	g := d.g

	// Charcoal header band
	r, gr, b := HexToRGB(BrandColors.Charcoal)
	d.SetFillColor(r, gr, b)
	d.Rect(0, 0, g.pageWidth, headerHeight, "F")

	textX := g.margin
	if len(doc.Logo) > 0 {
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		info := d.RegisterImageOptionsReader("logo", opts, bytes.NewReader(doc.Logo))
		if info != nil && info.Height() > 0 {
			const logoHeight = 24.0
			logoWidth := logoHeight * info.Width() / info.Height()
			d.ImageOptions("logo", g.margin, (headerHeight-logoHeight)/2, logoWidth, logoHeight, false, opts, 0, "")
			textX += logoWidth + 5
		}
	}

	// Business name
	d.SetTextColor(255, 255, 255)
	d.font("B", 18)
	d.SetXY(textX, 8)
	d.Cell(0, 9, d.tr(doc.Business.Name))

	// Contact block
	d.font("", 8.5)
	y := 19.0
	for _, line := range []string{
		labelled("Headquarters", doc.Business.Headquarters),
		labelled("Showroom", doc.Business.Showroom),
		joinNonEmpty(" | ", labelled("Phone", doc.Business.Phone), labelled("Email", doc.Business.Email)),
	} {
		if line == "" {
			continue
		}
		d.SetXY(textX, y)
		d.Cell(0, 5, d.tr(line))
		y += 5
	}

	// Document title, right aligned in gold
	d.textColor(BrandColors.Gold)
	d.font("B", 15)
	d.SetXY(g.margin, 8)
	d.CellFormat(g.contentWidth, 9, "PROFORMA INVOICE", "", 0, "R", false, 0, "")

	d.textColor(BrandColors.TextDark)
	d.SetY(headerHeight + 8)
}

// =============================================================================
// Invoice and Client Details
// =============================================================================

func (d *pdfDoc) addInvoiceDetails(doc *Document) {
	g := d.g
	top := d.GetY()
	half := g.contentWidth / 2

	// Left: client
	d.font("B", 10)
	d.textColor(BrandColors.Gold)
	d.SetXY(g.margin, top)
	d.Cell(half, 6, "BILL TO")
	d.textColor(BrandColors.TextDark)

	rows := []struct{ label, value string }{
		{"Client Name:", doc.Client.Name},
		{"Contact Number:", doc.Client.Phone},
		{"Email Address:", doc.Client.Email},
	}
	y := top + 7
	for _, row := range rows {
		d.SetXY(g.margin, y)
		d.font("B", 9.5)
		d.Cell(30, 5.5, row.label)
		d.font("", 9.5)
		d.Cell(half-30, 5.5, d.tr(domain.OrNA(row.value)))
		y += 5.5
	}

	// Right: invoice number and dates
	details := []struct{ label, value string }{
		{"Invoice #:", doc.Number()},
		{"Date:", doc.IssuedOn()},
		{"Valid Until:", doc.ValidUntil()},
	}
	y = top + 7
	for _, row := range details {
		d.SetXY(g.margin+half, y)
		d.font("B", 9.5)
		d.CellFormat(half-58, 5.5, row.label, "", 0, "R", false, 0, "")
		d.font("", 9.5)
		d.CellFormat(58, 5.5, row.value, "", 0, "R", false, 0, "")
		y += 5.5
	}

	d.SetY(y + 8)
}

// =============================================================================
// Item Table
// =============================================================================

const (
	cellLineHeight = 5.0
	cellPadding    = 1.5
)

func (d *pdfDoc) addItemTable(doc *Document) {
	cols := Columns(doc.RateOnly)
	d.addTableHeader(cols)

	d.font("", 9)
	for i, item := range doc.Items {
		values := make([]string, len(cols))
		for c, col := range cols {
			values[c] = d.tr(col.Value(i, item, d.currency))
		}
		d.addTableRow(cols, values, i%2 == 1)
	}

	if len(doc.Items) == 0 {
		d.textColor(BrandColors.TextMuted)
		d.font("I", 9)
		d.CellFormat(d.g.contentWidth, 8, "No items", "1", 1, "C", false, 0, "")
		d.textColor(BrandColors.TextDark)
	}
}

func (d *pdfDoc) addTableHeader(cols []Column) {
	upper := cases.Upper(language.English)

	r, gr, b := HexToRGB(BrandColors.Charcoal)
	d.SetFillColor(r, gr, b)
	d.SetTextColor(255, 255, 255)
	d.font("B", 8.5)

	d.SetX(d.g.margin)
	for _, col := range cols {
		d.CellFormat(col.Width, 8, upper.String(col.Header), "1", 0, "C", true, 0, "")
	}
	d.Ln(-1)

	d.textColor(BrandColors.TextDark)
	d.font("", 9)
}

// addTableRow draws one row whose height fits the tallest wrapped cell.
// Rows never split across pages; the header repeats after a break.
func (d *pdfDoc) addTableRow(cols []Column, values []string, shaded bool) {
	lines := 1
	for i, col := range cols {
		if n := len(d.SplitText(values[i], col.Width-2*cellPadding)); n > lines {
			lines = n
		}
	}
	height := float64(lines)*cellLineHeight + 2*cellPadding

	if d.GetY()+height > d.g.pageHeight-d.g.footer {
		d.AddPage()
		d.addTableHeader(cols)
	}

	r, gr, b := HexToRGB(BrandColors.Border)
	d.SetDrawColor(r, gr, b)
	style := "D"
	if shaded {
		r, gr, b = HexToRGB(BrandColors.Background)
		d.SetFillColor(r, gr, b)
		style = "FD"
	}

	x, y := d.g.margin, d.GetY()
	for i, col := range cols {
		d.Rect(x, y, col.Width, height, style)
		d.SetXY(x+cellPadding, y+cellPadding)
		d.MultiCell(col.Width-2*cellPadding, cellLineHeight, values[i], "", col.Align, false)
		x += col.Width
	}
	d.SetXY(d.g.margin, y+height)
}

// =============================================================================
// Totals, Terms and Signatures
// =============================================================================

func (d *pdfDoc) addTotal(doc *Document) {
	g := d.g
	d.Ln(3)

	r, gr, b := HexToRGB(BrandColors.Gold)
	d.SetDrawColor(r, gr, b)
	d.SetLineWidth(0.4)
	d.Line(g.margin+g.contentWidth-80, d.GetY(), g.pageWidth-g.margin, d.GetY())
	d.SetLineWidth(0.2)
	d.Ln(2)

	d.font("B", 11)
	d.SetX(g.margin + g.contentWidth - 80)
	d.CellFormat(40, 8, "Total Amount:", "", 0, "L", false, 0, "")
	d.CellFormat(40, 8, d.tr(d.currency+doc.Amount.StringFixed(2)), "", 1, "R", false, 0, "")
}

func (d *pdfDoc) addTerms() {
	g := d.g
	d.Ln(8)

	d.font("B", 10)
	d.textColor(BrandColors.Gold)
	d.SetX(g.margin)
	d.Cell(0, 6, "Terms and Conditions:")
	d.Ln(7)

	d.textColor(BrandColors.TextDark)
	d.font("", 8.5)
	for _, term := range Terms {
		d.SetX(g.margin + 2)
		d.MultiCell(g.contentWidth-2, 4.5, "- "+term, "", "L", false)
	}
}

func (d *pdfDoc) addSignatures() {
	g := d.g
	const (
		lineWidth = 60.0
		blockSize = 30.0
	)

	if d.GetY()+blockSize > g.pageHeight-g.footer {
		d.AddPage()
	}
	d.Ln(20)
	y := d.GetY()

	r, gr, b := HexToRGB(BrandColors.TextDark)
	d.SetDrawColor(r, gr, b)
	d.Line(g.margin, y, g.margin+lineWidth, y)
	d.Line(g.pageWidth-g.margin-lineWidth, y, g.pageWidth-g.margin, y)

	d.font("", 9)
	d.SetXY(g.margin, y+1)
	d.CellFormat(lineWidth, 5, "Authorized Signature", "", 0, "C", false, 0, "")
	d.SetXY(g.pageWidth-g.margin-lineWidth, y+1)
	d.CellFormat(lineWidth, 5, "Client Signature", "", 0, "C", false, 0, "")
}

// =============================================================================
// Footer
// =============================================================================

func (d *pdfDoc) addFooter(doc *Document) {
	g := d.g
	d.SetY(-15)

	// Draw separator line
	r, gr, b := HexToRGB(BrandColors.Border)
	d.SetDrawColor(r, gr, b)
	d.Line(g.margin, d.GetY()-3, g.pageWidth-g.margin, d.GetY()-3)

	// Footer text
	d.textColor(BrandColors.TextMuted)
	d.font("", 8)

	// Left: business and invoice number
	d.Cell(0, 10, d.tr(joinNonEmpty(" - ", doc.Business.Name, doc.Number())))

	// Right: page number
	d.SetX(-g.margin - 30)
	d.CellFormat(30, 10, fmt.Sprintf("Page %d of {nb}", d.PageNo()), "", 0, "R", false, 0, "")
}

// =============================================================================
// Helpers
// =============================================================================

func labelled(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return label + ": " + value
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
