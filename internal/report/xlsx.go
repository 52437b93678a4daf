package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/DukeRupert/proforma/internal/domain"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// XLSX Generator
// =============================================================================

// XLSXSheetName is the single worksheet of the export.
const XLSXSheetName = "Proforma"

// xlsxTableRow is the spreadsheet row holding the item table header.
const xlsxTableRow = 9

// XLSXGenerator renders the quote as a spreadsheet. Money cells are numeric
// so the sheet can be re-totalled; the currency sign lives in the headers.
type XLSXGenerator struct{}

// NewXLSXGenerator creates a new spreadsheet generator.
func NewXLSXGenerator() *XLSXGenerator {
	return &XLSXGenerator{}
}

// Format returns the output format of this generator.
func (g *XLSXGenerator) Format() Format {
	return FormatXLSX
}

// Generate creates the workbook and writes it to the provided writer.
func (g *XLSXGenerator) Generate(ctx context.Context, doc *Document, w io.Writer) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", XLSXSheetName); err != nil {
		return 0, fmt.Errorf("xlsx sheet: %w", err)
	}

	if err := g.writeSheet(f, doc); err != nil {
		return 0, fmt.Errorf("xlsx generation error: %w", err)
	}

	n, err := f.WriteTo(w)
	if err != nil {
		return n, fmt.Errorf("xlsx output error: %w", err)
	}
	return n, nil
}

func (g *XLSXGenerator) writeSheet(f *excelize.File, doc *Document) error {
	sheet := XLSXSheetName

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 16, Color: strings.TrimPrefix(BrandColors.Charcoal, "#")},
	})
	if err != nil {
		return err
	}
	labelStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{strings.TrimPrefix(BrandColors.Charcoal, "#")}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return err
	}
	totalStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		NumFmt: 4,
	})
	if err != nil {
		return err
	}

	// Letterhead and invoice details
	cells := []struct {
		cell  string
		value interface{}
		style int
	}{
		{"A1", doc.Business.Name, titleStyle},
		{"A2", joinNonEmpty(" | ", labelled("Headquarters", doc.Business.Headquarters), labelled("Showroom", doc.Business.Showroom)), 0},
		{"A3", joinNonEmpty(" | ", labelled("Phone", doc.Business.Phone), labelled("Email", doc.Business.Email)), 0},
		{"A5", "Invoice #:", labelStyle}, {"B5", doc.Number(), 0},
		{"A6", "Date:", labelStyle}, {"B6", doc.IssuedOn(), 0},
		{"A7", "Valid Until:", labelStyle}, {"B7", doc.ValidUntil(), 0},
		{"D5", "Client Name:", labelStyle}, {"E5", domain.OrNA(doc.Client.Name), 0},
		{"D6", "Contact Number:", labelStyle}, {"E6", domain.OrNA(doc.Client.Phone), 0},
		{"D7", "Email Address:", labelStyle}, {"E7", domain.OrNA(doc.Client.Email), 0},
	}
	for _, c := range cells {
		if err := f.SetCellValue(sheet, c.cell, c.value); err != nil {
			return err
		}
		if c.style != 0 {
			if err := f.SetCellStyle(sheet, c.cell, c.cell, c.style); err != nil {
				return err
			}
		}
	}

	// Item table
	cols := Columns(doc.RateOnly)
	for i, col := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, xlsxTableRow)
		header := col.Header
		if col.Header == "Rate" || col.Amount {
			header += " (" + domain.CurrencySymbol + ")"
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}

		colName, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, colName, colName, col.Width*0.6); err != nil {
			return err
		}
	}

	for r, item := range doc.Items {
		row := xlsxTableRow + 1 + r
		for c, col := range cols {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			var value interface{} = col.Value(r, item, "")
			if col.Amount {
				value = domain.ParseNumericOrZero(item.Total).InexactFloat64()
			}
			if c == 0 {
				value = r + 1
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
			if col.Amount {
				if err := f.SetCellStyle(sheet, cell, cell, amountStyle); err != nil {
					return err
				}
			}
		}
	}

	// Grand total in full mode, aligned under the Total column
	if !doc.RateOnly {
		row := xlsxTableRow + 1 + len(doc.Items) + 1
		for c, col := range cols {
			if !col.Amount {
				continue
			}
			labelCell, _ := excelize.CoordinatesToCellName(c, row)
			valueCell, _ := excelize.CoordinatesToCellName(c+1, row)
			if err := f.SetCellValue(sheet, labelCell, "Total Amount:"); err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, valueCell, doc.Amount.InexactFloat64()); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, labelCell, valueCell, totalStyle); err != nil {
				return err
			}
		}
	}

	// Terms
	row := xlsxTableRow + len(doc.Items) + 4
	if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Terms and Conditions:"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), labelStyle); err != nil {
		return err
	}
	for i, term := range Terms {
		if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", row+1+i), "- "+term); err != nil {
			return err
		}
	}

	return nil
}
