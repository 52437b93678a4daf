package report

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func renderXLSX(t *testing.T, doc *Document) *excelize.File {
	t.Helper()

	var buf bytes.Buffer
	n, err := NewXLSXGenerator().Generate(context.Background(), doc, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func cellValue(t *testing.T, f *excelize.File, cell string) string {
	t.Helper()
	v, err := f.GetCellValue(XLSXSheetName, cell, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	return v
}

func TestXLSXGenerator_FullMode(t *testing.T) {
	f := renderXLSX(t, testDocument(t, false))

	assert.Equal(t, []string{XLSXSheetName}, f.GetSheetList())

	tests := []struct {
		cell string
		want string
	}{
		{"A1", "Our Own Marble House"},
		{"B5", "INV-2026-0305"},
		{"B6", "Thursday, March 5, 2026"},
		{"B7", "April 4, 2026"},
		{"E5", "Asha Menon"},
		{"E7", "N/A"},
		{"A9", "SR."},
		{"D9", "Area (Sqft)"},
		{"E9", "Rate (₹)"},
		{"F9", "Total (₹)"},
		{"A10", "1"},
		{"B10", "Granite Slab"},
		{"D10", "10"},
		{"F10", "500"},
		{"G10", "Polished"},
		{"B11", "Tile"},
		{"D11", "N/A"},
		{"F11", "100"},
		{"E13", "Total Amount:"},
		{"F13", "600"},
		{"A15", "Terms and Conditions:"},
		{"A16", "- This is a proforma invoice and not a tax invoice."},
	}

	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			assert.Equal(t, tt.want, cellValue(t, f, tt.cell))
		})
	}
}

func TestXLSXGenerator_RateOnlyMode(t *testing.T) {
	f := renderXLSX(t, testDocument(t, true))

	assert.Equal(t, "Finish", cellValue(t, f, "D9"))
	assert.Equal(t, "Rate (₹)", cellValue(t, f, "E9"))
	assert.Equal(t, "Remarks", cellValue(t, f, "F9"))
	assert.Equal(t, "", cellValue(t, f, "G9"))

	assert.Equal(t, "N/A", cellValue(t, f, "D10"))
	assert.Equal(t, "Matt", cellValue(t, f, "D11"))
	assert.Equal(t, "25", cellValue(t, f, "E11"))

	rows, err := f.GetRows(XLSXSheetName)
	require.NoError(t, err)
	for _, row := range rows {
		for _, v := range row {
			assert.NotEqual(t, "Total Amount:", v)
		}
	}
}

func TestXLSXGenerator_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewXLSXGenerator().Generate(ctx, testDocument(t, false), &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}
