package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequentialIDs makes item ids predictable in tests.
func sequentialIDs(q *Quote) {
	n := 0
	q.newID = func() string {
		n++
		return fmt.Sprintf("item-%d", n)
	}
}

func TestParseNumericOrZero(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10", "10"},
		{"  12.5", "12.5"},
		{"12.5 sqft", "12.5"},
		{"2x4 ft", "2"},
		{"5.", "5"},
		{".5", "0.5"},
		{"-3", "-3"},
		{"1e2", "100"},
		{"", "0"},
		{"abc", "0"},
		{"x10", "0"},
		{".", "0"},
		{"1e15", "1000000000000000"},
		{"1e16", "0"},
		{"1e-17", "0"},
		{"1e99999999999999999999", "0"},
		{"1e4000000", "0"},
		{"999999999999999", "999999999999999"},
		{"1000000000000000", "1000000000000000"},
		{"10000000000000000", "0"},
		{"0000000000000000000001", "1"},
		{"0.5e15", "500000000000000"},
		{"12.5e14", "1250000000000000"},
		{"12.5e15", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseNumericOrZero(tt.in).String())
		})
	}
}

func TestDeriveTotal(t *testing.T) {
	tests := []struct {
		name string
		item LineItem
		want string
	}{
		{"area times rate", LineItem{Area: "10", Rate: "50"}, "500.00"},
		{"area wins over size", LineItem{Area: "10", Size: "99", Rate: "50"}, "500.00"},
		{"blank area falls back to size", LineItem{Size: "4", Rate: "25"}, "100.00"},
		{"whitespace area falls back to size", LineItem{Area: "   ", Size: "4", Rate: "25"}, "100.00"},
		{"unparsable area does not fall back to size", LineItem{Area: "n/a", Size: "4", Rate: "25"}, "0.00"},
		{"unparsable area ignores numeric size", LineItem{Area: "abc", Size: "4", Rate: "25"}, "0.00"},
		{"size label uses leading number", LineItem{Size: "2x4 ft", Rate: "10"}, "20.00"},
		{"unparsable rate", LineItem{Area: "10", Rate: "abc"}, "0.00"},
		{"unparsable area and size", LineItem{Area: "abc", Size: "xyz", Rate: "50"}, "0.00"},
		{"everything blank", LineItem{}, "0.00"},
		{"rounds to two decimals", LineItem{Area: "3.333", Rate: "3"}, "10.00"},
		{"rounds half up", LineItem{Area: "0.125", Rate: "1"}, "0.13"},
		{"fractional", LineItem{Area: "12.5", Rate: "42.4"}, "530.00"},
		{"huge exponents are unusable", LineItem{Area: "1e4000000", Rate: "1e4000000"}, "0.00"},
		{"huge size exponent is unusable", LineItem{Size: "1e999999999", Rate: "10"}, "0.00"},
		{"large but bounded", LineItem{Area: "1e15", Rate: "2"}, "2000000000000000.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTotal(tt.item))
		})
	}
}

func TestDeriveTotal_SizeFallbackProperty(t *testing.T) {
	for s := 0; s <= 20; s++ {
		for r := 0; r <= 20; r++ {
			item := LineItem{Size: fmt.Sprint(s), Rate: fmt.Sprint(r)}
			assert.Equal(t, fmt.Sprintf("%d.00", s*r), DeriveTotal(item))

			item.Area = fmt.Sprint(s + 1)
			item.Size = "999"
			assert.Equal(t, fmt.Sprintf("%d.00", (s+1)*r), DeriveTotal(item))
		}
	}
}

func TestQuote_AddItem(t *testing.T) {
	q := NewQuote()
	sequentialIDs(q)

	draft := &LineItemDraft{ItemName: "Granite Slab", Area: "10", Rate: "50", Remarks: "polished"}
	item, err := q.AddItem(draft)
	require.NoError(t, err)

	assert.Equal(t, "item-1", item.ID)
	assert.Equal(t, "Granite Slab", item.ItemName)
	assert.Equal(t, "500.00", item.Total)
	assert.Equal(t, LineItemDraft{}, *draft, "draft should be reset")
	assert.Equal(t, 1, q.Len())
}

func TestQuote_AddItem_RateOnlyLeavesTotalAbsent(t *testing.T) {
	q := NewQuote()
	q.SetMode(true)

	item, err := q.AddItem(&LineItemDraft{ItemName: "Tile", Size: "2x2", Rate: "45", Finish: "Matt"})
	require.NoError(t, err)

	assert.False(t, item.HasTotal())
	assert.Equal(t, "Matt", item.Finish)
}

func TestQuote_AddItem_RequiresName(t *testing.T) {
	tests := []struct {
		name  string
		draft *LineItemDraft
	}{
		{"empty name", &LineItemDraft{Area: "10", Rate: "5"}},
		{"whitespace name", &LineItemDraft{ItemName: "   ", Area: "10"}},
		{"nil draft", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuote()
			_, _ = q.AddItem(&LineItemDraft{ItemName: "Existing"})

			var before LineItemDraft
			if tt.draft != nil {
				before = *tt.draft
			}

			_, err := q.AddItem(tt.draft)
			require.Error(t, err)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, "item name required", ve.Fields["item_name"])
			assert.Equal(t, EINVALID, ErrorCode(err))
			assert.Equal(t, 1, q.Len(), "item sequence must not change")
			if tt.draft != nil {
				assert.Equal(t, before, *tt.draft, "draft must not be reset on failure")
			}
		})
	}
}

func TestQuote_AddItem_UniqueIDs(t *testing.T) {
	q := NewQuote()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		item, err := q.AddItem(&LineItemDraft{ItemName: "Tile"})
		require.NoError(t, err)
		assert.False(t, seen[item.ID], "duplicate id %s", item.ID)
		seen[item.ID] = true
	}
}

func TestQuote_RemoveItem(t *testing.T) {
	q := NewQuote()
	sequentialIDs(q)
	for _, name := range []string{"A", "B", "C"} {
		_, err := q.AddItem(&LineItemDraft{ItemName: name})
		require.NoError(t, err)
	}

	q.RemoveItem("item-2")
	items := q.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].ItemName)
	assert.Equal(t, "C", items[1].ItemName)

	// Idempotent
	q.RemoveItem("item-2")
	q.RemoveItem("does-not-exist")
	assert.Equal(t, items, q.Items())
}

func TestQuote_ItemsReturnsCopy(t *testing.T) {
	q := NewQuote()
	_, _ = q.AddItem(&LineItemDraft{ItemName: "A", Area: "1", Rate: "1"})

	items := q.Items()
	items[0].Total = "999.00"

	assert.Equal(t, "1.00", q.Items()[0].Total)
}

func TestQuote_GraniteSlabAndTileScenario(t *testing.T) {
	q := NewQuote()

	slab, err := q.AddItem(&LineItemDraft{ItemName: "Granite Slab", Area: "10", Rate: "50"})
	require.NoError(t, err)
	tile, err := q.AddItem(&LineItemDraft{ItemName: "Tile", Size: "4", Rate: "25"})
	require.NoError(t, err)

	assert.Equal(t, "500.00", slab.Total)
	assert.Equal(t, "100.00", tile.Total)
	assert.Equal(t, "₹600.00", q.GrandTotal())

	q.SetMode(true)
	for _, item := range q.Items() {
		assert.False(t, item.HasTotal(), "total should be absent for %s", item.ItemName)
	}
	assert.Equal(t, NotApplicable, q.GrandTotal())

	q.SetMode(false)
	items := q.Items()
	assert.Equal(t, "500.00", items[0].Total)
	assert.Equal(t, "100.00", items[1].Total)
	assert.Equal(t, "₹600.00", q.GrandTotal())
}

func TestQuote_ModeRoundTripPreservesTotals(t *testing.T) {
	q := NewQuote()
	drafts := []LineItemDraft{
		{ItemName: "A", Area: "12.75", Rate: "80"},
		{ItemName: "B", Size: "6", Rate: "33.3"},
		{ItemName: "C", Area: "junk", Size: "junk", Rate: "10"},
		{ItemName: "D", Area: "7", Rate: ""},
	}
	for i := range drafts {
		_, err := q.AddItem(&drafts[i])
		require.NoError(t, err)
	}
	before := q.Items()

	q.SetMode(true)
	q.SetMode(false)

	after := q.Items()
	for i := range after {
		assert.Equal(t, DeriveTotal(after[i]), after[i].Total)
		assert.Equal(t, before[i].Total, after[i].Total)
	}
}

func TestQuote_GrandTotal_RateOnlyIgnoresContents(t *testing.T) {
	q := NewQuote()
	_, _ = q.AddItem(&LineItemDraft{ItemName: "A", Area: "10", Rate: "10"})
	q.SetMode(true)
	_, _ = q.AddItem(&LineItemDraft{ItemName: "B", Area: "10", Rate: "10"})

	assert.Equal(t, NotApplicable, q.GrandTotal())
	assert.Equal(t, NotApplicable, q.GrandTotal())
}

func TestQuote_GrandTotal_EmptyQuote(t *testing.T) {
	assert.Equal(t, "₹0.00", NewQuote().GrandTotal())
}

func TestQuote_Reset(t *testing.T) {
	q := NewQuote()
	q.Client = ClientDetails{Name: "Asha"}
	_, _ = q.AddItem(&LineItemDraft{ItemName: "A"})
	q.SetMode(true)

	q.Reset()

	assert.Equal(t, 0, q.Len())
	assert.False(t, q.RateOnly())
	assert.Equal(t, ClientDetails{}, q.Client)
}

func TestQuote_Snapshot(t *testing.T) {
	q := NewQuote()
	q.Client = ClientDetails{Name: "Asha Menon", Phone: "+91 98765 43210", Email: "asha@example.com"}
	_, _ = q.AddItem(&LineItemDraft{ItemName: "Granite Slab", Area: "10", Rate: "50"})

	issued := time.Date(2026, time.March, 5, 10, 0, 0, 0, time.UTC)
	snap := q.Snapshot(issued)

	// Later edits must not leak into the snapshot.
	_, _ = q.AddItem(&LineItemDraft{ItemName: "Tile", Size: "4", Rate: "25"})
	q.Client.Name = "Someone Else"

	require.Len(t, snap.Items, 1)
	assert.Equal(t, "Asha Menon", snap.Client.Name)
	assert.Equal(t, "₹500.00", snap.GrandTotal)
	assert.Equal(t, "500", snap.Amount.String())
	assert.Equal(t, "INV-2026-0305", snap.Number())
	assert.Equal(t, "Thursday, March 5, 2026", snap.IssuedOn())
	assert.Equal(t, "April 4, 2026", snap.ValidUntil())
	assert.Equal(t, "Asha Menon Proforma Invoice.pdf", snap.DownloadFilename("pdf"))
	assert.Equal(t, "Proforma Invoice for Asha Menon.pdf", snap.AttachmentFilename())
}

func TestSnapshot_Filenames(t *testing.T) {
	snap := Snapshot{}
	assert.Equal(t, "Proforma Invoice.pdf", snap.DownloadFilename("pdf"))
	assert.Equal(t, "Proforma Invoice.xlsx", snap.DownloadFilename("xlsx"))

	snap.Client.Name = `Bad "Name"/x`
	assert.Equal(t, "Bad Namex Proforma Invoice.pdf", snap.DownloadFilename("pdf"))
}

func TestOrNA(t *testing.T) {
	assert.Equal(t, NotApplicable, OrNA(""))
	assert.Equal(t, NotApplicable, OrNA("  "))
	assert.Equal(t, "x", OrNA("x"))
}
