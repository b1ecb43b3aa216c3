package annotate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/payadvice/internal/entity"
)

const (
	a4Width  = 595.0
	a4Height = 842.0
)

func TestLayoutKeepsDefaultSizeForShortText(t *testing.T) {
	p := Layout(a4Width, a4Height, []string{"Invoice INV-1: 1 CRM record(s)", "Invoice No.: INV-1"})

	assert.Equal(t, maxFontSize, p.FontSize)
	assert.Equal(t, margin, p.OffsetX)
	assert.Equal(t, margin, p.OffsetY)
	assert.Len(t, p.Lines, 2)
}

func TestLayoutShrinksForWideLines(t *testing.T) {
	// 140 glyphs at 9pt need 630pt; at 7pt they need 490pt which fits 555pt.
	line := strings.Repeat("x", 140)
	p := Layout(a4Width, a4Height, []string{line})

	assert.Equal(t, 7, p.FontSize)
	assert.Equal(t, line, p.Lines[0])
}

func TestLayoutTruncatesAtFloor(t *testing.T) {
	line := strings.Repeat("y", 400)
	p := Layout(a4Width, a4Height, []string{line})

	require.Len(t, p.Lines, 1)
	assert.Equal(t, minFontSize, p.FontSize)
	assert.True(t, strings.HasSuffix(p.Lines[0], "…"))
	assert.Equal(t, 222, len([]rune(p.Lines[0])))
}

func TestLayoutCollapsesOverflow(t *testing.T) {
	// lower third of A4 minus margin is ~260pt, 43 lines at 5pt.
	lines := make([]string, 60)
	for i := range lines {
		lines[i] = "row"
	}
	p := Layout(a4Width, a4Height, lines)

	assert.Equal(t, minFontSize, p.FontSize)
	require.Len(t, p.Lines, 43)
	assert.Equal(t, "… (+18 more)", p.Lines[42])
}

func TestLayoutEmpty(t *testing.T) {
	p := Layout(a4Width, a4Height, nil)
	assert.Equal(t, maxFontSize, p.FontSize)
	assert.Empty(t, p.Lines)
}

func TestPageLines(t *testing.T) {
	rec := entity.NewRecord()
	rec.Set("Opportunity", "Renewal")
	rec.Set("Invoice No.", "INV-1")
	rec.Set("Notes", "")
	empty := entity.NewRecord()
	empty.Set("Opportunity", "")

	lines := PageLines(entity.PageInfo{Invoice: "INV-1"}, []entity.Record{rec, empty})

	assert.Equal(t, []string{
		"Invoice INV-1: 2 CRM record(s)",
		"Opportunity: Renewal | Invoice No.: INV-1",
	}, lines)
}

func TestPageLinesFeeSearch(t *testing.T) {
	lines := PageLines(entity.PageInfo{}, nil)
	assert.Equal(t, []string{"Fee search: 0 CRM record(s)"}, lines)
}

func TestGroupByPage(t *testing.T) {
	pages := []entity.PageInfo{{Invoice: "A"}, {Invoice: "B"}}
	byIndex := entity.Record{Index: 2}
	bySource := entity.Record{SourceInvoice: "b"}
	unknown := entity.Record{Index: 7, SourceInvoice: "Z"}

	grouped := groupByPage(2, pages, []entity.Record{byIndex, bySource, unknown})

	assert.Len(t, grouped[1], 2)
	assert.Len(t, grouped[0], 1)
	assert.Empty(t, groupByPage(0, pages, []entity.Record{byIndex}))
}
