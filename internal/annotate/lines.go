package annotate

import (
	"fmt"
	"strings"

	"github.com/octobees/payadvice/internal/entity"
)

const maxLineRunes = 200

// PageLines summarises the CRM records found for one page.
func PageLines(page entity.PageInfo, records []entity.Record) []string {
	label := "Fee search"
	if page.HasInvoice() {
		label = "Invoice " + page.Invoice
	}

	lines := []string{fmt.Sprintf("%s: %d CRM record(s)", label, len(records))}
	for _, rec := range records {
		pairs := make([]string, 0, len(rec.Columns))
		for _, col := range rec.Columns {
			v := rec.Get(col)
			if v == "" {
				continue
			}
			pairs = append(pairs, col+": "+v)
		}
		if len(pairs) == 0 {
			continue
		}
		lines = append(lines, truncate(strings.Join(pairs, " | "), maxLineRunes))
	}
	return lines
}

// groupByPage assigns records to zero-based page positions. Records carry the
// 1-based record index of the invoice they were found for; records without a
// usable index fall back to the page whose invoice matches their source, then
// to the first page.
func groupByPage(pageCount int, pages []entity.PageInfo, records []entity.Record) map[int][]entity.Record {
	out := make(map[int][]entity.Record)
	if pageCount <= 0 {
		return out
	}
	for _, rec := range records {
		pos := rec.Index - 1
		if pos < 0 || pos >= pageCount {
			pos = 0
			for i, p := range pages {
				if i >= pageCount {
					break
				}
				if p.HasInvoice() && strings.EqualFold(p.Invoice, rec.SourceInvoice) {
					pos = i
					break
				}
			}
		}
		out[pos] = append(out[pos], rec)
	}
	return out
}
