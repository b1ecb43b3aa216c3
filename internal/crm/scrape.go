package crm

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/octobees/payadvice/internal/entity"
)

const (
	classDataRows = "td.ROW1, td.ROW2"
	classHeader   = "td.GRIDHEAD"
)

// ParseResults converts the CRM search result page into records.
//
// The grid is the first table.CONTENT holding ROW1/ROW2 cells, falling back to
// any table that does. Each data row is keyed by the nearest preceding
// GRIDHEAD row (the first row when none precedes it), aligned from the right
// so extra leading cells such as icons still line up. Rows without any text
// are dropped and identical rows are reported once.
func ParseResults(page string) []entity.Record {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil
	}

	table := pickTable(doc.Find("table.CONTENT"))
	if table == nil {
		table = pickTable(doc.Find("table"))
	}
	if table == nil {
		return nil
	}

	rows := table.Find("tr")
	if rows.Length() < 2 {
		return nil
	}

	headerRow := rows.FilterFunction(func(_ int, row *goquery.Selection) bool {
		return isHeaderRow(row)
	}).First()
	if headerRow.Length() == 0 {
		headerRow = rows.First()
	}
	headers := headerTexts(headerRow)

	var records []entity.Record
	seen := map[string]struct{}{}
	rows.Each(func(_ int, row *goquery.Selection) {
		if !isDataRow(row) {
			if isHeaderRow(row) {
				headers = headerTexts(row)
			}
			return
		}

		cells := row.Find("td")
		keys := alignKeys(headers, cells.Length())
		rec := entity.NewRecord()
		cells.Each(func(i int, cell *goquery.Selection) {
			rec.Set(keys[i], cellText(cell))
		})
		if !rec.HasData() {
			return
		}

		key := rec.Key()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		records = append(records, rec)
	})

	return records
}

func pickTable(tables *goquery.Selection) *goquery.Selection {
	var picked *goquery.Selection
	tables.EachWithBreak(func(_ int, t *goquery.Selection) bool {
		if t.Find("tr").FilterFunction(func(_ int, row *goquery.Selection) bool {
			return isDataRow(row)
		}).Length() > 0 {
			picked = t
			return false
		}
		return true
	})
	return picked
}

func isDataRow(row *goquery.Selection) bool {
	return row.Find(classDataRows).Length() > 0
}

func isHeaderRow(row *goquery.Selection) bool {
	return row.Find(classHeader).Length() > 0
}

func headerTexts(row *goquery.Selection) []string {
	var headers []string
	row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
		headers = append(headers, cellText(cell))
	})
	for len(headers) > 0 && headers[0] == "" {
		headers = headers[1:]
	}
	return headers
}

// alignKeys picks the last n headers, or positional col<i> keys when the
// header row is shorter than the data row.
func alignKeys(headers []string, n int) []string {
	if len(headers) >= n {
		return headers[len(headers)-n:]
	}
	keys := make([]string, n)
	for i := range keys {
		keys[i] = "col" + strconv.Itoa(i)
	}
	return keys
}

// cellText prefers the text of the first link in the cell, since grid cells
// usually wrap their value in an anchor next to icons.
func cellText(cell *goquery.Selection) string {
	var text string
	if link := cell.Find("a").First(); link.Length() > 0 {
		text = nodeText(link.Nodes[0])
	}
	if text == "" && cell.Length() > 0 {
		text = nodeText(cell.Nodes[0])
	}
	return strings.TrimSpace(text)
}

// nodeText joins the non-empty text nodes under n with single spaces. Runs of
// whitespace collapse and non-breaking spaces are dropped.
func nodeText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.Join(strings.Fields(strings.ReplaceAll(n.Data, "\u00a0", "")), " "); s != "" {
				parts = append(parts, s)
			}
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}
