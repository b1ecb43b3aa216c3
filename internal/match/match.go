// Package match scores scraped CRM rows against the fields extracted from the
// page that triggered the search.
package match

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/shopspring/decimal"

	"github.com/octobees/payadvice/internal/entity"
)

const (
	invoiceWeight = 50
	amountWeight  = 30
	partyWeight   = 20
)

var nonNumeric = regexp.MustCompile(`[^0-9.\-]`)

// ParseAmount reads an amount such as "HKD 13,000.00" into a decimal.
func ParseAmount(s string) (decimal.Decimal, bool) {
	cleaned := nonNumeric.ReplaceAllString(s, "")
	cleaned = strings.Trim(cleaned, ".")
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Score rates how well rec corresponds to page.
func Score(page entity.PageInfo, rec entity.Record) int {
	score := 0
	invoice := strings.TrimSpace(page.Invoice)
	amount, hasAmount := ParseAmount(page.Amount)

	var invoiceHit, amountHit, partyHit bool
	for _, col := range rec.Columns {
		value := strings.TrimSpace(rec.Values[col])
		if value == "" {
			continue
		}
		if !invoiceHit && invoice != "" && strings.EqualFold(value, invoice) {
			invoiceHit = true
		}
		if !amountHit && hasAmount {
			if v, ok := ParseAmount(value); ok && v.Equal(amount) {
				amountHit = true
			}
		}
		if !partyHit && (partyMatches(page.Payee, value) || partyMatches(page.Payer, value)) {
			partyHit = true
		}
	}

	if invoiceHit {
		score += invoiceWeight
	}
	if amountHit {
		score += amountWeight
	}
	if partyHit {
		score += partyWeight
	}
	return score
}

// partyMatches reports whether a CRM cell names the party from the advice:
// every significant word of the party must appear in the cell. Words may
// differ by one dropped character to absorb OCR noise.
func partyMatches(party, value string) bool {
	want := partyWords(party)
	if len(want) == 0 {
		return false
	}
	have := partyWords(value)
	if len(have) < len(want) {
		return false
	}
	for _, w := range want {
		if !containsWord(have, w) {
			return false
		}
	}
	return true
}

// legal suffixes and fillers that say nothing about who the party is
var partyNoise = map[string]bool{
	"ltd": true, "limited": true, "co": true, "company": true, "inc": true,
	"corp": true, "corporation": true, "llc": true, "plc": true,
	"the": true, "and": true, "of": true,
}

func partyWords(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := fields[:0]
	for _, f := range fields {
		if len(f) < 2 || partyNoise[f] {
			continue
		}
		words = append(words, f)
	}
	return words
}

func containsWord(words []string, w string) bool {
	for _, c := range words {
		if c == w {
			return true
		}
		if len(w) < 4 || len(c) < 4 {
			continue
		}
		if d := fuzzy.RankMatchNormalizedFold(w, c); d >= 0 && d <= 1 {
			return true
		}
		if d := fuzzy.RankMatchNormalizedFold(c, w); d >= 0 && d <= 1 {
			return true
		}
	}
	return false
}

// Rank scores every record against the page it was searched for (by
// Record.Index) and orders records by index, best score first.
func Rank(pages []entity.PageInfo, records []entity.Record) []entity.Record {
	out := make([]entity.Record, len(records))
	copy(out, records)
	for i := range out {
		idx := out[i].Index - 1
		if idx < 0 || idx >= len(pages) {
			continue
		}
		out[i].Score = Score(pages[idx], out[i])
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Index != out[b].Index {
			return out[a].Index < out[b].Index
		}
		return out[a].Score > out[b].Score
	})
	return out
}
