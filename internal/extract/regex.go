package extract

import (
	"regexp"
	"strings"

	"github.com/octobees/payadvice/internal/entity"
)

var (
	dateRe      = regexp.MustCompile(`Date:\s*(\d{1,2} [A-Za-z]{3} \d{4})`)
	amountRe    = regexp.MustCompile(`(?:HKD|USD)? ?[\d,]+\.\d{2}`)
	payeeRe     = regexp.MustCompile(`(?i)Pay (?:to the order of|the order of|to) (.*)`)
	referenceRe = regexp.MustCompile(`Ref\. No\. (\S+)`)
	invoiceRe   = regexp.MustCompile(`\b\d{2}-[A-Z]{2,5}(?:-[A-Z0-9]{2,6}){2,4}\b`)
)

// ParseBankText pulls the common advice fields out of raw OCR text with
// regular expressions. It works without a model and leaves unknown fields empty.
func ParseBankText(text string) entity.PageInfo {
	var p entity.PageInfo
	if m := dateRe.FindStringSubmatch(text); m != nil {
		p.Date = m[1]
	}
	if m := amountRe.FindString(text); m != "" {
		p.Amount = strings.TrimSpace(m)
	}
	if m := payeeRe.FindStringSubmatch(text); m != nil {
		p.Payee = strings.TrimSpace(m[1])
	}
	if m := referenceRe.FindStringSubmatch(text); m != nil {
		p.Reference = m[1]
	}
	if m := invoiceRe.FindString(text); m != "" {
		p.Invoice = m
	}
	return p
}
