package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PageInfo holds the fields extracted from one page of a payment advice.
// An empty Invoice means the page has to be looked up by fee instead.
type PageInfo struct {
	PageNumber int               `json:"page_number,omitempty" csv:"page_number"`
	Date       string            `json:"date,omitempty" csv:"date"`
	Amount     string            `json:"amount,omitempty" csv:"amount"`
	Payee      string            `json:"payee,omitempty" csv:"payee"`
	Payer      string            `json:"payer,omitempty" csv:"payer"`
	Reference  string            `json:"reference,omitempty" csv:"reference"`
	Invoice    string            `json:"invoice,omitempty" csv:"invoice"`
	Extra      map[string]string `json:"extra,omitempty" csv:"-"`
}

// HasInvoice reports whether an invoice number was found on the page.
func (p PageInfo) HasInvoice() bool {
	return strings.TrimSpace(p.Invoice) != ""
}

// UnmarshalJSON accepts the loosely typed objects produced by language models:
// numbers, booleans and nulls are tolerated for every field and unknown keys
// are kept in Extra.
func (p *PageInfo) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = PageInfoFromMap(raw)
	return nil
}

// PageInfoFromMap converts a decoded JSON object into a PageInfo.
func PageInfoFromMap(raw map[string]any) PageInfo {
	var p PageInfo
	for key, value := range raw {
		text := stringify(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "page_number", "page":
			p.PageNumber = pageNumber(value)
		case "date":
			p.Date = text
		case "amount":
			p.Amount = text
		case "payee":
			p.Payee = text
		case "payer":
			p.Payer = text
		case "reference":
			p.Reference = text
		case "invoice", "invoice_number":
			p.Invoice = text
		case "extra":
			if nested, ok := value.(map[string]any); ok {
				for k, v := range nested {
					p.setExtra(k, stringify(v))
				}
			}
		default:
			p.setExtra(key, text)
		}
	}
	return p
}

func (p *PageInfo) setExtra(key, value string) {
	if p.Extra == nil {
		p.Extra = map[string]string{}
	}
	p.Extra[key] = value
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		s := strings.TrimSpace(v)
		switch strings.ToLower(s) {
		case "null", "none", "not found", "n/a":
			return ""
		}
		return s
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

func pageNumber(value any) int {
	switch v := value.(type) {
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}
