package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/octobees/payadvice/internal/entity"
)

// ErrMalformedResponse is returned when the model reply is neither a JSON
// object nor an array of objects.
var ErrMalformedResponse = errors.New("malformed extraction response")

// CleanJSON strips surrounding whitespace and markdown code fences.
func CleanJSON(content string) string {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParsePages decodes the model reply. A single object becomes a one-element
// list; every object of an array is kept, including pages without invoice.
func ParsePages(content string) ([]entity.PageInfo, error) {
	cleaned := CleanJSON(content)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrMalformedResponse)
	}

	var raw any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	switch v := raw.(type) {
	case map[string]any:
		return []entity.PageInfo{entity.PageInfoFromMap(v)}, nil
	case []any:
		pages := make([]entity.PageInfo, 0, len(v))
		for i, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is %T", ErrMalformedResponse, i, item)
			}
			pages = append(pages, entity.PageInfoFromMap(obj))
		}
		return pages, nil
	default:
		return nil, fmt.Errorf("%w: unexpected %T", ErrMalformedResponse, raw)
	}
}

// Invoices returns the invoice of every page in order, "" where absent.
func Invoices(pages []entity.PageInfo) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = strings.TrimSpace(p.Invoice)
	}
	return out
}
