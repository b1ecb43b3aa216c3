package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Reserved keys appended to every scraped CRM row.
const (
	KeySourceInvoice = "_source_invoice"
	KeyRecordIndex   = "_record_index"
	KeyScore         = "score"
)

// Record is one row of the CRM result grid. Columns keeps the header order
// as scraped, Values maps each header to the cell text.
type Record struct {
	Columns       []string
	Values        map[string]string
	SourceInvoice string
	Index         int
	Score         int
}

// NewRecord returns an empty record ready for Set.
func NewRecord() Record {
	return Record{Values: map[string]string{}}
}

// Set assigns a cell value, remembering the column on first use.
func (r *Record) Set(column, value string) {
	if r.Values == nil {
		r.Values = map[string]string{}
	}
	if _, ok := r.Values[column]; !ok {
		r.Columns = append(r.Columns, column)
	}
	r.Values[column] = value
}

// Get returns the cell value for column.
func (r Record) Get(column string) string {
	return r.Values[column]
}

// HasData reports whether at least one cell is non-empty.
func (r Record) HasData() bool {
	for _, v := range r.Values {
		if v != "" {
			return true
		}
	}
	return false
}

// Key returns a canonical representation of the cell set, used for de-duplication.
func (r Record) Key() string {
	keys := make([]string, 0, len(r.Values))
	for k := range r.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(strconv.Quote(k))
		b.WriteByte('=')
		b.WriteString(strconv.Quote(r.Values[k]))
		b.WriteByte(';')
	}
	return b.String()
}

// MarshalJSON renders the record as a flat object in column order followed by
// the reserved keys.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key string, value any) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	for _, col := range r.Columns {
		if err := write(col, r.Values[col]); err != nil {
			return nil, err
		}
	}
	if r.SourceInvoice != "" {
		if err := write(KeySourceInvoice, r.SourceInvoice); err != nil {
			return nil, err
		}
	}
	if r.Index > 0 {
		if err := write(KeyRecordIndex, r.Index); err != nil {
			return nil, err
		}
	}
	if r.Score > 0 {
		if err := write(KeyScore, r.Score); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat object, keeping key order as column order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("record must be a JSON object")
	}

	out := NewRecord()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected key token %v", keyTok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}

		switch key {
		case KeySourceInvoice:
			out.SourceInvoice = fmt.Sprint(valueOrEmpty(value))
		case KeyRecordIndex:
			n, err := strconv.Atoi(fmt.Sprint(valueOrEmpty(value)))
			if err != nil {
				return fmt.Errorf("invalid %s: %w", KeyRecordIndex, err)
			}
			out.Index = n
		case KeyScore:
			n, _ := strconv.Atoi(fmt.Sprint(valueOrEmpty(value)))
			out.Score = n
		default:
			out.Set(key, fmt.Sprint(valueOrEmpty(value)))
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = out
	return nil
}

func valueOrEmpty(v any) any {
	if v == nil {
		return ""
	}
	return v
}

// Table flattens records into a header row and padded value rows. Headers are
// the union of all columns in first-seen order; missing cells are empty.
func Table(records []Record) ([]string, [][]string) {
	seen := map[string]struct{}{}
	var headers []string
	for _, r := range records {
		for _, col := range r.Columns {
			if _, ok := seen[col]; ok {
				continue
			}
			seen[col] = struct{}{}
			headers = append(headers, col)
		}
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := make([]string, len(headers))
		for i, h := range headers {
			row[i] = r.Values[h]
		}
		rows = append(rows, row)
	}
	return headers, rows
}
