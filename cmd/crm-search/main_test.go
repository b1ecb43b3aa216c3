package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/payadvice/internal/config"
	"github.com/octobees/payadvice/internal/entity"
)

func sampleRecords() []entity.Record {
	rec := entity.NewRecord()
	rec.Set("Invoice No.", "INV-1")
	rec.Set("Fee", "13,000.00")
	rec.SourceInvoice = "INV-1"
	rec.Index = 1
	return []entity.Record{rec}
}

func TestMergeInvoices(t *testing.T) {
	got := mergeInvoices(
		[]string{" INV-1 "},
		strings.Split("INV-2, ,INV-1,INV-3", ","),
		[]string{"INV-3", "", "INV-4"},
	)
	assert.Equal(t, []string{"INV-1", "INV-2", "INV-3", "INV-4"}, got)

	assert.Empty(t, mergeInvoices([]string{""}, strings.Split("", ","), nil))
}

func TestSearchList(t *testing.T) {
	assert.Equal(t, []string{""}, searchList(nil, "general"), "a bare fee runs one blank search")
	assert.Nil(t, searchList(nil, ""), "no fee and no invoices only logs in")
	assert.Nil(t, searchList(nil, "  "))
	assert.Equal(t, []string{"INV-1"}, searchList([]string{"INV-1"}, "general"))
}

func TestApplyFlags_HeadlessFollowsFlag(t *testing.T) {
	cfg := &config.Config{CRM: config.CRMConfig{Headless: true}}
	applyFlags(cfg, options{})
	assert.False(t, cfg.CRM.Headless, "the CLI shows the browser unless --headless is given")

	applyFlags(cfg, options{headless: true})
	assert.True(t, cfg.CRM.Headless)
}

func TestKeepBrowserOpen(t *testing.T) {
	assert.True(t, keepBrowserOpen(options{}), "visible browser stays open by default")
	assert.False(t, keepBrowserOpen(options{headless: true}))
	assert.False(t, keepBrowserOpen(options{noInteractive: true}))
	assert.False(t, keepBrowserOpen(options{webOutput: true}))
}

func TestPrintRecords_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printRecords(&buf, sampleRecords(), options{}))

	out := buf.String()
	assert.Contains(t, out, "Invoice No.")
	assert.Contains(t, out, "13,000.00")
	assert.Contains(t, out, "1 record(s)")
}

func TestPrintRecords_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printRecords(&buf, nil, options{}))
	assert.Equal(t, "No CRM records found.\n", buf.String())
}

func TestPrintRecords_WebOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printRecords(&buf, nil, options{webOutput: true}))

	var resp struct {
		Success bool              `json:"success"`
		Records []json.RawMessage `json:"records"`
		Count   int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Records, "records must encode as an empty list")
	assert.Equal(t, 0, resp.Count)
}

func TestPrintRecords_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printRecords(&buf, sampleRecords(), options{asCSV: true}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Invoice No.,Fee"))
	assert.Contains(t, lines[1], "INV-1")
}

func TestWaitForEnter(t *testing.T) {
	var out bytes.Buffer
	waitForEnter(context.Background(), strings.NewReader("\n"), &out)
	assert.Contains(t, out.String(), "Press Enter")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	r, w := io.Pipe()
	defer w.Close()

	done := make(chan struct{})
	go func() {
		waitForEnter(ctx, r, io.Discard)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waitForEnter ignored context cancellation")
	}
}
