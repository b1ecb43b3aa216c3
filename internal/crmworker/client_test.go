package crmworker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("X-Request-ID") != "req-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var body struct {
			Invoices []string `json:"invoices"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Invoices) != 2 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"status":"success","data":{"success":true,"count":1,"records":[{"Invoice":"A-1","Stage":"Won","_source_invoice":"A-1","_record_index":1}]}}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL+"/", func(context.Context) string { return "req-1" })
	records, err := client.Search(context.Background(), []string{"A-1", ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	if records[0].Get("Stage") != "Won" || records[0].SourceInvoice != "A-1" || records[0].Index != 1 {
		t.Fatalf("unexpected record: %+v", records[0])
	}
	if records[0].Columns[0] != "Invoice" {
		t.Fatalf("expected column order to be kept, got %v", records[0].Columns)
	}
}

func TestClientSearchWorkerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"status":"error","message":"crm login failed"}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, nil)
	_, err := client.Search(context.Background(), []string{"A-1"})
	if err == nil || err.Error() != "worker error (502): crm login failed" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientSearchEnvelopeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","message":"busy"}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, nil)
	if _, err := client.Search(context.Background(), nil); err == nil {
		t.Fatalf("expected envelope error")
	}
}

func TestExtractWorkerError(t *testing.T) {
	cases := map[string]string{
		"":                     "worker returned an error",
		`{"error":"boom"}`:     "boom",
		`{"message":"denied"}`: "denied",
		"plain text":           "plain text",
	}
	for in, want := range cases {
		if got := extractWorkerError(strings.NewReader(in)); got != want {
			t.Fatalf("extractWorkerError(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClientSearchWithFee(t *testing.T) {
	var got struct {
		Invoices []string `json:"invoices"`
		Fee      string   `json:"fee"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"status":"success","data":{"success":true,"count":0,"records":[]}}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, nil)
	records, err := client.SearchWithFee(context.Background(), []string{""}, "13000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
	if got.Fee != "13000" || len(got.Invoices) != 1 {
		t.Fatalf("unexpected request body: %+v", got)
	}
}
