package crmworker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/idtoken"

	"github.com/octobees/payadvice/internal/crm"
	"github.com/octobees/payadvice/internal/dto"
	"github.com/octobees/payadvice/internal/entity"
)

// RequestIDFunc extracts a correlation id to forward to the worker.
type RequestIDFunc func(ctx context.Context) string

// Client calls the crm-worker service, which owns the browser.
type Client struct {
	client    *http.Client
	baseURL   string
	requestID RequestIDFunc
}

// NewClient builds a worker client. Without an http.Client it tries an ID
// token client for the worker audience and falls back to a plain client.
func NewClient(client *http.Client, workerBaseURL string, requestID RequestIDFunc) *Client {
	if workerBaseURL == "" {
		panic("workerBaseURL must not be empty")
	}
	workerBaseURL = strings.TrimRight(workerBaseURL, "/")
	if client == nil {
		idc, err := idtoken.NewClient(context.Background(), workerBaseURL)
		if err != nil {
			client = &http.Client{Timeout: 15 * time.Minute}
		} else {
			client = idc
		}
	}
	return &Client{client: client, baseURL: workerBaseURL, requestID: requestID}
}

// Search posts the invoices to /search and returns the scraped records.
func (c *Client) Search(ctx context.Context, invoices []string) ([]entity.Record, error) {
	return c.SearchWithFee(ctx, invoices, "")
}

// SearchWithFee is Search with fee used by the worker for blank invoices.
func (c *Client) SearchWithFee(ctx context.Context, invoices []string, fee string) ([]entity.Record, error) {
	var resp dto.SearchResponse
	if err := c.postJSON(ctx, "/search", dto.SearchRequest{Invoices: invoices, Fee: fee}, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// postJSON posts payload and decodes the envelope's "data" member into out.
func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create worker request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.requestID != nil {
		if rid := c.requestID(ctx); rid != "" {
			req.Header.Set("X-Request-ID", rid)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("worker request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("worker error (%d): %s", resp.StatusCode, extractWorkerError(resp.Body))
	}

	var envelope struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil && err != io.EOF {
		return fmt.Errorf("could not decode worker response: %w", err)
	}
	if envelope.Status == "error" {
		return fmt.Errorf("worker error: %s", envelope.Message)
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("could not decode worker data: %w", err)
	}
	return nil
}

func extractWorkerError(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return "worker returned an error"
	}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return string(data)
}

var _ crm.FeeSearcher = (*Client)(nil)
