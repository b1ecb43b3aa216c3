package dto

import "github.com/octobees/payadvice/internal/entity"

// SearchRequest asks the CRM worker to look up invoices. Blank invoices are
// searched by fee; Fee applies to those fee searches.
type SearchRequest struct {
	Invoices []string `json:"invoices"`
	Fee      string   `json:"fee,omitempty"`
}

// SearchResponse carries the scraped CRM rows back to the caller.
type SearchResponse struct {
	Success bool            `json:"success"`
	Records []entity.Record `json:"records"`
	Count   int             `json:"count"`
}
