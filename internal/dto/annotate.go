package dto

import "github.com/octobees/payadvice/internal/entity"

// AnnotateRequest is posted by the results page with the (possibly edited)
// CRM table to stamp onto the source PDF.
type AnnotateRequest struct {
	JobID    string          `json:"job_id,omitempty"`
	Filename string          `json:"filename,omitempty"`
	Rows     []entity.Record `json:"rows"`
}

// AnnotateResponse points to the generated PDF.
type AnnotateResponse struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}
