package entity

import (
	"time"

	"github.com/google/uuid"
)

// Job statuses.
const (
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Job tracks one uploaded advice through OCR, extraction and CRM lookup.
type Job struct {
	ID                uuid.UUID  `json:"id"`
	OriginalFilename  string     `json:"original_filename"`
	StoredFilename    string     `json:"stored_filename"`
	ContentType       string     `json:"content_type,omitempty"`
	Status            string     `json:"status"`
	Pages             []PageInfo `json:"pages"`
	Records           []Record   `json:"records"`
	Error             string     `json:"error,omitempty"`
	AnnotatedFilename string     `json:"annotated_filename,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// Invoices lists the invoice number of each page in page order; pages without
// one contribute an empty string.
func (j *Job) Invoices() []string {
	out := make([]string, len(j.Pages))
	for i, p := range j.Pages {
		out[i] = p.Invoice
	}
	return out
}

// InvoiceCount counts pages that carry an invoice number.
func (j *Job) InvoiceCount() int {
	n := 0
	for _, p := range j.Pages {
		if p.HasInvoice() {
			n++
		}
	}
	return n
}

// IsPDF reports whether the stored upload is a PDF document.
func (j *Job) IsPDF() bool {
	return IsPDFName(j.StoredFilename)
}
