package dto

import (
	"time"

	"github.com/octobees/payadvice/internal/entity"
)

// JobSummary is the compact form of a job shown on the upload page.
type JobSummary struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	Status       string    `json:"status"`
	Pages        int       `json:"pages"`
	Invoices     int       `json:"invoices"`
	Records      int       `json:"records"`
	CreatedAt    time.Time `json:"created_at"`
	ErrorMessage string    `json:"error,omitempty"`
}

// SummarizeJob builds a JobSummary.
func SummarizeJob(job entity.Job) JobSummary {
	return JobSummary{
		ID:           job.ID.String(),
		Filename:     job.OriginalFilename,
		Status:       job.Status,
		Pages:        len(job.Pages),
		Invoices:     job.InvoiceCount(),
		Records:      len(job.Records),
		CreatedAt:    job.CreatedAt,
		ErrorMessage: job.Error,
	}
}
