package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/octobees/payadvice/internal/crm"
	"github.com/octobees/payadvice/internal/entity"
	"github.com/octobees/payadvice/internal/extract"
	"github.com/octobees/payadvice/internal/match"
	"github.com/octobees/payadvice/internal/metrics"
	"github.com/octobees/payadvice/internal/ocr"
	"github.com/octobees/payadvice/internal/repository"
	"github.com/octobees/payadvice/internal/storage"
)

// ErrUnsupportedFile is returned for uploads with a disallowed extension.
var ErrUnsupportedFile = errors.New("file type not allowed")

// Flash categories understood by the templates.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashDanger  = "danger"
)

// Flash is a one-shot message shown on the next page.
type Flash struct {
	Category string
	Message  string
}

// Upload is one file received from the form.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Outcome is the result of processing one upload.
type Outcome struct {
	Job     *entity.Job
	Flashes []Flash
}

func (o *Outcome) flash(category, format string, args ...any) {
	o.Flashes = append(o.Flashes, Flash{Category: category, Message: fmt.Sprintf(format, args...)})
}

// TextReader recognises the text of a stored file.
type TextReader interface {
	ExtractFile(ctx context.Context, path string) (ocr.Result, error)
}

// FieldExtractor turns recognised text into per-page fields.
type FieldExtractor interface {
	Extract(ctx context.Context, text string) ([]entity.PageInfo, error)
}

// PipelineService runs an upload through OCR, extraction and the CRM search.
type PipelineService struct {
	store      *storage.Local
	jobs       repository.JobsRepository
	reader     TextReader
	extractor  FieldExtractor
	searcher   crm.Searcher
	metrics    *metrics.Metrics
	crmTimeout time.Duration
	log        *zap.Logger
	now        func() time.Time
}

// PipelineDeps groups the collaborators of a PipelineService.
type PipelineDeps struct {
	Store      *storage.Local
	Jobs       repository.JobsRepository
	Reader     TextReader
	Extractor  FieldExtractor
	Searcher   crm.Searcher
	Metrics    *metrics.Metrics
	CRMTimeout time.Duration
	Logger     *zap.Logger
}

// NewPipelineService wires a PipelineService.
func NewPipelineService(deps PipelineDeps) *PipelineService {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timeout := deps.CRMTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &PipelineService{
		store:      deps.Store,
		jobs:       deps.Jobs,
		reader:     deps.Reader,
		extractor:  deps.Extractor,
		searcher:   deps.Searcher,
		metrics:    deps.Metrics,
		crmTimeout: timeout,
		log:        log,
		now:        time.Now,
	}
}

// Process stores the upload and runs it end to end. Failures of OCR,
// extraction or the CRM are recorded on the job and reported as flashes;
// only storage and persistence failures are returned as errors.
func (s *PipelineService) Process(ctx context.Context, up Upload) (*Outcome, error) {
	if up.Filename == "" || !entity.AllowedFile(up.Filename) {
		return nil, ErrUnsupportedFile
	}

	start := s.now()
	stored, err := s.store.Save(up.Filename, up.Body)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	s.metrics.ObserveStage(metrics.StageStore, s.now().Sub(start))

	job := &entity.Job{
		OriginalFilename: up.Filename,
		StoredFilename:   stored,
		ContentType:      up.ContentType,
		Status:           entity.JobStatusProcessing,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	log := s.log.With(zap.String("job_id", job.ID.String()), zap.String("file", up.Filename))
	log.Info("upload stored", zap.String("stored", stored))

	out := &Outcome{Job: job}
	s.run(ctx, log, out)

	done := s.now().UTC()
	job.CompletedAt = &done
	if err := s.jobs.Update(context.WithoutCancel(ctx), job); err != nil {
		return out, fmt.Errorf("save job: %w", err)
	}
	s.metrics.JobFinished(job.Status)
	log.Info("job finished",
		zap.String("status", job.Status),
		zap.Int("pages", len(job.Pages)),
		zap.Int("records", len(job.Records)),
	)
	return out, nil
}

func (s *PipelineService) run(ctx context.Context, log *zap.Logger, out *Outcome) {
	job := out.Job

	path, err := s.store.Path(job.StoredFilename)
	if err != nil {
		s.fail(out, "Could not open the stored file: %v", err)
		return
	}

	start := s.now()
	text, err := s.reader.ExtractFile(ctx, path)
	s.metrics.ObserveStage(metrics.StageOCR, s.now().Sub(start))
	if err != nil {
		log.Warn("ocr failed", zap.Error(err))
		s.fail(out, "OCR failed: %v", err)
		return
	}

	var pages []entity.PageInfo
	if text.HasText() {
		start = s.now()
		pages, err = s.extractor.Extract(ctx, text.Text)
		s.metrics.ObserveStage(metrics.StageExtract, s.now().Sub(start))
	}
	switch {
	case errors.Is(err, extract.ErrNoText), err == nil && len(pages) == 0:
		job.Status = entity.JobStatusCompleted
		job.Error = "No information extracted from the file."
		out.flash(FlashDanger, "No information extracted from the file.")
		return
	case err != nil:
		log.Warn("extraction failed", zap.Error(err))
		s.fail(out, "Field extraction failed: %v", err)
		return
	}
	job.Pages = pages

	invoices := extract.Invoices(pages)
	out.flash(FlashSuccess, "Extracted %d page(s) with %d invoice(s). Launching CRM automation...", len(pages), job.InvoiceCount())

	crmCtx, cancel := context.WithTimeout(ctx, s.crmTimeout)
	defer cancel()

	start = s.now()
	records, err := s.searcher.Search(crmCtx, invoices)
	s.metrics.ObserveStage(metrics.StageCRM, s.now().Sub(start))
	if err != nil {
		log.Warn("crm automation failed", zap.Error(err))
		job.Status = entity.JobStatusFailed
		job.Error = fmt.Sprintf("CRM automation error: %v", err)
		out.flash(FlashDanger, "CRM automation error: %v", err)
		records = nil
	} else {
		job.Status = entity.JobStatusCompleted
		if len(records) > 0 {
			out.flash(FlashSuccess, "CRM automation completed! Found %d total records.", len(records))
		} else {
			out.flash(FlashWarning, "CRM automation completed but no records found.")
		}
	}
	s.metrics.CRMRecords(len(records))

	start = s.now()
	job.Records = match.Rank(pages, records)
	s.metrics.ObserveStage(metrics.StageRank, s.now().Sub(start))

	out.flash(FlashInfo, "Processing completed! Total CRM records found: %d", len(job.Records))
}

func (s *PipelineService) fail(out *Outcome, format string, args ...any) {
	out.Job.Status = entity.JobStatusFailed
	out.Job.Error = fmt.Sprintf(format, args...)
	out.flash(FlashDanger, format, args...)
}

// Job returns a stored job.
func (s *PipelineService) Job(ctx context.Context, id string) (*entity.Job, error) {
	jobID, err := parseJobID(id)
	if err != nil {
		return nil, err
	}
	return s.jobs.Get(ctx, jobID)
}

// RecentJobs lists the latest jobs for the upload page.
func (s *PipelineService) RecentJobs(ctx context.Context, limit int) ([]entity.Job, error) {
	return s.jobs.ListRecent(ctx, limit)
}
