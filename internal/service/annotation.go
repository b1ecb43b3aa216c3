package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/octobees/payadvice/internal/annotate"
	"github.com/octobees/payadvice/internal/dto"
	"github.com/octobees/payadvice/internal/entity"
	"github.com/octobees/payadvice/internal/repository"
	"github.com/octobees/payadvice/internal/storage"
)

// ErrMissingSource is returned when an annotation request names no document.
var ErrMissingSource = errors.New("job_id or filename is required")

// PDFAnnotator stamps results onto a stored document.
type PDFAnnotator interface {
	Annotate(ctx context.Context, req annotate.Request) (string, error)
}

// AnnotationService produces annotated PDFs for jobs or bare uploads.
type AnnotationService struct {
	jobs      repository.JobsRepository
	annotator PDFAnnotator
	store     *storage.Local
	archiver  storage.Archiver
	log       *zap.Logger
}

// NewAnnotationService wires an AnnotationService. archiver may be nil.
func NewAnnotationService(jobs repository.JobsRepository, annotator PDFAnnotator, store *storage.Local, archiver storage.Archiver, log *zap.Logger) *AnnotationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AnnotationService{jobs: jobs, annotator: annotator, store: store, archiver: archiver, log: log}
}

// Annotate stamps the rows of req onto its source document and returns the
// stored name of the result. When the request refers to a job without rows,
// the job's own records are used.
func (s *AnnotationService) Annotate(ctx context.Context, req dto.AnnotateRequest) (string, error) {
	var (
		job     *entity.Job
		request annotate.Request
	)

	switch {
	case req.JobID != "":
		id, err := parseJobID(req.JobID)
		if err != nil {
			return "", err
		}
		job, err = s.jobs.Get(ctx, id)
		if err != nil {
			return "", err
		}
		request = annotate.Request{
			Source:      job.StoredFilename,
			DisplayName: job.OriginalFilename,
			Pages:       job.Pages,
			Records:     job.Records,
		}
	case req.Filename != "":
		if _, err := s.store.Path(req.Filename); err != nil {
			return "", err
		}
		request = annotate.Request{Source: req.Filename}
	default:
		return "", ErrMissingSource
	}

	if req.Rows != nil {
		request.Records = req.Rows
	}

	name, err := s.annotator.Annotate(ctx, request)
	if err != nil {
		return "", fmt.Errorf("annotate %s: %w", request.Source, err)
	}

	if job != nil {
		job.AnnotatedFilename = name
		if err := s.jobs.Update(ctx, job); err != nil {
			s.log.Warn("could not record annotated file on job", zap.String("job_id", job.ID.String()), zap.Error(err))
		}
	}
	s.archive(ctx, name)
	return name, nil
}

func (s *AnnotationService) archive(ctx context.Context, name string) {
	if s.archiver == nil {
		return
	}
	f, err := s.store.Open(name)
	if err != nil {
		s.log.Warn("archive skipped", zap.String("file", name), zap.Error(err))
		return
	}
	defer f.Close()

	if err := s.archiver.Archive(ctx, name, f); err != nil {
		s.log.Warn("archive failed", zap.String("file", name), zap.Error(err))
	}
}

func parseJobID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", repository.ErrJobNotFound, raw)
	}
	return id, nil
}
