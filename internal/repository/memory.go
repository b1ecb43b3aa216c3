package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/octobees/payadvice/internal/entity"
)

// MemoryJobsRepository keeps jobs in process memory. It backs the web binary
// when no DATABASE_URL is configured.
type MemoryJobsRepository struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]entity.Job
}

// NewMemoryJobsRepository returns an empty in-memory store.
func NewMemoryJobsRepository() *MemoryJobsRepository {
	return &MemoryJobsRepository{jobs: make(map[uuid.UUID]entity.Job)}
}

func (r *MemoryJobsRepository) Create(_ context.Context, job *entity.Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = cloneJob(*job)
	return nil
}

func (r *MemoryJobsRepository) Update(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.jobs[job.ID]
	if !ok {
		return ErrJobNotFound
	}
	existing.Status = job.Status
	existing.Pages = job.Pages
	existing.Records = job.Records
	existing.Error = job.Error
	existing.AnnotatedFilename = job.AnnotatedFilename
	existing.CompletedAt = job.CompletedAt
	r.jobs[job.ID] = cloneJob(existing)
	return nil
}

func (r *MemoryJobsRepository) Get(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	out := cloneJob(job)
	return &out, nil
}

func (r *MemoryJobsRepository) ListRecent(_ context.Context, limit int) ([]entity.Job, error) {
	if limit <= 0 {
		limit = 20
	}

	r.mu.RLock()
	jobs := make([]entity.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, cloneJob(job))
	}
	r.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func cloneJob(job entity.Job) entity.Job {
	job.Pages = append([]entity.PageInfo(nil), job.Pages...)
	job.Records = append([]entity.Record(nil), job.Records...)
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		job.CompletedAt = &t
	}
	return job
}
