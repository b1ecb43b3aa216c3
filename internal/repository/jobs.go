package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/octobees/payadvice/internal/entity"
)

// ErrJobNotFound is returned when no job matches the identifier.
var ErrJobNotFound = errors.New("job not found")

// JobsRepository persists advice processing jobs.
type JobsRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	Update(ctx context.Context, job *entity.Job) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	ListRecent(ctx context.Context, limit int) ([]entity.Job, error)
}

// pgxPool is the subset of *pgxpool.Pool used by the repositories.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGXJobsRepository implements JobsRepository with pgx.
type PGXJobsRepository struct {
	pool pgxPool
}

// NewPGXJobsRepository instantiates a jobs repository. *pgxpool.Pool satisfies pool.
func NewPGXJobsRepository(pool pgxPool) *PGXJobsRepository {
	return &PGXJobsRepository{pool: pool}
}

const jobColumns = `id, original_filename, stored_filename, content_type, status, pages, records, error, annotated_filename, created_at, completed_at`

// Create inserts a new job row. A zero ID or CreatedAt is filled in.
func (r *PGXJobsRepository) Create(ctx context.Context, job *entity.Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	pages, records, err := encodeJobPayload(job)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
        INSERT INTO advice_jobs (id, original_filename, stored_filename, content_type, status, pages, records, error, annotated_filename, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `, job.ID, job.OriginalFilename, job.StoredFilename, job.ContentType, job.Status, pages, records, job.Error, job.AnnotatedFilename, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Update persists the mutable fields of a job.
func (r *PGXJobsRepository) Update(ctx context.Context, job *entity.Job) error {
	pages, records, err := encodeJobPayload(job)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
        UPDATE advice_jobs
        SET status = $2, pages = $3, records = $4, error = $5, annotated_filename = $6, completed_at = $7
        WHERE id = $1
    `, job.ID, job.Status, pages, records, job.Error, job.AnnotatedFilename, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// Get fetches a job by identifier.
func (r *PGXJobsRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM advice_jobs WHERE id = $1`, id)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("query job: %w", err)
	}
	return job, nil
}

// ListRecent returns the newest jobs first.
func (r *PGXJobsRepository) ListRecent(ctx context.Context, limit int) ([]entity.Job, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `SELECT `+jobColumns+` FROM advice_jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []entity.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

func scanJob(row pgx.Row) (*entity.Job, error) {
	var (
		job       entity.Job
		pages     []byte
		records   []byte
		completed pgtype.Timestamptz
	)
	if err := row.Scan(
		&job.ID,
		&job.OriginalFilename,
		&job.StoredFilename,
		&job.ContentType,
		&job.Status,
		&pages,
		&records,
		&job.Error,
		&job.AnnotatedFilename,
		&job.CreatedAt,
		&completed,
	); err != nil {
		return nil, err
	}

	if len(pages) > 0 {
		if err := json.Unmarshal(pages, &job.Pages); err != nil {
			return nil, fmt.Errorf("decode pages: %w", err)
		}
	}
	if len(records) > 0 {
		if err := json.Unmarshal(records, &job.Records); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
	}
	if completed.Valid {
		t := completed.Time
		job.CompletedAt = &t
	}
	return &job, nil
}

func encodeJobPayload(job *entity.Job) ([]byte, []byte, error) {
	pages := job.Pages
	if pages == nil {
		pages = []entity.PageInfo{}
	}
	records := job.Records
	if records == nil {
		records = []entity.Record{}
	}

	pagesJSON, err := json.Marshal(pages)
	if err != nil {
		return nil, nil, fmt.Errorf("encode pages: %w", err)
	}
	recordsJSON, err := json.Marshal(records)
	if err != nil {
		return nil, nil, fmt.Errorf("encode records: %w", err)
	}
	return pagesJSON, recordsJSON, nil
}
