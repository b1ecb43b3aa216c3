package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/payadvice/internal/entity"
)

var jobRowColumns = []string{
	"id", "original_filename", "stored_filename", "content_type", "status",
	"pages", "records", "error", "annotated_filename", "created_at", "completed_at",
}

func TestPGXJobsRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	job := &entity.Job{
		ID:               uuid.New(),
		OriginalFilename: "advice.pdf",
		StoredFilename:   "0123_advice.pdf",
		ContentType:      "application/pdf",
		Status:           entity.JobStatusProcessing,
		CreatedAt:        created,
	}

	mock.ExpectExec(`INSERT INTO advice_jobs`).
		WithArgs(job.ID, "advice.pdf", "0123_advice.pdf", "application/pdf", entity.JobStatusProcessing,
			[]byte(`[]`), []byte(`[]`), "", "", created).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewPGXJobsRepository(mock)
	require.NoError(t, repo.Create(context.Background(), job))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGXJobsRepository_CreateAssignsIdentity(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO advice_jobs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	job := &entity.Job{OriginalFilename: "a.png", StoredFilename: "x_a.png", Status: entity.JobStatusProcessing}
	require.NoError(t, NewPGXJobsRepository(mock).Create(context.Background(), job))
	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.False(t, job.CreatedAt.IsZero())
}

func TestPGXJobsRepository_UpdateNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE advice_jobs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = NewPGXJobsRepository(mock).Update(context.Background(), &entity.Job{ID: uuid.New(), Status: entity.JobStatusFailed})
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGXJobsRepository_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	job := &entity.Job{
		ID:     uuid.New(),
		Status: entity.JobStatusCompleted,
		Pages:  []entity.PageInfo{{PageNumber: 1, Invoice: "INV-1"}},
	}
	mock.ExpectExec(`UPDATE advice_jobs`).
		WithArgs(job.ID, entity.JobStatusCompleted, pgxmock.AnyArg(), []byte(`[]`), "", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, NewPGXJobsRepository(mock).Update(context.Background(), job))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGXJobsRepository_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	done := created.Add(time.Minute)
	pages := []byte(`[{"page_number":1,"invoice":"INV-1","amount":"100.00"}]`)
	records := []byte(`[{"Invoice No.":"INV-1","_source_invoice":"INV-1","_record_index":1}]`)

	mock.ExpectQuery(`SELECT .+ FROM advice_jobs WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(jobRowColumns).AddRow(
			id, "advice.pdf", "s_advice.pdf", "application/pdf", entity.JobStatusCompleted,
			pages, records, "", "", created, pgtype.Timestamptz{Time: done, Valid: true},
		))

	job, err := NewPGXJobsRepository(mock).Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, job.ID)
	require.Len(t, job.Pages, 1)
	assert.Equal(t, "INV-1", job.Pages[0].Invoice)
	require.Len(t, job.Records, 1)
	assert.Equal(t, "INV-1", job.Records[0].Get("Invoice No."))
	assert.Equal(t, "INV-1", job.Records[0].SourceInvoice)
	require.NotNil(t, job.CompletedAt)
	assert.True(t, job.CompletedAt.Equal(done))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGXJobsRepository_GetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery(`SELECT .+ FROM advice_jobs WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err = NewPGXJobsRepository(mock).Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestPGXJobsRepository_ListRecent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	rows := pgxmock.NewRows(jobRowColumns).
		AddRow(uuid.New(), "b.png", "s_b.png", "image/png", entity.JobStatusProcessing,
			[]byte(`[]`), []byte(`[]`), "", "", now, pgtype.Timestamptz{}).
		AddRow(uuid.New(), "a.png", "s_a.png", "image/png", entity.JobStatusFailed,
			[]byte(`[]`), []byte(`[]`), "ocr failed", "", now.Add(-time.Hour), pgtype.Timestamptz{Time: now, Valid: true})

	mock.ExpectQuery(`SELECT .+ FROM advice_jobs ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(20).
		WillReturnRows(rows)

	jobs, err := NewPGXJobsRepository(mock).ListRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "b.png", jobs[0].OriginalFilename)
	assert.Nil(t, jobs[0].CompletedAt)
	assert.Equal(t, "ocr failed", jobs[1].Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGXJobsRepository_ListRecentQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT .+ FROM advice_jobs`).
		WithArgs(5).
		WillReturnError(errors.New("connection reset"))

	_, err = NewPGXJobsRepository(mock).ListRecent(context.Background(), 5)
	assert.Error(t, err)
}
