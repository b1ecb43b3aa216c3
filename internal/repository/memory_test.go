package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/payadvice/internal/entity"
)

func TestMemoryJobsRepository_Lifecycle(t *testing.T) {
	repo := NewMemoryJobsRepository()
	ctx := context.Background()

	job := &entity.Job{OriginalFilename: "advice.png", StoredFilename: "s_advice.png", Status: entity.JobStatusProcessing}
	require.NoError(t, repo.Create(ctx, job))
	require.NotEqual(t, uuid.Nil, job.ID)

	job.Status = entity.JobStatusCompleted
	job.Pages = []entity.PageInfo{{PageNumber: 1, Invoice: "INV-9"}}
	done := time.Now().UTC()
	job.CompletedAt = &done
	require.NoError(t, repo.Update(ctx, job))

	got, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCompleted, got.Status)
	assert.Equal(t, "INV-9", got.Pages[0].Invoice)

	got.Pages[0].Invoice = "mutated"
	again, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-9", again.Pages[0].Invoice)
}

func TestMemoryJobsRepository_NotFound(t *testing.T) {
	repo := NewMemoryJobsRepository()

	_, err := repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, repo.Update(context.Background(), &entity.Job{ID: uuid.New()}), ErrJobNotFound)
}

func TestMemoryJobsRepository_ListRecent(t *testing.T) {
	repo := NewMemoryJobsRepository()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &entity.Job{
			OriginalFilename: string(rune('a' + i)),
			CreatedAt:        base.Add(time.Duration(i) * time.Hour),
		}))
	}

	jobs, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "c", jobs[0].OriginalFilename)
	assert.Equal(t, "b", jobs[1].OriginalFilename)
}
