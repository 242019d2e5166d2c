package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchkit/studio-engine/internal/domain/model"
	apperrors "github.com/merchkit/studio-engine/internal/errors"
	"github.com/merchkit/studio-engine/internal/testutil"
)

func TestBatchRepo_CreateAndGet(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewBatchRepo(db, BatchRepoConfig{})

		batch, err := repo.Create(ctx, testutil.NewBatchRequest().WithTotalJobs(3).Build())
		require.NoError(t, err)
		require.NotEmpty(t, batch.ID)
		assert.Equal(t, model.BatchStatusPending, batch.Status)
		assert.Equal(t, 3, batch.TotalJobs)
		assert.Zero(t, batch.CompletedJobs)
		assert.Zero(t, batch.FailedJobs)

		got, err := repo.GetByID(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, batch.ID, got.ID)

		_, err = repo.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestBatchRepo_CreateValidation(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewBatchRepo(db, BatchRepoConfig{})

		_, err := repo.Create(context.Background(), &model.CreateBatchRequest{ToolID: "t", TotalJobs: 1})
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestBatchRepo_List(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewBatchRepo(db, BatchRepoConfig{})

		for i := 0; i < 3; i++ {
			_, err := repo.Create(ctx, testutil.NewBatchRequest().WithShopID("shop-batches").Build())
			require.NoError(t, err)
		}
		_, err := repo.Create(ctx, testutil.NewBatchRequest().WithShopID("shop-other").Build())
		require.NoError(t, err)

		batches, err := repo.List(ctx, "shop-batches", 10, 0)
		require.NoError(t, err)
		assert.Len(t, batches, 3)

		paged, err := repo.List(ctx, "shop-batches", 2, 2)
		require.NoError(t, err)
		assert.Len(t, paged, 1)
	})
}

func TestBatchRepo_RefreshCounts(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		batches := NewBatchRepo(db, BatchRepoConfig{})
		jobs := NewJobRepo(db, JobRepoConfig{})

		batch, err := batches.Create(ctx, testutil.NewBatchRequest().WithTotalJobs(3).Build())
		require.NoError(t, err)

		addMember := func(status model.JobStatus, credits int) {
			t.Helper()
			job, createErr := jobs.Create(ctx, testutil.NewJobRequest().WithBatchID(batch.ID).Build())
			require.NoError(t, createErr)
			if status == model.JobStatusPending {
				return
			}
			update := model.JobUpdate{Status: &status}
			if credits > 0 {
				update.CreditsUsed = &credits
			}
			_, updateErr := jobs.Update(ctx, job.ID, update)
			require.NoError(t, updateErr)
		}

		addMember(model.JobStatusCompleted, 2)
		addMember(model.JobStatusProcessing, 0)
		addMember(model.JobStatusFailed, 0)

		refreshed, err := batches.RefreshCounts(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, refreshed.TotalJobs)
		assert.Equal(t, 1, refreshed.CompletedJobs)
		assert.Equal(t, 1, refreshed.FailedJobs)
		assert.Equal(t, 2, refreshed.CreditsUsed)
		assert.Equal(t, model.BatchStatusPending, refreshed.Status, "batch stays pending until every job is terminal")

		// Finish the remaining job and refresh again.
		active, err := jobs.List(ctx, model.JobListOptions{ShopID: "shop-1", BatchID: &batch.ID})
		require.NoError(t, err)
		for _, job := range active {
			if job.Status == model.JobStatusProcessing {
				_, err = jobs.Update(ctx, job.ID, model.JobUpdate{Status: statusPtr(model.JobStatusFailed)})
				require.NoError(t, err)
			}
		}

		final, err := batches.RefreshCounts(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, model.BatchStatusPartiallyFailed, final.Status)
		assert.Equal(t, 2, final.FailedJobs)
	})
}

func TestBatchRepo_RefreshCountsMissingBatch(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewBatchRepo(db, BatchRepoConfig{})

		_, err := repo.RefreshCounts(context.Background(), "00000000-0000-0000-0000-000000000000")
		assert.True(t, apperrors.IsNotFound(err))
	})
}
