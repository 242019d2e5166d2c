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

func TestJobRepo_CreateAndGet(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewJobRepo(db, JobRepoConfig{})

		req := testutil.NewJobRequest().
			WithShopID("shop-1").
			WithToolID("tool-upscale").
			WithPriority(model.JobPriorityHigh).
			Build()

		job, err := repo.Create(ctx, req)
		require.NoError(t, err)
		require.NotEmpty(t, job.ID)
		assert.Equal(t, model.JobStatusPending, job.Status)
		assert.Equal(t, model.JobPriorityHigh, job.Priority)
		assert.Zero(t, job.Progress)
		assert.False(t, job.Delivered)
		assert.NotZero(t, job.CreatedAt)

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ExternalID, got.ExternalID)

		byExt, err := repo.GetByExternalID(ctx, job.ExternalID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, byExt.ID)

		_, err = repo.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestJobRepo_CreateDuplicateExternalID(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewJobRepo(db, JobRepoConfig{})

		req := testutil.NewJobRequest().WithExternalID("ext-dup-1").Build()
		_, err := repo.Create(ctx, req)
		require.NoError(t, err)

		dup := testutil.NewJobRequest().WithExternalID("ext-dup-1").Build()
		_, err = repo.Create(ctx, dup)
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err), "duplicate external id should conflict, got %v", err)
	})
}

func TestJobRepo_UpdateLifecycle(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewJobRepo(db, JobRepoConfig{})

		job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		processing, err := repo.Update(ctx, job.ID, model.JobUpdate{
			Status:   statusPtr(model.JobStatusProcessing),
			Progress: intPtr(30),
		})
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusProcessing, processing.Status)
		assert.Equal(t, 30, processing.Progress)
		require.NotNil(t, processing.StartedAt)

		completed, err := repo.Update(ctx, job.ID, model.JobUpdate{
			Status:      statusPtr(model.JobStatusCompleted),
			OutputURL:   strPtr("https://cdn.example.com/out.png"),
			CreditsUsed: intPtr(2),
		})
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusCompleted, completed.Status)
		assert.Equal(t, 100, completed.Progress)
		require.NotNil(t, completed.CompletedAt)
		require.NotNil(t, completed.OutputURL)

		// Terminal jobs reject further transitions.
		_, err = repo.Update(ctx, job.ID, model.JobUpdate{
			Status: statusPtr(model.JobStatusProcessing),
		})
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestJobRepo_UpdateRetryTransition(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewJobRepo(db, JobRepoConfig{})

		job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		_, err = repo.Update(ctx, job.ID, model.JobUpdate{
			Status:       statusPtr(model.JobStatusFailed),
			ErrorMessage: strPtr("tool crashed"),
		})
		require.NoError(t, err)

		retried, err := repo.Update(ctx, job.ID, model.JobUpdate{
			Status:        statusPtr(model.JobStatusPending),
			NewExternalID: strPtr(testutil.NextExternalID()),
			ClearError:    true,
		})
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusPending, retried.Status)
		assert.NotEqual(t, job.ExternalID, retried.ExternalID)
		assert.Nil(t, retried.ErrorMessage)
		assert.Nil(t, retried.CompletedAt)
	})
}

func TestJobRepo_ListFilters(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewJobRepo(db, JobRepoConfig{})

		first, err := repo.Create(ctx, testutil.NewJobRequest().WithShopID("shop-list").WithToolID("tool-a").Build())
		require.NoError(t, err)
		second, err := repo.Create(ctx, testutil.NewJobRequest().WithShopID("shop-list").WithToolID("tool-b").Build())
		require.NoError(t, err)
		_, err = repo.Create(ctx, testutil.NewJobRequest().WithShopID("shop-other").Build())
		require.NoError(t, err)

		_, err = repo.Update(ctx, second.ID, model.JobUpdate{Status: statusPtr(model.JobStatusProcessing)})
		require.NoError(t, err)

		all, err := repo.List(ctx, model.JobListOptions{ShopID: "shop-list"})
		require.NoError(t, err)
		require.Len(t, all, 2)

		pending := model.JobStatusPending
		byStatus, err := repo.List(ctx, model.JobListOptions{ShopID: "shop-list", Status: &pending})
		require.NoError(t, err)
		require.Len(t, byStatus, 1)
		assert.Equal(t, first.ID, byStatus[0].ID)

		toolB := "tool-b"
		byTool, err := repo.List(ctx, model.JobListOptions{ShopID: "shop-list", ToolID: &toolB})
		require.NoError(t, err)
		require.Len(t, byTool, 1)
		assert.Equal(t, second.ID, byTool[0].ID)

		_, err = repo.List(ctx, model.JobListOptions{})
		assert.True(t, apperrors.IsValidation(err), "missing shop id should be rejected")
	})
}

func TestJobRepo_ListActiveIDs(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewJobRepo(db, JobRepoConfig{})

		pending, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		processing, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)
		_, err = repo.Update(ctx, processing.ID, model.JobUpdate{Status: statusPtr(model.JobStatusProcessing)})
		require.NoError(t, err)

		done, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)
		_, err = repo.Update(ctx, done.ID, model.JobUpdate{Status: statusPtr(model.JobStatusCompleted)})
		require.NoError(t, err)

		ids, err := repo.ListActiveIDs(ctx, 10)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{pending.ID, processing.ID}, ids)
	})
}

func TestJobRepo_Stats(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewJobRepo(db, JobRepoConfig{})

		shopID := "shop-stats"
		mkJob := func(status model.JobStatus, credits int) {
			t.Helper()
			job, err := repo.Create(ctx, testutil.NewJobRequest().WithShopID(shopID).Build())
			require.NoError(t, err)
			if status == model.JobStatusPending {
				return
			}
			update := model.JobUpdate{Status: &status}
			if credits > 0 {
				update.CreditsUsed = &credits
			}
			_, err = repo.Update(ctx, job.ID, update)
			require.NoError(t, err)
		}

		mkJob(model.JobStatusPending, 0)
		mkJob(model.JobStatusCompleted, 2)
		mkJob(model.JobStatusCompleted, 3)
		mkJob(model.JobStatusFailed, 0)
		mkJob(model.JobStatusCancelled, 0)

		stats, err := repo.Stats(ctx, shopID)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Pending)
		assert.Equal(t, 2, stats.Completed)
		assert.Equal(t, 1, stats.Failed)
		assert.Equal(t, 1, stats.Cancelled)
		assert.Equal(t, 5, stats.Total)
		assert.Equal(t, 5, stats.CreditsUsed)
		assert.InDelta(t, 2.0/3.0, stats.SuccessRate, 1e-9)
	})
}
