package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/merchkit/studio-engine/internal/core"
	"github.com/merchkit/studio-engine/internal/domain/model"
	apperrors "github.com/merchkit/studio-engine/internal/errors"
	"github.com/merchkit/studio-engine/internal/mocks"
	"github.com/merchkit/studio-engine/internal/testutil"
)

type syncFixture struct {
	jobs    *mocks.MockJobRepository
	batches *mocks.MockBatchRepository
	api     *mocks.MockAIJobsAPI
	service *SyncService
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &syncFixture{
		jobs:    mocks.NewMockJobRepository(ctrl),
		batches: mocks.NewMockBatchRepository(ctrl),
		api:     mocks.NewMockAIJobsAPI(ctrl),
	}

	svc, err := NewSyncService(SyncServiceOptions{
		Jobs:    f.jobs,
		Batches: f.batches,
		API:     f.api,
		Retry:   NewRetryPolicy(RetryPolicyOptions{MaxAttempts: 2, BaseDelay: time.Millisecond}),
	})
	require.NoError(t, err)
	f.service = svc

	return f
}

func TestSyncService_TerminalJobIsNoOp(t *testing.T) {
	f := newSyncFixture(t)
	job := testutil.NewJob().WithStatus(model.JobStatusCompleted).Build()

	f.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
	// No API call, no write.

	got, err := f.service.Sync(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Same(t, job, got)
}

func TestSyncService_NoChangeWritesNothing(t *testing.T) {
	f := newSyncFixture(t)
	job := testutil.NewJob().WithStatus(model.JobStatusProcessing).WithProgress(50).Build()

	f.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
	f.api.EXPECT().GetJob(gomock.Any(), job.ExternalID).Return(&core.ExternalJob{
		ID:       job.ExternalID,
		Status:   core.ExternalJobRunning,
		Progress: 50,
	}, nil)

	got, err := f.service.Sync(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Same(t, job, got)
}

func TestSyncService_CompletionAppliesOutputs(t *testing.T) {
	f := newSyncFixture(t)
	batchID := "batch-1"
	job := testutil.NewJob().
		WithStatus(model.JobStatusProcessing).
		WithProgress(80).
		WithBatchID(batchID).
		Build()

	external := &core.ExternalJob{
		ID:           job.ExternalID,
		Status:       core.ExternalJobSucceeded,
		Progress:     100,
		OutputURL:    "https://cdn.example.com/out.png",
		ThumbnailURL: "https://cdn.example.com/out-thumb.png",
		CreditsUsed:  2,
		ProcessingMS: 4300,
	}

	completed := testutil.NewJob().
		WithID(job.ID).
		WithStatus(model.JobStatusCompleted).
		WithProgress(100).
		WithBatchID(batchID).
		Build()

	f.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
	f.api.EXPECT().GetJob(gomock.Any(), job.ExternalID).Return(external, nil)
	f.jobs.EXPECT().
		Update(gomock.Any(), job.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, update model.JobUpdate) (*model.Job, error) {
			require.NotNil(t, update.Status)
			assert.Equal(t, model.JobStatusCompleted, *update.Status)
			require.NotNil(t, update.OutputURL)
			assert.Equal(t, external.OutputURL, *update.OutputURL)
			require.NotNil(t, update.ThumbnailURL)
			require.NotNil(t, update.ProcessingMS)
			assert.Equal(t, int64(4300), *update.ProcessingMS)
			require.NotNil(t, update.CreditsUsed)
			assert.Equal(t, 2, *update.CreditsUsed)
			return completed, nil
		})
	f.batches.EXPECT().RefreshCounts(gomock.Any(), batchID).Return(&model.Batch{ID: batchID}, nil)

	got, err := f.service.Sync(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
}

func TestSyncService_FailureCarriesMessage(t *testing.T) {
	f := newSyncFixture(t)
	job := testutil.NewJob().WithStatus(model.JobStatusProcessing).Build()

	f.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
	f.api.EXPECT().GetJob(gomock.Any(), job.ExternalID).Return(&core.ExternalJob{
		Status: core.ExternalJobError,
		Error:  "tool crashed",
	}, nil)

	failed := testutil.NewJob().
		WithID(job.ID).
		WithStatus(model.JobStatusFailed).
		WithErrorMessage("tool crashed").
		Build()

	f.jobs.EXPECT().
		Update(gomock.Any(), job.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, update model.JobUpdate) (*model.Job, error) {
			require.NotNil(t, update.ErrorMessage)
			assert.Equal(t, "tool crashed", *update.ErrorMessage)
			return failed, nil
		})

	got, err := f.service.Sync(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
}

func TestSyncService_ProgressNeverRewinds(t *testing.T) {
	job := testutil.NewJob().WithStatus(model.JobStatusProcessing).WithProgress(70).Build()

	update, changed, err := buildSyncUpdate(job, &core.ExternalJob{
		Status:   core.ExternalJobRunning,
		Progress: 40, // stale snapshot
	})

	require.NoError(t, err)
	assert.False(t, changed, "a stale snapshot observes no change")
	require.NotNil(t, update.Progress)
	assert.Equal(t, 70, *update.Progress)
}

func TestSyncService_UnknownExternalStatus(t *testing.T) {
	job := testutil.NewJob().WithStatus(model.JobStatusProcessing).Build()

	_, _, err := buildSyncUpdate(job, &core.ExternalJob{Status: "paused"})

	require.Error(t, err)
	assert.True(t, apperrors.IsInternal(err))
	assert.Contains(t, err.Error(), "unknown status")
}

func TestSyncService_TransientFetchFailureLeavesJobUntouched(t *testing.T) {
	f := newSyncFixture(t)
	job := testutil.NewJob().WithStatus(model.JobStatusPending).Build()

	f.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
	f.api.EXPECT().
		GetJob(gomock.Any(), job.ExternalID).
		Return(nil, apperrors.Unavailable("job service 503")).
		Times(2) // retry policy exhausts both attempts

	_, err := f.service.Sync(context.Background(), job.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err), "classification survives wrapping")
}

func TestSyncService_BulkSyncIsolatesFailures(t *testing.T) {
	f := newSyncFixture(t)

	// Five jobs, one of which fails its external lookup.
	ids := []string{"job-1", "job-2", "job-3", "job-4", "job-5"}
	for _, id := range ids {
		job := testutil.NewJob().
			WithID(id).
			WithExternalID("ext-" + id).
			WithStatus(model.JobStatusProcessing).
			WithProgress(50).
			Build()
		f.jobs.EXPECT().GetByID(gomock.Any(), id).Return(job, nil)

		if id == "job-3" {
			f.api.EXPECT().
				GetJob(gomock.Any(), "ext-"+id).
				Return(nil, apperrors.Validation("job service rejected request")).
				Times(1) // permanent, not retried
			continue
		}
		f.api.EXPECT().GetJob(gomock.Any(), "ext-"+id).Return(&core.ExternalJob{
			Status:   core.ExternalJobRunning,
			Progress: 50,
		}, nil)
	}

	outcomes := f.service.BulkSync(context.Background(), ids)

	require.Len(t, outcomes, 5)
	for i, outcome := range outcomes {
		assert.Equal(t, ids[i], outcome.JobID, "outcomes keep input order")
		if outcome.JobID == "job-3" {
			assert.True(t, apperrors.IsValidation(outcome.Err))
			continue
		}
		require.NoError(t, outcome.Err)
		assert.NotNil(t, outcome.Job)
	}
}

func TestSyncService_RetryRedispatches(t *testing.T) {
	f := newSyncFixture(t)
	job := testutil.NewJob().
		WithStatus(model.JobStatusFailed).
		WithErrorMessage("tool crashed").
		Build()

	f.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
	f.api.EXPECT().
		Submit(gomock.Any(), core.SubmitJobParams{
			ToolID:   job.ToolID,
			InputURL: job.InputURL,
			Priority: job.Priority,
			Params:   job.Params,
			Metadata: job.Metadata,
		}).
		Return("ext-fresh-1", nil)

	retried := testutil.NewJob().
		WithID(job.ID).
		WithExternalID("ext-fresh-1").
		WithStatus(model.JobStatusPending).
		Build()

	f.jobs.EXPECT().
		Update(gomock.Any(), job.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, update model.JobUpdate) (*model.Job, error) {
			require.NotNil(t, update.NewExternalID)
			assert.Equal(t, "ext-fresh-1", *update.NewExternalID)
			require.NotNil(t, update.Status)
			assert.Equal(t, model.JobStatusPending, *update.Status)
			assert.True(t, update.ClearError)
			return retried, nil
		})

	got, err := f.service.Retry(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, "ext-fresh-1", got.ExternalID)
}

func TestSyncService_RetryRejectsNonFailedJob(t *testing.T) {
	f := newSyncFixture(t)
	job := testutil.NewJob().WithStatus(model.JobStatusProcessing).Build()

	f.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
	// No Submit: the guard fires before any network work.

	_, err := f.service.Retry(context.Background(), job.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFailed(err))
}

func TestSyncService_RetryRefreshesBatch(t *testing.T) {
	f := newSyncFixture(t)
	batchID := "batch-7"
	job := testutil.NewJob().WithStatus(model.JobStatusFailed).WithBatchID(batchID).Build()
	retried := testutil.NewJob().
		WithID(job.ID).
		WithStatus(model.JobStatusPending).
		WithBatchID(batchID).
		Build()

	f.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
	f.api.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("ext-fresh-2", nil)
	f.jobs.EXPECT().Update(gomock.Any(), job.ID, gomock.Any()).Return(retried, nil)
	f.batches.EXPECT().RefreshCounts(gomock.Any(), batchID).Return(&model.Batch{ID: batchID}, nil)

	_, err := f.service.Retry(context.Background(), job.ID)
	require.NoError(t, err)
}

func TestSyncService_CancelIsBestEffort(t *testing.T) {
	f := newSyncFixture(t)
	job := testutil.NewJob().WithStatus(model.JobStatusProcessing).Build()
	cancelled := testutil.NewJob().WithID(job.ID).WithStatus(model.JobStatusCancelled).Build()

	f.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
	// External cancel fails; the local record still goes terminal.
	f.api.EXPECT().Cancel(gomock.Any(), job.ExternalID).Return(apperrors.Unavailable("job service 503"))
	f.jobs.EXPECT().
		Update(gomock.Any(), job.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, update model.JobUpdate) (*model.Job, error) {
			require.NotNil(t, update.Status)
			assert.Equal(t, model.JobStatusCancelled, *update.Status)
			return cancelled, nil
		})

	got, err := f.service.Cancel(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, got.Status)
}

func TestSyncService_CancelRejectsTerminalJob(t *testing.T) {
	f := newSyncFixture(t)
	job := testutil.NewJob().WithStatus(model.JobStatusCompleted).Build()

	f.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)

	_, err := f.service.Cancel(context.Background(), job.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}
