package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
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

type orchestratorFixture struct {
	jobs      *mocks.MockJobRepository
	batches   *mocks.MockBatchRepository
	api       *mocks.MockAIJobsAPI
	toolCache *mocks.MockToolCache
	catalog   *mocks.MockCatalogAPI
	source    *httptest.Server
	target    *capturingTarget
	service   *Orchestrator
}

// newOrchestratorFixture serves image/png for every source path except those
// containing "gif", which lets a single fake host produce both accepted and
// rejected inputs.
func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := []byte("fake png bytes")
		contentType := "image/png"
		if strings.Contains(r.URL.Path, "gif") {
			contentType = "image/gif"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		if r.Method == http.MethodGet {
			_, _ = w.Write(payload)
		}
	}))
	t.Cleanup(source.Close)

	f := &orchestratorFixture{
		jobs:      mocks.NewMockJobRepository(ctrl),
		batches:   mocks.NewMockBatchRepository(ctrl),
		api:       mocks.NewMockAIJobsAPI(ctrl),
		toolCache: mocks.NewMockToolCache(ctrl),
		catalog:   mocks.NewMockCatalogAPI(ctrl),
		source:    source,
		target:    newCapturingTarget(t),
	}

	validator := NewImageValidator(ImageValidatorOptions{HTTPClient: source.Client()})
	retry := NewRetryPolicy(RetryPolicyOptions{MaxAttempts: 2, BaseDelay: time.Millisecond})

	uploads, err := NewUploadService(UploadServiceOptions{
		Catalog:   f.catalog,
		Validator: validator,
		Retry:     retry,
	})
	require.NoError(t, err)

	syncSvc, err := NewSyncService(SyncServiceOptions{
		Jobs:    f.jobs,
		Batches: f.batches,
		API:     f.api,
		Retry:   retry,
	})
	require.NoError(t, err)

	orch, err := NewOrchestrator(OrchestratorOptions{
		Jobs:      f.jobs,
		Batches:   f.batches,
		API:       f.api,
		ToolCache: f.toolCache,
		Validator: validator,
		Uploads:   uploads,
		Sync:      syncSvc,
	})
	require.NoError(t, err)
	f.service = orch

	return f
}

func (f *orchestratorFixture) stagedUploadTarget() *core.StagedUploadTarget {
	return &core.StagedUploadTarget{
		URL:         f.target.server.URL,
		ResourceURL: "gid://staged/1",
		Parameters:  []core.StagedUploadParam{{Name: "key", Value: "uploads/1"}},
	}
}

func TestOrchestrator_Dispatch(t *testing.T) {
	f := newOrchestratorFixture(t)
	inputURL := f.source.URL + "/input.png"

	f.toolCache.EXPECT().GetToolName(gomock.Any(), "tool-upscale").Return("Upscale", nil)
	f.api.EXPECT().
		Submit(gomock.Any(), core.SubmitJobParams{
			ToolID:   "tool-upscale",
			InputURL: inputURL,
			Priority: model.JobPriorityHigh,
		}).
		Return("ext-100", nil)

	created := testutil.NewJob().WithExternalID("ext-100").Build()
	f.jobs.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *model.CreateJobRequest) (*model.Job, error) {
			assert.Equal(t, "ext-100", req.ExternalID)
			assert.Equal(t, "shop-1", req.ShopID)
			assert.Equal(t, "tool-upscale", req.ToolID)
			assert.Equal(t, "Upscale", req.ToolName)
			assert.Equal(t, inputURL, req.InputURL)
			assert.Nil(t, req.BatchID)
			return created, nil
		})

	job, err := f.service.Dispatch(context.Background(), DispatchRequest{
		ShopID:   "shop-1",
		ToolID:   "tool-upscale",
		InputURL: inputURL,
		Priority: model.JobPriorityHigh,
	})
	require.NoError(t, err)
	assert.Equal(t, "ext-100", job.ExternalID)
}

func TestOrchestrator_DispatchRejectsBadImage(t *testing.T) {
	f := newOrchestratorFixture(t)
	// No Submit or Create expectations: a rejected image leaves no trace.

	_, err := f.service.Dispatch(context.Background(), DispatchRequest{
		ShopID:   "shop-1",
		ToolID:   "tool-upscale",
		InputURL: f.source.URL + "/animated.gif",
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "input image rejected")
}

func TestOrchestrator_DispatchSubmitFailureLeavesNoRecord(t *testing.T) {
	f := newOrchestratorFixture(t)

	f.toolCache.EXPECT().GetToolName(gomock.Any(), "tool-upscale").Return("Upscale", nil)
	f.api.EXPECT().
		Submit(gomock.Any(), gomock.Any()).
		Return("", apperrors.Unavailable("job service 503"))

	_, err := f.service.Dispatch(context.Background(), DispatchRequest{
		ShopID:   "shop-1",
		ToolID:   "tool-upscale",
		InputURL: f.source.URL + "/input.png",
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err), "classification survives wrapping")
}

func TestOrchestrator_ToolNameFallsBackToAPI(t *testing.T) {
	f := newOrchestratorFixture(t)

	f.toolCache.EXPECT().GetToolName(gomock.Any(), "tool-bg").Return("", apperrors.NotFound("cache miss"))
	f.api.EXPECT().GetTool(gomock.Any(), "tool-bg").Return(&core.Tool{ID: "tool-bg", Name: "Background Remover"}, nil)
	f.toolCache.EXPECT().SetToolName(gomock.Any(), "tool-bg", "Background Remover", toolNameTTL).Return(nil)

	f.api.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("ext-1", nil)
	f.jobs.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *model.CreateJobRequest) (*model.Job, error) {
			assert.Equal(t, "Background Remover", req.ToolName)
			return testutil.NewJob().Build(), nil
		})

	_, err := f.service.Dispatch(context.Background(), DispatchRequest{
		ShopID:   "shop-1",
		ToolID:   "tool-bg",
		InputURL: f.source.URL + "/input.png",
	})
	require.NoError(t, err)
}

func TestOrchestrator_ToolNameLookupFailureNeverBlocksDispatch(t *testing.T) {
	f := newOrchestratorFixture(t)

	f.toolCache.EXPECT().GetToolName(gomock.Any(), "tool-bg").Return("", apperrors.Unavailable("redis down"))
	f.api.EXPECT().GetTool(gomock.Any(), "tool-bg").Return(nil, apperrors.Unavailable("job service 503"))

	f.api.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("ext-1", nil)
	f.jobs.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *model.CreateJobRequest) (*model.Job, error) {
			assert.Empty(t, req.ToolName, "the display name is a projection, not a requirement")
			return testutil.NewJob().Build(), nil
		})

	_, err := f.service.Dispatch(context.Background(), DispatchRequest{
		ShopID:   "shop-1",
		ToolID:   "tool-bg",
		InputURL: f.source.URL + "/input.png",
	})
	require.NoError(t, err)
}

func TestOrchestrator_DispatchBatchIsolatesMemberFailures(t *testing.T) {
	f := newOrchestratorFixture(t)

	batch := &model.Batch{ID: "batch-1", Status: model.BatchStatusPending, TotalJobs: 3}
	f.batches.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *model.CreateBatchRequest) (*model.Batch, error) {
			assert.Equal(t, 3, req.TotalJobs)
			return batch, nil
		})

	f.toolCache.EXPECT().GetToolName(gomock.Any(), "tool-upscale").Return("Upscale", nil)

	// Only the two valid members reach the job service and the store.
	f.api.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("ext-a", nil)
	f.api.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("ext-b", nil)
	f.jobs.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *model.CreateJobRequest) (*model.Job, error) {
			require.NotNil(t, req.BatchID)
			assert.Equal(t, "batch-1", *req.BatchID)
			return testutil.NewJob().WithBatchID("batch-1").Build(), nil
		}).
		Times(2)

	refreshed := &model.Batch{ID: "batch-1", Status: model.BatchStatusPending, TotalJobs: 3}
	f.batches.EXPECT().RefreshCounts(gomock.Any(), "batch-1").Return(refreshed, nil)

	result, err := f.service.DispatchBatch(context.Background(), DispatchBatchRequest{
		ShopID: "shop-1",
		ToolID: "tool-upscale",
		Items: []DispatchBatchItem{
			{InputURL: f.source.URL + "/a.png"},
			{InputURL: f.source.URL + "/bad.gif"},
			{InputURL: f.source.URL + "/c.png"},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Jobs, 3)
	assert.NotNil(t, result.Jobs[0])
	assert.Nil(t, result.Jobs[1])
	assert.NotNil(t, result.Jobs[2])
	assert.NoError(t, result.Errs[0])
	assert.True(t, apperrors.IsValidation(result.Errs[1]))
	assert.Same(t, refreshed, result.Batch, "the caller sees the refreshed aggregate")
}

func TestOrchestrator_DispatchBatchRequiresItems(t *testing.T) {
	f := newOrchestratorFixture(t)

	_, err := f.service.DispatchBatch(context.Background(), DispatchBatchRequest{
		ShopID: "shop-1",
		ToolID: "tool-upscale",
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "items", apperrors.GetField(err))
}

func TestOrchestrator_BatchOperationsRequireRepository(t *testing.T) {
	f := newOrchestratorFixture(t)

	uploads, err := NewUploadService(UploadServiceOptions{Catalog: f.catalog})
	require.NoError(t, err)
	syncSvc, err := NewSyncService(SyncServiceOptions{Jobs: f.jobs, API: f.api})
	require.NoError(t, err)

	orch, err := NewOrchestrator(OrchestratorOptions{
		Jobs:    f.jobs,
		API:     f.api,
		Uploads: uploads,
		Sync:    syncSvc,
	})
	require.NoError(t, err)

	_, err = orch.DispatchBatch(context.Background(), DispatchBatchRequest{
		Items: []DispatchBatchItem{{InputURL: "https://example.com/a.png"}},
	})
	assert.True(t, apperrors.IsInternal(err))

	_, err = orch.GetBatch(context.Background(), "batch-1")
	assert.True(t, apperrors.IsInternal(err))
}

func TestOrchestrator_DeliverGuards(t *testing.T) {
	outputURL := "https://cdn.example.com/out.png"

	tests := []struct {
		name    string
		job     *model.Job
		req     DeliverRequest
		check   func(error) bool
		message string
		field   string
	}{
		{
			name:    "not completed",
			job:     testutil.NewJob().WithStatus(model.JobStatusProcessing).Build(),
			check:   apperrors.IsNotCompleted,
			message: "only a completed job can be delivered",
		},
		{
			name: "already delivered",
			job: testutil.NewJob().
				WithStatus(model.JobStatusCompleted).
				WithOutputURL(outputURL).
				WithDelivered().
				Build(),
			check:   apperrors.IsAlreadyDelivered,
			message: "already been delivered",
		},
		{
			name:    "no output",
			job:     testutil.NewJob().WithStatus(model.JobStatusCompleted).Build(),
			check:   apperrors.IsNotCompleted,
			message: "no output",
		},
		{
			name: "no destination product",
			job: testutil.NewJob().
				WithStatus(model.JobStatusCompleted).
				WithOutputURL(outputURL).
				Build(),
			check:   apperrors.IsValidation,
			message: "destination product",
			field:   "product_id",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newOrchestratorFixture(t)
			// No catalog expectations: guards fire before any network traffic.
			f.jobs.EXPECT().GetByID(gomock.Any(), tc.job.ID).Return(tc.job, nil)

			tc.req.JobID = tc.job.ID
			_, _, err := f.service.Deliver(context.Background(), tc.req)

			require.Error(t, err)
			assert.True(t, tc.check(err))
			assert.Contains(t, err.Error(), tc.message)
			if tc.field != "" {
				assert.Equal(t, tc.field, apperrors.GetField(err))
			}
		})
	}
}

func TestOrchestrator_DeliverMarksJobDelivered(t *testing.T) {
	f := newOrchestratorFixture(t)

	job := testutil.NewJob().
		WithStatus(model.JobStatusCompleted).
		WithOutputURL(f.source.URL + "/out.png").
		WithProductID("prod-1").
		Build()

	f.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
	f.catalog.EXPECT().StagedUploadCreate(gomock.Any(), gomock.Any()).Return(f.stagedUploadTarget(), nil)
	f.catalog.EXPECT().
		ProductMediaCreate(gomock.Any(), core.MediaAttachInput{
			ProductID:   "prod-1",
			ResourceURL: "gid://staged/1",
		}).
		Return("media-1", nil, nil)

	delivered := testutil.NewJob().
		WithID(job.ID).
		WithStatus(model.JobStatusCompleted).
		WithDelivered().
		Build()

	f.jobs.EXPECT().
		Update(gomock.Any(), job.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, update model.JobUpdate) (*model.Job, error) {
			require.NotNil(t, update.Delivered)
			assert.True(t, *update.Delivered)
			require.NotNil(t, update.ProductID)
			assert.Equal(t, "prod-1", *update.ProductID)
			return delivered, nil
		})

	updated, result, err := f.service.Deliver(context.Background(), DeliverRequest{JobID: job.ID})
	require.NoError(t, err)
	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, "media-1", result.MediaID)
	assert.True(t, updated.Delivered)
}

func TestOrchestrator_DeliverRequestOverridesProduct(t *testing.T) {
	f := newOrchestratorFixture(t)

	job := testutil.NewJob().
		WithStatus(model.JobStatusCompleted).
		WithOutputURL(f.source.URL + "/out.png").
		WithProductID("prod-recorded").
		Build()

	f.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
	f.catalog.EXPECT().StagedUploadCreate(gomock.Any(), gomock.Any()).Return(f.stagedUploadTarget(), nil)
	f.catalog.EXPECT().
		ProductMediaCreate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, input core.MediaAttachInput) (string, []core.UserError, error) {
			assert.Equal(t, "prod-override", input.ProductID)
			return "media-1", nil, nil
		})
	f.jobs.EXPECT().
		Update(gomock.Any(), job.ID, gomock.Any()).
		Return(testutil.NewJob().WithID(job.ID).WithDelivered().Build(), nil)

	_, result, err := f.service.Deliver(context.Background(), DeliverRequest{
		JobID:     job.ID,
		ProductID: "prod-override",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestOrchestrator_DeliverFailureLeavesFlagUnset(t *testing.T) {
	f := newOrchestratorFixture(t)

	job := testutil.NewJob().
		WithStatus(model.JobStatusCompleted).
		WithOutputURL(f.source.URL + "/out.png").
		WithProductID("prod-1").
		Build()

	f.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
	f.catalog.EXPECT().
		StagedUploadCreate(gomock.Any(), gomock.Any()).
		Return(nil, apperrors.Unavailable("catalog 503")).
		Times(2) // transient, retried once
	// No Update: an undelivered output stays retryable.

	got, result, err := f.service.Deliver(context.Background(), DeliverRequest{JobID: job.ID})
	require.NoError(t, err, "a failed delivery is reported in the result, not as an error")
	assert.False(t, result.Success)
	assert.False(t, got.Delivered)
}

func TestOrchestrator_DelegatesLifecycleOperations(t *testing.T) {
	f := newOrchestratorFixture(t)
	job := testutil.NewJob().WithStatus(model.JobStatusCompleted).Build()

	f.jobs.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil).Times(2)
	f.jobs.EXPECT().Stats(gomock.Any(), "shop-1").Return(&model.JobStats{Total: 4}, nil)

	got, err := f.service.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Same(t, job, got)

	// Sync of a terminal job short-circuits inside the sync service.
	synced, err := f.service.Sync(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Same(t, job, synced)

	stats, err := f.service.Stats(context.Background(), "shop-1")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
}
