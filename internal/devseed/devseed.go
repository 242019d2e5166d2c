// Package devseed populates a development database with representative jobs
// and batches so the admin CLI and sync runner have data to work against.
// It is never wired into the service runtime.
package devseed

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/merchkit/studio-engine/internal/data"
	"github.com/merchkit/studio-engine/internal/domain/model"
	apperrors "github.com/merchkit/studio-engine/internal/errors"
)

// DemoShopID is the shop all seeded records belong to.
const DemoShopID = "shop-demo"

// sentinelExternalID marks a previously seeded database.
const sentinelExternalID = "seed-demo-0001"

// Seeder creates demo records through the same repositories the engine uses,
// so every seeded row passes the normal validation and state machine rules.
type Seeder struct {
	jobs    *data.JobRepo
	batches *data.BatchRepo
	logger  *slog.Logger
}

// NewSeeder wires a Seeder against the given database handle.
func NewSeeder(db *sql.DB, logger *slog.Logger) *Seeder {
	return &Seeder{
		jobs:    data.NewJobRepo(db, data.JobRepoConfig{Logger: logger}),
		batches: data.NewBatchRepo(db, data.BatchRepoConfig{Logger: logger}),
		logger:  logger,
	}
}

// Run seeds the demo shop. Running against an already seeded database is a no-op.
func (s *Seeder) Run(ctx context.Context) error {
	if _, err := s.jobs.GetByExternalID(ctx, sentinelExternalID); err == nil {
		if s.logger != nil {
			s.logger.InfoContext(ctx, "database already seeded, skipping")
		}
		return nil
	} else if !apperrors.IsNotFound(err) {
		return fmt.Errorf("check seed sentinel: %w", err)
	}

	if err := s.seedStandaloneJobs(ctx); err != nil {
		return err
	}
	if err := s.seedBatch(ctx); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "development seed complete", "shop_id", DemoShopID)
	}
	return nil
}

func (s *Seeder) seedStandaloneJobs(ctx context.Context) error {
	// Completed upscale with a deliverable output. The sentinel external id
	// doubles as the idempotency marker for the whole seed.
	completed, err := s.jobs.Create(ctx, &model.CreateJobRequest{
		ExternalID: sentinelExternalID,
		ShopID:     DemoShopID,
		ToolID:     "tool-upscale",
		ToolName:   "Upscale",
		InputURL:   "https://cdn.example.com/demo/hero.jpg",
		Priority:   model.JobPriorityHigh,
		ProductID:  ptr("prod-1001"),
		Params:     json.RawMessage(`{"scale": 2}`),
	})
	if err != nil {
		return fmt.Errorf("seed completed job: %w", err)
	}
	if _, err = s.jobs.Update(ctx, completed.ID, model.JobUpdate{
		Status:       ptr(model.JobStatusCompleted),
		Progress:     ptr(100),
		OutputURL:    ptr("https://cdn.example.com/demo/hero-2x.jpg"),
		ThumbnailURL: ptr("https://cdn.example.com/demo/hero-2x-thumb.jpg"),
		ProcessingMS: ptr(int64(5300)),
		CreditsUsed:  ptr(2),
	}); err != nil {
		return fmt.Errorf("complete seeded job: %w", err)
	}

	// In-flight background removal, picked up by the sync runner.
	processing, err := s.jobs.Create(ctx, &model.CreateJobRequest{
		ExternalID: "seed-demo-0002",
		ShopID:     DemoShopID,
		ToolID:     "tool-bg-remove",
		ToolName:   "Background Removal",
		InputURL:   "https://cdn.example.com/demo/catalog-3.jpg",
	})
	if err != nil {
		return fmt.Errorf("seed processing job: %w", err)
	}
	if _, err = s.jobs.Update(ctx, processing.ID, model.JobUpdate{
		Status:   ptr(model.JobStatusProcessing),
		Progress: ptr(40),
	}); err != nil {
		return fmt.Errorf("advance seeded job: %w", err)
	}

	// Failed job, eligible for the retry transition.
	failed, err := s.jobs.Create(ctx, &model.CreateJobRequest{
		ExternalID: "seed-demo-0003",
		ShopID:     DemoShopID,
		ToolID:     "tool-upscale",
		ToolName:   "Upscale",
		InputURL:   "https://cdn.example.com/demo/broken.jpg",
		Priority:   model.JobPriorityLow,
	})
	if err != nil {
		return fmt.Errorf("seed failed job: %w", err)
	}
	if _, err = s.jobs.Update(ctx, failed.ID, model.JobUpdate{
		Status:       ptr(model.JobStatusFailed),
		ErrorMessage: ptr("source image could not be decoded"),
	}); err != nil {
		return fmt.Errorf("fail seeded job: %w", err)
	}

	return nil
}

// seedBatch creates a three-member batch with one job in each of completed,
// processing, and failed so partial-failure accounting is visible immediately.
func (s *Seeder) seedBatch(ctx context.Context) error {
	batch, err := s.batches.Create(ctx, &model.CreateBatchRequest{
		ShopID:    DemoShopID,
		ToolID:    "tool-bg-remove",
		TotalJobs: 3,
	})
	if err != nil {
		return fmt.Errorf("seed batch: %w", err)
	}

	members := []struct {
		externalID string
		update     model.JobUpdate
	}{
		{
			externalID: "seed-demo-batch-1",
			update: model.JobUpdate{
				Status:      ptr(model.JobStatusCompleted),
				Progress:    ptr(100),
				OutputURL:   ptr("https://cdn.example.com/demo/batch-1-out.png"),
				CreditsUsed: ptr(1),
			},
		},
		{
			externalID: "seed-demo-batch-2",
			update: model.JobUpdate{
				Status:   ptr(model.JobStatusProcessing),
				Progress: ptr(75),
			},
		},
		{
			externalID: "seed-demo-batch-3",
			update: model.JobUpdate{
				Status:       ptr(model.JobStatusFailed),
				ErrorMessage: ptr("upstream tool timed out"),
			},
		},
	}

	for i, member := range members {
		job, createErr := s.jobs.Create(ctx, &model.CreateJobRequest{
			ExternalID: member.externalID,
			ShopID:     DemoShopID,
			ToolID:     "tool-bg-remove",
			ToolName:   "Background Removal",
			InputURL:   fmt.Sprintf("https://cdn.example.com/demo/batch-%d.jpg", i+1),
			BatchID:    &batch.ID,
		})
		if createErr != nil {
			return fmt.Errorf("seed batch member %d: %w", i+1, createErr)
		}
		if _, updateErr := s.jobs.Update(ctx, job.ID, member.update); updateErr != nil {
			return fmt.Errorf("advance batch member %d: %w", i+1, updateErr)
		}
	}

	if _, err = s.batches.RefreshCounts(ctx, batch.ID); err != nil {
		return fmt.Errorf("refresh seeded batch counts: %w", err)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
