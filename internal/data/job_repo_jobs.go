package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	apperrors "github.com/merchkit/studio-engine/internal/errors"

	"github.com/merchkit/studio-engine/internal/data/pgxutil"
	"github.com/merchkit/studio-engine/internal/domain/model"
)

// Create persists a new job in the pending state. The externally-assigned job id
// acts as an idempotency guard: a duplicate external id is rejected with a
// Conflict error and no second record is created.
func (r *JobRepo) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if req == nil {
		return nil, errors.New("create job request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid create job request")
	}

	params := req.Params
	if len(params) == 0 {
		params = []byte(`{}`)
	}
	meta := req.Metadata
	if len(meta) == 0 {
		meta = []byte(`{}`)
	}

	now := r.timeProvider.Now()
	query := `
		INSERT INTO jobs (
			id, external_id, shop_id, tool_id, tool_name, status, priority, progress,
			credits_used, input_url, product_id, batch_id, params, metadata,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, $8, $9, $10, $11, $12, $13, $13)
		RETURNING ` + jobColumns

	var job *model.Job
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query,
			uuid.NewString(),
			req.ExternalID,
			req.ShopID,
			req.ToolID,
			req.ToolName,
			model.JobStatusPending,
			req.Priority,
			req.InputURL,
			req.ProductID,
			req.BatchID,
			params,
			meta,
			now,
		)
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		job, err = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Job])
		if err != nil {
			return fmt.Errorf("collect job: %w", err)
		}
		return nil
	}); err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsConflict(mapped) {
			return nil, apperrors.Conflictf("job with external id %q is already tracked", req.ExternalID)
		}
		return nil, mapped
	}

	if r.logger != nil {
		r.logger.DebugContext(ctx, "job created",
			"id", job.ID,
			"external_id", job.ExternalID,
			"tool_id", job.ToolID,
		)
	}

	return job, nil
}

// Update applies a partial state transition to a job and returns the updated
// record. The row is locked for the duration of the transition so racing updates
// serialize; the transition rules live in applyJobUpdate.
func (r *JobRepo) Update(ctx context.Context, id string, update model.JobUpdate) (*model.Job, error) {
	if id == "" {
		return nil, apperrors.Validation("job id is required")
	}

	var updated *model.Job
	txErr := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			rows, err := tx.Query(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, id)
			if err != nil {
				return fmt.Errorf("lock job: %w", err)
			}
			job, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Job])
			if err != nil {
				return fmt.Errorf("collect job: %w", err)
			}

			if applyErr := applyJobUpdate(job, update, r.timeProvider.Now()); applyErr != nil {
				return applyErr
			}

			writeRows, err := tx.Query(ctx, `
				UPDATE jobs SET
					external_id = $2,
					status = $3,
					progress = $4,
					credits_used = $5,
					output_url = $6,
					thumbnail_url = $7,
					processing_ms = $8,
					product_id = $9,
					delivered = $10,
					delivered_at = $11,
					error_message = $12,
					started_at = $13,
					completed_at = $14,
					updated_at = $15
				WHERE id = $1
				RETURNING `+jobColumns,
				job.ID,
				job.ExternalID,
				job.Status,
				job.Progress,
				job.CreditsUsed,
				job.OutputURL,
				job.ThumbnailURL,
				job.ProcessingMS,
				job.ProductID,
				job.Delivered,
				job.DeliveredAt,
				job.ErrorMessage,
				job.StartedAt,
				job.CompletedAt,
				job.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("update job: %w", err)
			}
			updated, err = pgx.CollectOneRow(writeRows, pgx.RowToAddrOfStructByName[model.Job])
			if err != nil {
				return fmt.Errorf("collect updated job: %w", err)
			}
			return nil
		},
	})
	if txErr != nil {
		return nil, apperrors.MapDBError(txErr)
	}

	if r.logger != nil {
		r.logger.DebugContext(ctx, "job updated",
			"id", updated.ID,
			"status", updated.Status,
			"progress", updated.Progress,
		)
	}

	return updated, nil
}

// applyJobUpdate enforces the job state machine on an in-memory record.
//
// Rules:
//   - no transition out of a terminal state, except failed → pending together with
//     a new external id (the retry transition)
//   - cancelled is reachable only from pending or processing
//   - started_at is stamped on first entry to processing
//   - completed_at is stamped exactly once, on entry to a terminal state
//   - progress stays in [0,100] and never decreases while processing
//   - a successful completion forces progress to 100
//   - delivered flips to true at most once and stamps delivered_at
func applyJobUpdate(job *model.Job, update model.JobUpdate, now time.Time) error {
	prior := job.Status

	if update.NewExternalID != nil {
		if prior != model.JobStatusFailed {
			return apperrors.NotFailed("only a failed job can be re-dispatched under a new external id")
		}
		if update.Status == nil || *update.Status != model.JobStatusPending {
			return apperrors.Validation("a new external id requires a transition back to pending")
		}
		job.ExternalID = *update.NewExternalID
	}

	if update.Status != nil {
		target := *update.Status
		if !target.Valid() {
			return apperrors.Validationf("invalid job status %q", target)
		}
		if prior.Terminal() && target != prior && update.NewExternalID == nil {
			return apperrors.Validationf("no transition out of terminal state %q", prior)
		}
		if target == model.JobStatusCancelled && prior.Terminal() {
			return apperrors.Validationf("cannot cancel a job in state %q", prior)
		}

		job.Status = target
		switch {
		case target == model.JobStatusProcessing && job.StartedAt == nil:
			startedAt := now
			job.StartedAt = &startedAt
		case target.Terminal() && job.CompletedAt == nil:
			completedAt := now
			job.CompletedAt = &completedAt
		}
	}

	if update.ClearError {
		job.ErrorMessage = nil
		job.Progress = 0
		job.CompletedAt = nil
		job.StartedAt = nil
		job.OutputURL = nil
		job.ThumbnailURL = nil
	}

	if update.Progress != nil {
		p := *update.Progress
		if p < 0 || p > 100 {
			return apperrors.Validationf("progress %d out of range [0,100]", p)
		}
		// Progress converges from repeated polling; a racing stale read never
		// rewinds it while the job is processing.
		if job.Status == model.JobStatusProcessing && p < job.Progress {
			p = job.Progress
		}
		job.Progress = p
	}

	if update.OutputURL != nil {
		job.OutputURL = update.OutputURL
	}
	if update.ThumbnailURL != nil {
		job.ThumbnailURL = update.ThumbnailURL
	}
	if update.ErrorMessage != nil {
		job.ErrorMessage = update.ErrorMessage
	}
	if update.CreditsUsed != nil {
		if *update.CreditsUsed < 0 {
			return apperrors.Validation("credits_used cannot be negative")
		}
		job.CreditsUsed = *update.CreditsUsed
	}
	if update.ProcessingMS != nil {
		job.ProcessingMS = update.ProcessingMS
	}
	if update.ProductID != nil {
		job.ProductID = update.ProductID
	}
	if update.StartedAt != nil {
		job.StartedAt = update.StartedAt
	}

	if update.Delivered != nil && *update.Delivered && !job.Delivered {
		job.Delivered = true
		deliveredAt := now
		job.DeliveredAt = &deliveredAt
	}

	if job.Status == model.JobStatusCompleted {
		job.Progress = 100
	}

	job.UpdatedAt = now
	return nil
}
