package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/merchkit/studio-engine/internal/data/pgxutil"
	"github.com/merchkit/studio-engine/internal/domain/model"
	apperrors "github.com/merchkit/studio-engine/internal/errors"
)

// BatchRepo provides database operations for batch aggregates.
type BatchRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// BatchRepoConfig holds configuration options for the batch repository.
type BatchRepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// NewBatchRepo creates a new BatchRepo instance.
func NewBatchRepo(db *sql.DB, cfg BatchRepoConfig) *BatchRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &BatchRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const batchColumns = `
  id,
  shop_id,
  tool_id,
  status,
  total_jobs,
  completed_jobs,
  failed_jobs,
  credits_used,
  params,
  created_at,
  updated_at
`

// Create persists a new batch in the pending state. Batches are created before
// their jobs are dispatched so jobs can reference them.
func (r *BatchRepo) Create(ctx context.Context, req *model.CreateBatchRequest) (*model.Batch, error) {
	if req == nil {
		return nil, errors.New("create batch request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid create batch request")
	}

	params := req.Params
	if len(params) == 0 {
		params = []byte(`{}`)
	}

	now := r.timeProvider.Now()
	query := `
		INSERT INTO batches (
			id, shop_id, tool_id, status, total_jobs, completed_jobs, failed_jobs,
			credits_used, params, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, 0, 0, 0, $6, $7, $7)
		RETURNING ` + batchColumns

	var batch *model.Batch
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query,
			uuid.NewString(),
			req.ShopID,
			req.ToolID,
			model.BatchStatusPending,
			req.TotalJobs,
			params,
			now,
		)
		if err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
		batch, err = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Batch])
		if err != nil {
			return fmt.Errorf("collect batch: %w", err)
		}
		return nil
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	if r.logger != nil {
		r.logger.DebugContext(ctx, "batch created", "id", batch.ID, "total_jobs", batch.TotalJobs)
	}
	return batch, nil
}

// GetByID returns the batch with the given id.
func (r *BatchRepo) GetByID(ctx context.Context, id string) (*model.Batch, error) {
	if id == "" {
		return nil, apperrors.Validation("batch id is required")
	}

	var batch *model.Batch
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("query batch: %w", err)
		}
		batch, err = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Batch])
		if err != nil {
			return fmt.Errorf("collect batch: %w", err)
		}
		return nil
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return batch, nil
}

// List returns a shop's batches, most-recent-first.
func (r *BatchRepo) List(ctx context.Context, shopID string, limit, offset int) ([]*model.Batch, error) {
	if shopID == "" {
		return nil, apperrors.Validation("shop id is required")
	}
	if limit <= 0 {
		limit = 50 // Default limit
	}
	if limit > 1000 {
		limit = 1000 // Max limit
	}
	offset = max(offset, 0)

	query := `
		SELECT ` + batchColumns + `
		FROM batches
		WHERE shop_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	var result []*model.Batch
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, shopID, limit, offset)
		if err != nil {
			return fmt.Errorf("query batches: %w", err)
		}
		defer rows.Close()

		vals, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Batch])
		if err != nil {
			return fmt.Errorf("collect batches: %w", err)
		}
		result = vals
		return nil
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	return result, nil
}

// RefreshCounts recomputes the cached counters and aggregate status from the
// batch's constituent jobs. The cache is never trusted: every refresh sums the
// job rows inside one transaction with the batch row locked.
func (r *BatchRepo) RefreshCounts(ctx context.Context, id string) (*model.Batch, error) {
	if id == "" {
		return nil, apperrors.Validation("batch id is required")
	}

	var batch *model.Batch
	txErr := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM batches WHERE id = $1 FOR UPDATE)`, id,
			).Scan(&exists); err != nil {
				return fmt.Errorf("lock batch: %w", err)
			}
			if !exists {
				return apperrors.NotFoundf("batch %q not found", id)
			}

			var total, completed, failed, credits int
			if err := tx.QueryRow(ctx, `
				SELECT
					COUNT(*),
					COUNT(*) FILTER (WHERE status = 'completed'),
					COUNT(*) FILTER (WHERE status = 'failed'),
					COALESCE(SUM(credits_used), 0)
				FROM jobs
				WHERE batch_id = $1
			`, id).Scan(&total, &completed, &failed, &credits); err != nil {
				return fmt.Errorf("sum batch jobs: %w", err)
			}

			status := model.DeriveBatchStatus(total, completed, failed)

			rows, err := tx.Query(ctx, `
				UPDATE batches SET
					total_jobs = $2,
					completed_jobs = $3,
					failed_jobs = $4,
					credits_used = $5,
					status = $6,
					updated_at = $7
				WHERE id = $1
				RETURNING `+batchColumns,
				id, total, completed, failed, credits, status, r.timeProvider.Now(),
			)
			if err != nil {
				return fmt.Errorf("update batch counters: %w", err)
			}
			batch, err = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Batch])
			if err != nil {
				return fmt.Errorf("collect batch: %w", err)
			}
			return nil
		},
	})
	if txErr != nil {
		return nil, apperrors.MapDBError(txErr)
	}

	if r.logger != nil {
		r.logger.DebugContext(ctx, "batch counters refreshed",
			"id", batch.ID,
			"status", batch.Status,
			"completed", batch.CompletedJobs,
			"failed", batch.FailedJobs,
		)
	}
	return batch, nil
}
