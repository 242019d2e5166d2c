package data

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/merchkit/studio-engine/internal/data/pgxutil"
	"github.com/merchkit/studio-engine/internal/domain/model"
	apperrors "github.com/merchkit/studio-engine/internal/errors"
)

// GetByID returns the job with the given local id.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	if id == "" {
		return nil, apperrors.Validation("job id is required")
	}
	return r.getBy(ctx, `WHERE id = $1`, id)
}

// GetByExternalID returns the job tracked under the given externally-assigned id.
func (r *JobRepo) GetByExternalID(ctx context.Context, externalID string) (*model.Job, error) {
	if externalID == "" {
		return nil, apperrors.Validation("external id is required")
	}
	return r.getBy(ctx, `WHERE external_id = $1`, externalID)
}

func (r *JobRepo) getBy(ctx context.Context, where string, arg any) (*model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs ` + where

	var job *model.Job
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, arg)
		if err != nil {
			return fmt.Errorf("query job: %w", err)
		}
		job, err = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Job])
		if err != nil {
			return fmt.Errorf("collect job: %w", err)
		}
		return nil
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return job, nil
}

// jobFilterQueryBuilder accumulates WHERE clauses with positional args.
type jobFilterQueryBuilder struct {
	query  string
	args   []any
	argIdx int
}

func (b *jobFilterQueryBuilder) add(clauseFmt string, value any) {
	b.query += fmt.Sprintf(" AND "+clauseFmt, b.argIdx)
	b.args = append(b.args, value)
	b.argIdx++
}

func buildJobListQuery(opts model.JobListOptions) (string, []any) {
	b := &jobFilterQueryBuilder{
		query:  `SELECT ` + jobColumns + ` FROM jobs WHERE shop_id = $1`,
		args:   []any{opts.ShopID},
		argIdx: 2,
	}

	if opts.Status != nil && *opts.Status != "" {
		b.add("status = $%d", *opts.Status)
	}
	if opts.ToolID != nil && *opts.ToolID != "" {
		b.add("tool_id = $%d", *opts.ToolID)
	}
	if opts.ProductID != nil && *opts.ProductID != "" {
		b.add("product_id = $%d", *opts.ProductID)
	}
	if opts.BatchID != nil && *opts.BatchID != "" {
		b.add("batch_id = $%d", *opts.BatchID)
	}
	if opts.CreatedAfter != nil {
		b.add("created_at >= $%d", *opts.CreatedAfter)
	}
	if opts.CreatedBefore != nil {
		b.add("created_at <= $%d", *opts.CreatedBefore)
	}

	b.query += fmt.Sprintf(`
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, b.argIdx, b.argIdx+1)

	return b.query, b.args
}

// List returns jobs matching the filter set, most-recent-first.
func (r *JobRepo) List(ctx context.Context, opts model.JobListOptions) ([]*model.Job, error) {
	if opts.ShopID == "" {
		return nil, apperrors.Validation("shop id is required")
	}
	if opts.Limit <= 0 {
		opts.Limit = 50 // Default limit
	}
	if opts.Limit > 1000 {
		opts.Limit = 1000 // Max limit
	}
	offset := max(opts.Offset, 0)

	query, args := buildJobListQuery(opts)
	args = append(args, opts.Limit, offset)

	var result []*model.Job
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query jobs: %w", err)
		}
		defer rows.Close()

		vals, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Job])
		if err != nil {
			return fmt.Errorf("collect jobs: %w", err)
		}
		result = vals
		return nil
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	return result, nil
}

// ListActiveIDs returns ids of jobs that may still change at the AI service,
// oldest update first, so the least recently synchronized jobs go first.
func (r *JobRepo) ListActiveIDs(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id FROM jobs
		WHERE status IN ('pending', 'processing')
		ORDER BY updated_at ASC
		LIMIT $1
	`

	var ids []string
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, limit)
		if err != nil {
			return fmt.Errorf("query active jobs: %w", err)
		}
		defer rows.Close()

		vals, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("collect active job ids: %w", err)
		}
		ids = vals
		return nil
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return ids, nil
}

// Stats computes per-status counts, total credits consumed, and the success rate
// over one shop's jobs. Counts are computed fresh from the current job set on
// every call and are never cached.
func (r *JobRepo) Stats(ctx context.Context, shopID string) (*model.JobStats, error) {
	if shopID == "" {
		return nil, apperrors.Validation("shop id is required")
	}

	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending')    AS pending,
			COUNT(*) FILTER (WHERE status = 'processing') AS processing,
			COUNT(*) FILTER (WHERE status = 'completed')  AS completed,
			COUNT(*) FILTER (WHERE status = 'failed')     AS failed,
			COUNT(*) FILTER (WHERE status = 'cancelled')  AS cancelled,
			COUNT(*)                                      AS total,
			COALESCE(SUM(credits_used), 0)                AS credits_used
		FROM jobs
		WHERE shop_id = $1
	`

	stats := &model.JobStats{}
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, query, shopID).Scan(
			&stats.Pending,
			&stats.Processing,
			&stats.Completed,
			&stats.Failed,
			&stats.Cancelled,
			&stats.Total,
			&stats.CreditsUsed,
		)
	}); err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("query job stats: %w", err))
	}

	if terminal := stats.Completed + stats.Failed; terminal > 0 {
		stats.SuccessRate = float64(stats.Completed) / float64(terminal)
	}
	return stats, nil
}
