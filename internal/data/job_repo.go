package data

import (
	"database/sql"
	"log/slog"
)

// JobRepoConfig holds configuration options for the job repository.
type JobRepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// JobRepo provides database operations for job records. It owns every state
// transition: all other components read a job and request an update, never
// mutating persisted state in place.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobRepo creates a new JobRepo instance with the given database connection and
// configuration.
func NewJobRepo(db *sql.DB, cfg JobRepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}

	return &JobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const jobColumns = `
  id,
  external_id,
  shop_id,
  tool_id,
  tool_name,
  status,
  priority,
  progress,
  credits_used,
  input_url,
  output_url,
  thumbnail_url,
  processing_ms,
  product_id,
  delivered,
  delivered_at,
  error_message,
  batch_id,
  params,
  metadata,
  started_at,
  completed_at,
  created_at,
  updated_at
`
