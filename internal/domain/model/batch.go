package model

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// BatchStatus represents the aggregate status of a batch, derived from its
// constituent jobs.
type BatchStatus string

const (
	// BatchStatusPending indicates at least one constituent job is non-terminal.
	BatchStatusPending BatchStatus = "pending"
	// BatchStatusCompleted indicates every constituent job completed successfully.
	BatchStatusCompleted BatchStatus = "completed"
	// BatchStatusPartiallyFailed indicates some constituent jobs failed and some completed.
	BatchStatusPartiallyFailed BatchStatus = "partially_failed"
	// BatchStatusFailed indicates every constituent job failed.
	BatchStatusFailed BatchStatus = "failed"
)

// Valid returns true if the BatchStatus is valid.
func (s BatchStatus) Valid() bool {
	switch s {
	case BatchStatusPending, BatchStatusCompleted, BatchStatusPartiallyFailed, BatchStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the batch status.
func (s BatchStatus) String() string {
	return string(s)
}

// DeriveBatchStatus computes the aggregate status from job counters.
// Terminal jobs are completed + failed; the batch stays pending until every
// constituent job is terminal.
func DeriveBatchStatus(total, completed, failed int) BatchStatus {
	if total == 0 || completed+failed < total {
		return BatchStatusPending
	}
	switch {
	case failed == 0:
		return BatchStatusCompleted
	case failed == total:
		return BatchStatusFailed
	default:
		return BatchStatusPartiallyFailed
	}
}

// Batch is an aggregate of jobs sharing a tool and parameter set. Counters are
// cached for O(1) reads and refreshed only by explicit recomputation from the
// constituent jobs, never by trusting stale state.
type Batch struct {
	ID            string          `json:"id"             db:"id"`
	ShopID        string          `json:"shop_id"        db:"shop_id"`
	ToolID        string          `json:"tool_id"        db:"tool_id"`
	Status        BatchStatus     `json:"status"         db:"status"`
	TotalJobs     int             `json:"total_jobs"     db:"total_jobs"`
	CompletedJobs int             `json:"completed_jobs" db:"completed_jobs"`
	FailedJobs    int             `json:"failed_jobs"    db:"failed_jobs"`
	CreditsUsed   int             `json:"credits_used"   db:"credits_used"`
	Params        json.RawMessage `json:"params"         db:"params"`
	CreatedAt     time.Time       `json:"created_at"     db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"     db:"updated_at"`
}

// CreateBatchRequest represents a request to create a batch. Batches are created
// before their jobs are dispatched so jobs can reference them.
type CreateBatchRequest struct {
	ShopID    string          `json:"shop_id"`
	ToolID    string          `json:"tool_id"`
	TotalJobs int             `json:"total_jobs"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// Normalize normalizes the CreateBatchRequest fields.
func (r *CreateBatchRequest) Normalize() {
	r.ShopID = strings.TrimSpace(r.ShopID)
	r.ToolID = strings.TrimSpace(r.ToolID)
}

// Validate validates the CreateBatchRequest fields.
func (r *CreateBatchRequest) Validate() error {
	if r.ShopID == "" {
		return errors.New("shop_id is required")
	}
	if r.ToolID == "" {
		return errors.New("tool_id is required")
	}
	if r.TotalJobs <= 0 {
		return errors.New("total_jobs must be positive")
	}
	return nil
}
