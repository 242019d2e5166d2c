// Package model defines the core data types used throughout the studio engine.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates a job has been submitted and is waiting to start.
	JobStatusPending JobStatus = "pending"
	// JobStatusProcessing indicates the AI service is working on the job.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted indicates a job finished successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates a job failed at the AI service.
	JobStatusFailed JobStatus = "failed"
	// JobStatusCancelled indicates a job was cancelled before reaching a result.
	JobStatusCancelled JobStatus = "cancelled"
)

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true when no further automatic transition occurs from this status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// String returns the string representation of the job status.
func (s JobStatus) String() string {
	return string(s)
}

// JobPriority represents the processing priority of a job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobPriority string

const (
	JobPriorityLow    JobPriority = "low"
	JobPriorityNormal JobPriority = "normal"
	JobPriorityHigh   JobPriority = "high"
	JobPriorityUrgent JobPriority = "urgent"
)

// Valid returns true if the JobPriority is valid.
func (p JobPriority) Valid() bool {
	switch p {
	case JobPriorityLow, JobPriorityNormal, JobPriorityHigh, JobPriorityUrgent:
		return true
	default:
		return false
	}
}

// Rank returns the ordering weight of the priority: low < normal < high < urgent.
func (p JobPriority) Rank() int {
	switch p {
	case JobPriorityLow:
		return 0
	case JobPriorityNormal:
		return 1
	case JobPriorityHigh:
		return 2
	case JobPriorityUrgent:
		return 3
	default:
		return 1
	}
}

// String returns the string representation of the job priority.
func (p JobPriority) String() string {
	return string(p)
}

// UnmarshalText implements encoding.TextUnmarshaler for JobPriority to allow env parsing.
func (p *JobPriority) UnmarshalText(text []byte) error {
	v := JobPriority(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid JobPriority: %q", string(text))
	}
	*p = v
	return nil
}

// Job represents one unit of AI-processing work tracked locally.
//
// ExternalID is the identifier assigned by the AI job service on submission and is
// the idempotency key for the job: it is unique across all jobs ever created and a
// retry always produces a fresh one.
type Job struct {
	ID           string          `json:"id"                      db:"id"`
	ExternalID   string          `json:"external_id"             db:"external_id"`
	ShopID       string          `json:"shop_id"                 db:"shop_id"`
	ToolID       string          `json:"tool_id"                 db:"tool_id"`
	ToolName     string          `json:"tool_name"               db:"tool_name"`
	Status       JobStatus       `json:"status"                  db:"status"`
	Priority     JobPriority     `json:"priority"                db:"priority"`
	Progress     int             `json:"progress"                db:"progress"`
	CreditsUsed  int             `json:"credits_used"            db:"credits_used"`
	InputURL     string          `json:"input_url"               db:"input_url"`
	OutputURL    *string         `json:"output_url,omitempty"    db:"output_url"`
	ThumbnailURL *string         `json:"thumbnail_url,omitempty" db:"thumbnail_url"`
	ProcessingMS *int64          `json:"processing_ms,omitempty" db:"processing_ms"`
	ProductID    *string         `json:"product_id,omitempty"    db:"product_id"`
	Delivered    bool            `json:"delivered"               db:"delivered"`
	DeliveredAt  *time.Time      `json:"delivered_at,omitempty"  db:"delivered_at"`
	ErrorMessage *string         `json:"error_message,omitempty" db:"error_message"`
	BatchID      *string         `json:"batch_id,omitempty"      db:"batch_id"`
	Params       json.RawMessage `json:"params"                  db:"params"`
	Metadata     json.RawMessage `json:"metadata"                db:"metadata"`
	StartedAt    *time.Time      `json:"started_at,omitempty"    db:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"  db:"completed_at"`
	CreatedAt    time.Time       `json:"created_at"              db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"              db:"updated_at"`
}

// CreateJobRequest represents a request to persist a newly dispatched job.
type CreateJobRequest struct {
	ExternalID string          `json:"external_id"`
	ShopID     string          `json:"shop_id"`
	ToolID     string          `json:"tool_id"`
	ToolName   string          `json:"tool_name,omitempty"`
	InputURL   string          `json:"input_url"`
	Priority   JobPriority     `json:"priority,omitempty"`
	ProductID  *string         `json:"product_id,omitempty"`
	BatchID    *string         `json:"batch_id,omitempty"`
	Params     json.RawMessage `json:"params,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// Normalize normalizes the CreateJobRequest fields.
func (r *CreateJobRequest) Normalize() {
	r.ExternalID = strings.TrimSpace(r.ExternalID)
	r.ShopID = strings.TrimSpace(r.ShopID)
	r.ToolID = strings.TrimSpace(r.ToolID)
	r.ToolName = strings.TrimSpace(r.ToolName)
	r.InputURL = strings.TrimSpace(r.InputURL)
	if r.Priority == "" {
		r.Priority = JobPriorityNormal
	}
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if r.ExternalID == "" {
		return errors.New("external_id is required")
	}
	if r.ShopID == "" {
		return errors.New("shop_id is required")
	}
	if r.ToolID == "" {
		return errors.New("tool_id is required")
	}
	if r.InputURL == "" {
		return errors.New("input_url is required")
	}
	if !r.Priority.Valid() {
		return errors.New("invalid priority")
	}
	return nil
}

// JobUpdate describes a partial state transition applied through the job store.
// Nil fields are left unchanged. Updates are the only way a persisted job mutates.
type JobUpdate struct {
	Status       *JobStatus
	Progress     *int
	OutputURL    *string
	ThumbnailURL *string
	ErrorMessage *string
	CreditsUsed  *int
	ProcessingMS *int64
	ProductID    *string
	Delivered    *bool
	StartedAt    *time.Time

	// NewExternalID is set only by the retry transition (failed → pending), which
	// re-dispatches the job under a fresh external id.
	NewExternalID *string
	// ClearError resets the error message, progress, and completion timestamp.
	// Only meaningful together with a transition back to pending.
	ClearError bool
}

// JobStats represents aggregate statistics over a shop's jobs, computed fresh on
// each request.
type JobStats struct {
	Pending     int     `json:"pending"`
	Processing  int     `json:"processing"`
	Completed   int     `json:"completed"`
	Failed      int     `json:"failed"`
	Cancelled   int     `json:"cancelled"`
	Total       int     `json:"total"`
	CreditsUsed int     `json:"credits_used"`
	SuccessRate float64 `json:"success_rate"`
}
