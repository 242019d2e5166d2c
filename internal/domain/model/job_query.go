package model

import "time"

// JobListOptions holds the filter set for listing jobs. Results are ordered
// most-recent-first.
type JobListOptions struct {
	ShopID        string
	Status        *JobStatus
	ToolID        *string
	ProductID     *string
	BatchID       *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Limit         int
	Offset        int
}
