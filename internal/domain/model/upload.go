package model

import (
	"errors"
	"strings"
)

// UploadStage identifies one observable phase of a staged upload. Stages are
// reported through an optional progress callback so a caller can render
// incremental feedback; they carry no correctness weight.
type UploadStage string

const (
	UploadStageValidating   UploadStage = "validating"
	UploadStageStaging      UploadStage = "staging"
	UploadStageTransferring UploadStage = "transferring"
	UploadStageAttaching    UploadStage = "attaching"
	UploadStageComplete     UploadStage = "complete"
)

// String returns the string representation of the upload stage.
func (s UploadStage) String() string {
	return string(s)
}

// UploadRequest carries the input of one staged-upload delivery attempt. It is a
// parameter object and is never persisted independently.
type UploadRequest struct {
	// ProductID is the destination catalog entity receiving the media.
	ProductID string `json:"product_id"`
	// SourceURL locates the resource to deliver.
	SourceURL string `json:"source_url"`
	// AltText is optional accessibility text attached with the media.
	AltText string `json:"alt_text,omitempty"`
	// ReplaceMediaID, when set, names an existing delivered media to detach after
	// the new media is successfully attached.
	ReplaceMediaID string `json:"replace_media_id,omitempty"`
	// SetPrimary requests the new media be reordered to the first position.
	SetPrimary bool `json:"set_primary,omitempty"`
	// Position is an optional ordinal position hint for the attach step.
	Position int `json:"position,omitempty"`
}

// Normalize normalizes the UploadRequest fields.
func (r *UploadRequest) Normalize() {
	r.ProductID = strings.TrimSpace(r.ProductID)
	r.SourceURL = strings.TrimSpace(r.SourceURL)
	r.AltText = strings.TrimSpace(r.AltText)
	r.ReplaceMediaID = strings.TrimSpace(r.ReplaceMediaID)
}

// Validate validates the UploadRequest fields.
func (r *UploadRequest) Validate() error {
	if r.ProductID == "" {
		return errors.New("product_id is required")
	}
	if r.SourceURL == "" {
		return errors.New("source_url is required")
	}
	return nil
}

// UploadResult carries the outcome of one staged-upload delivery attempt.
type UploadResult struct {
	Success bool `json:"success"`
	// MediaID is the destination-assigned media id, set on success.
	MediaID string `json:"media_id,omitempty"`
	// Error describes the failure when Success is false.
	Error string `json:"error,omitempty"`
	// Details carries structured per-field errors and non-fatal warnings. A failed
	// set-primary reorder lands here without flipping Success.
	Details []UploadDetail `json:"details,omitempty"`
}

// UploadDetail is one structured note attached to an UploadResult.
type UploadDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	// Warning marks the detail as non-fatal.
	Warning bool `json:"warning,omitempty"`
}

// BatchUploadResult aggregates independent deliveries. Success is true only when
// every constituent delivery succeeded; Results always carries the full per-item
// list in request order.
type BatchUploadResult struct {
	Success bool           `json:"success"`
	Results []UploadResult `json:"results"`
}

// ValidationResult is the advisory outcome of checking a candidate image before
// any network delivery work is attempted.
type ValidationResult struct {
	Valid       bool   `json:"valid"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Reason      string `json:"reason,omitempty"`
}
