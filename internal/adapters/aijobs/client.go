// Package aijobs provides the HTTP client for the external AI job service.
package aijobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/merchkit/studio-engine/internal/core"
	apperrors "github.com/merchkit/studio-engine/internal/errors"
)

const defaultTimeout = 30 * time.Second

// Client talks to the AI job service over HTTP. It implements core.AIJobsAPI.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOptions groups construction parameters for Client.
type ClientOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client // Optional: defaults to a 30s-timeout client
	Logger     *slog.Logger // Optional: structured logger
}

// NewClient creates a new AI job service client.
func NewClient(opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "aijobs_client")
	}
	return &Client{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

// submitIn is the request body for job submission.
type submitIn struct {
	ToolID   string          `json:"tool_id"`
	InputURL string          `json:"input_url"`
	Priority string          `json:"priority,omitempty"`
	Params   json.RawMessage `json:"params,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// submitOut is the response from job submission.
type submitOut struct {
	JobID string `json:"job_id"`
}

// jobOut is the response from a job status query.
type jobOut struct {
	JobID        string `json:"job_id"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	OutputURL    string `json:"output_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Error        string `json:"error,omitempty"`
	CreditsUsed  int    `json:"credits_used"`
	ProcessingMS int64  `json:"processing_ms,omitempty"`
}

// toolOut is the response from a tool metadata query.
type toolOut struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreditsCost int    `json:"credits_cost"`
}

// Submit dispatches new work and returns the externally-assigned job id.
func (c *Client) Submit(ctx context.Context, params core.SubmitJobParams) (string, error) {
	in := submitIn{
		ToolID:   params.ToolID,
		InputURL: params.InputURL,
		Priority: params.Priority.String(),
		Params:   params.Params,
		Metadata: params.Metadata,
	}

	var out submitOut
	if err := c.do(ctx, http.MethodPost, "/v1/jobs", in, &out); err != nil {
		return "", err
	}
	if out.JobID == "" {
		return "", apperrors.Internal("job service returned an empty job id")
	}

	if c.logger != nil {
		c.logger.DebugContext(ctx, "job submitted", "external_id", out.JobID, "tool_id", params.ToolID)
	}
	return out.JobID, nil
}

// GetJob fetches the authoritative state of a job by its external id.
func (c *Client) GetJob(ctx context.Context, externalID string) (*core.ExternalJob, error) {
	if externalID == "" {
		return nil, apperrors.Validation("external id is required")
	}

	var out jobOut
	if err := c.do(ctx, http.MethodGet, "/v1/jobs/"+externalID, nil, &out); err != nil {
		return nil, err
	}

	return &core.ExternalJob{
		ID:           out.JobID,
		Status:       core.ExternalJobState(out.Status),
		Progress:     out.Progress,
		OutputURL:    out.OutputURL,
		ThumbnailURL: out.ThumbnailURL,
		Error:        out.Error,
		CreditsUsed:  out.CreditsUsed,
		ProcessingMS: out.ProcessingMS,
	}, nil
}

// GetTool fetches tool metadata, including the display name.
func (c *Client) GetTool(ctx context.Context, toolID string) (*core.Tool, error) {
	if toolID == "" {
		return nil, apperrors.Validation("tool id is required")
	}

	var out toolOut
	if err := c.do(ctx, http.MethodGet, "/v1/tools/"+toolID, nil, &out); err != nil {
		return nil, err
	}

	return &core.Tool{
		ID:          out.ID,
		Name:        out.Name,
		Description: out.Description,
		CreditsCost: out.CreditsCost,
	}, nil
}

// Cancel requests the service stop work on a job. The service gives no guarantee
// work actually stops; callers treat this as best-effort.
func (c *Client) Cancel(ctx context.Context, externalID string) error {
	if externalID == "" {
		return apperrors.Validation("external id is required")
	}
	return c.do(ctx, http.MethodPost, "/v1/jobs/"+externalID+"/cancel", nil, nil)
}

// do executes one JSON round-trip against the job service and classifies failures:
// network errors and 5xx/429 responses are transient (Unavailable), other non-2xx
// responses are permanent rejections.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeUnavailable, "job service request %s %s failed", method, path)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "read job service response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyStatus(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return apperrors.Wrapf(err, apperrors.ErrCodeInternal, "decode job service response (%d bytes)", len(respBody))
		}
	}
	return nil
}

func classifyStatus(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFoundf("job service returned 404: %s", msg)
	case status == http.StatusTooManyRequests || status >= 500:
		return apperrors.Unavailablef("job service returned %d: %s", status, msg)
	default:
		return apperrors.Validationf("job service rejected request (%d): %s", status, msg)
	}
}
