package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/merchkit/studio-engine/internal/domain/model"
)

// MaxImageBytes is the size ceiling for a candidate image (20 MiB).
const MaxImageBytes = 20 << 20

const validatorTimeout = 15 * time.Second

// allowedImageTypes is the fixed content-type allow-list for delivery candidates.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ImageValidator checks a candidate image before any delivery work is attempted:
// the resource must be reachable, declare an allow-listed image content type, and
// not exceed the size ceiling. The check never mutates state and is always safe
// to re-run. A malformed input does not become valid by waiting, so validation
// failures are never retried.
type ImageValidator struct {
	httpClient *http.Client
	maxBytes   int64
	logger     *slog.Logger
}

// ImageValidatorOptions groups construction parameters for ImageValidator.
type ImageValidatorOptions struct {
	HTTPClient *http.Client // Optional: defaults to a 15s-timeout client
	MaxBytes   int64        // Optional: defaults to MaxImageBytes
	Logger     *slog.Logger // Optional: structured logger
}

// NewImageValidator constructs an ImageValidator.
func NewImageValidator(opts ImageValidatorOptions) *ImageValidator {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: validatorTimeout}
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = MaxImageBytes
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "image_validator")
	}
	return &ImageValidator{
		httpClient: httpClient,
		maxBytes:   maxBytes,
		logger:     logger,
	}
}

// Validate performs one HEAD round-trip against the resource's host and reports
// whether the resource is deliverable. A negative result is carried in the
// returned ValidationResult; the error return is reserved for request
// construction failures.
func (v *ImageValidator) Validate(ctx context.Context, rawURL string) (*model.ValidationResult, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return &model.ValidationResult{Valid: false, Reason: "image URL is empty"}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create validation request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return &model.ValidationResult{
			Valid:  false,
			Reason: fmt.Sprintf("image is not reachable: %v", err),
		}, nil
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &model.ValidationResult{
			Valid:  false,
			Reason: fmt.Sprintf("image host returned status %d", resp.StatusCode),
		}, nil
	}

	contentType := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	contentType = strings.TrimSpace(strings.ToLower(contentType))
	size := resp.ContentLength
	if size < 0 {
		// The host declared no Content-Length. Accept with size 0; the transfer
		// step enforces the real ceiling while reading the bytes.
		size = 0
	}

	result := &model.ValidationResult{
		ContentType: contentType,
		Size:        size,
	}

	switch {
	case !allowedImageTypes[contentType]:
		result.Reason = fmt.Sprintf("unsupported content type %q (want JPEG, PNG, or WebP)", contentType)
	case size > v.maxBytes:
		result.Reason = fmt.Sprintf("image is %d bytes, which exceeds the %d byte limit", size, v.maxBytes)
	default:
		result.Valid = true
	}

	if v.logger != nil && !result.Valid {
		v.logger.DebugContext(ctx, "image failed validation", "url", rawURL, "reason", result.Reason)
	}
	return result, nil
}
