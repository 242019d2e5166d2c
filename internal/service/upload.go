package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/merchkit/studio-engine/internal/core"
	"github.com/merchkit/studio-engine/internal/domain/model"
	apperrors "github.com/merchkit/studio-engine/internal/errors"
)

const (
	uploadHTTPTimeout       = 60 * time.Second
	defaultBatchConcurrency = 4
)

// ProgressFunc receives upload stage notifications so a caller can render
// incremental feedback. It carries no correctness weight.
type ProgressFunc func(stage model.UploadStage)

// UploadService delivers a resource into the destination catalog through the
// staged upload protocol: create a pre-authorized target, transfer the bytes,
// attach the transferred resource to the product. The three steps are strictly
// ordered; each depends on the previous step's output.
type UploadService struct {
	catalog     core.CatalogAPI
	validator   *ImageValidator
	retry       *RetryPolicy
	httpClient  *http.Client
	logger      *slog.Logger
	concurrency int
}

// UploadServiceOptions groups dependencies for UploadService.
type UploadServiceOptions struct {
	Catalog          core.CatalogAPI // Required: catalog API port
	Validator        *ImageValidator // Optional: defaults to a standard validator
	Retry            *RetryPolicy    // Optional: defaults to the standard policy
	HTTPClient       *http.Client    // Optional: used for source fetch and transfer
	Logger           *slog.Logger    // Optional: structured logger
	BatchConcurrency int             // Optional: parallel deliveries in UploadBatch
}

// NewUploadService constructs an UploadService.
func NewUploadService(opts UploadServiceOptions) (*UploadService, error) {
	if opts.Catalog == nil {
		return nil, errors.New("CatalogAPI is required")
	}

	validator := opts.Validator
	if validator == nil {
		validator = NewImageValidator(ImageValidatorOptions{Logger: opts.Logger})
	}
	retry := opts.Retry
	if retry == nil {
		retry = NewRetryPolicy(RetryPolicyOptions{Logger: opts.Logger})
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: uploadHTTPTimeout}
	}
	concurrency := opts.BatchConcurrency
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "upload_service")
	}

	return &UploadService{
		catalog:     opts.Catalog,
		validator:   validator,
		retry:       retry,
		httpClient:  httpClient,
		logger:      logger,
		concurrency: concurrency,
	}, nil
}

// Upload delivers one resource to one product. The returned result is always
// non-nil; failure is carried in the result rather than an error so batch callers
// can aggregate outcomes uniformly.
func (s *UploadService) Upload(ctx context.Context, req model.UploadRequest, progress ProgressFunc) *model.UploadResult {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return failResult(err.Error())
	}
	notify := func(stage model.UploadStage) {
		if progress != nil {
			progress(stage)
		}
	}

	notify(model.UploadStageValidating)
	validation, err := s.validator.Validate(ctx, req.SourceURL)
	if err != nil {
		return failResult(fmt.Sprintf("validate source: %v", err))
	}
	if !validation.Valid {
		return failResult(validation.Reason)
	}

	notify(model.UploadStageStaging)
	target, err := s.createTarget(ctx, req.SourceURL, validation)
	if err != nil {
		return failResult(fmt.Sprintf("create upload target: %v", err))
	}

	notify(model.UploadStageTransferring)
	if err := s.transfer(ctx, req.SourceURL, target); err != nil {
		return failResult(fmt.Sprintf("transfer bytes: %v", err))
	}

	notify(model.UploadStageAttaching)
	mediaID, userErrs, err := s.attach(ctx, req, target)
	if err != nil {
		return failResult(fmt.Sprintf("attach media: %v", err))
	}
	if len(userErrs) > 0 {
		result := failResult("catalog rejected the media")
		for _, ue := range userErrs {
			result.Details = append(result.Details, model.UploadDetail{Field: ue.Field, Message: ue.Message})
		}
		return result
	}

	result := &model.UploadResult{Success: true, MediaID: mediaID}

	// Follow-ups run only after a successful attach. The old media is removed
	// only once the new one exists, so the product is never left without a
	// delivered resource. Their failures do not undo the delivery.
	if req.ReplaceMediaID != "" && req.ReplaceMediaID != mediaID {
		if err := s.catalog.ProductMediaDelete(ctx, req.ProductID, req.ReplaceMediaID); err != nil {
			result.Details = append(result.Details, model.UploadDetail{
				Message: fmt.Sprintf("replaced media %s could not be removed: %v", req.ReplaceMediaID, err),
				Warning: true,
			})
		}
	}
	if position, ok := requestedPosition(req); ok {
		if err := s.catalog.ProductMediaReorder(ctx, req.ProductID, mediaID, position); err != nil {
			msg := fmt.Sprintf("media attached but could not be set as primary: %v", err)
			if !req.SetPrimary {
				msg = fmt.Sprintf("media attached but could not be moved to position %d: %v", position, err)
			}
			result.Details = append(result.Details, model.UploadDetail{Message: msg, Warning: true})
		}
	}

	notify(model.UploadStageComplete)
	if s.logger != nil {
		s.logger.InfoContext(ctx, "media delivered",
			"product_id", req.ProductID,
			"media_id", mediaID,
			"warnings", len(result.Details),
		)
	}
	return result
}

// UploadBatch delivers every request independently: one failure never aborts the
// others. The aggregate succeeds only when all constituent deliveries succeeded,
// and the per-item results are always returned in request order.
func (s *UploadService) UploadBatch(ctx context.Context, reqs []model.UploadRequest) *model.BatchUploadResult {
	results := make([]model.UploadResult, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			results[i] = *s.Upload(gctx, req, nil)
			return nil // per-item failures live in results
		})
	}
	_ = g.Wait()

	success := true
	for i := range results {
		if !results[i].Success {
			success = false
			break
		}
	}
	return &model.BatchUploadResult{Success: success, Results: results}
}

// createTarget runs step one with retry. An explicit rejection by the catalog
// (size or type constraint) is permanent and surfaces immediately.
func (s *UploadService) createTarget(ctx context.Context, sourceURL string, validation *model.ValidationResult) (*core.StagedUploadTarget, error) {
	input := core.StagedUploadInput{
		Filename: filenameFromURL(sourceURL, validation.ContentType),
		MimeType: validation.ContentType,
		Size:     validation.Size,
	}

	var target *core.StagedUploadTarget
	err := s.retry.Do(ctx, "staged_upload_create", func(ctx context.Context) error {
		var stepErr error
		target, stepErr = s.catalog.StagedUploadCreate(ctx, input)
		return stepErr
	})
	if err != nil {
		return nil, err
	}
	return target, nil
}

// transfer runs step two with retry: fetch the source bytes and stream them to
// the pre-authorized target, replaying the opaque form parameters verbatim and in
// order, with the file part last.
func (s *UploadService) transfer(ctx context.Context, sourceURL string, target *core.StagedUploadTarget) error {
	return s.retry.Do(ctx, "staged_upload_transfer", func(ctx context.Context) error {
		data, err := s.fetchSource(ctx, sourceURL)
		if err != nil {
			return err
		}
		return s.postMultipart(ctx, target, filenameFromURL(sourceURL, ""), data)
	})
}

func (s *UploadService) fetchSource(ctx context.Context, sourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "build source fetch request")
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "fetch source bytes")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.Unavailablef("source host returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "read source bytes")
	}
	if len(data) > MaxImageBytes {
		return nil, apperrors.Validationf("source exceeds the %d byte limit", MaxImageBytes)
	}
	return data, nil
}

func (s *UploadService) postMultipart(ctx context.Context, target *core.StagedUploadTarget, filename string, data []byte) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, param := range target.Parameters {
		if err := writer.WriteField(param.Name, param.Value); err != nil {
			return fmt.Errorf("write form field %q: %w", param.Name, err)
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("write file part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, &body)
	if err != nil {
		return fmt.Errorf("build transfer request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "transfer to upload target")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return apperrors.Unavailablef("upload target returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}
		return apperrors.Validationf("upload target rejected transfer (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}

// attach runs step three with retry. Field-level user errors are a permanent
// outcome, not a transport failure, so they pass through without retry.
func (s *UploadService) attach(ctx context.Context, req model.UploadRequest, target *core.StagedUploadTarget) (string, []core.UserError, error) {
	input := core.MediaAttachInput{
		ProductID:   req.ProductID,
		ResourceURL: target.ResourceURL,
		AltText:     req.AltText,
	}

	var mediaID string
	var userErrs []core.UserError
	err := s.retry.Do(ctx, "product_media_create", func(ctx context.Context) error {
		var stepErr error
		mediaID, userErrs, stepErr = s.catalog.ProductMediaCreate(ctx, input)
		return stepErr
	})
	return mediaID, userErrs, err
}

// requestedPosition resolves the reorder target: SetPrimary wins and means the
// first slot, otherwise an explicit positive Position is honored.
func requestedPosition(req model.UploadRequest) (int, bool) {
	if req.SetPrimary {
		return 0, true
	}
	if req.Position > 0 {
		return req.Position, true
	}
	return 0, false
}

func failResult(reason string) *model.UploadResult {
	return &model.UploadResult{Success: false, Error: reason}
}

// filenameFromURL derives a stable filename for the staged target from the source
// URL path, falling back to a generic name matched to the content type.
func filenameFromURL(rawURL, contentType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "." && base != "/" {
			return base
		}
	}
	switch contentType {
	case "image/png":
		return "image.png"
	case "image/webp":
		return "image.webp"
	default:
		return "image.jpg"
	}
}
