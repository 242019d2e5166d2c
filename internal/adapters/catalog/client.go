// Package catalog provides the GraphQL client for the destination catalog's
// admin API, used by the staged upload delivery protocol.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/merchkit/studio-engine/internal/core"
	apperrors "github.com/merchkit/studio-engine/internal/errors"
)

const defaultTimeout = 30 * time.Second

// Client talks to the catalog's GraphQL endpoint. It implements core.CatalogAPI.
type Client struct {
	endpoint    string
	accessToken string
	httpClient  *http.Client
	logger      *slog.Logger
}

// ClientOptions groups construction parameters for Client.
type ClientOptions struct {
	Endpoint    string
	AccessToken string
	HTTPClient  *http.Client // Optional: defaults to a 30s-timeout client
	Logger      *slog.Logger // Optional: structured logger
}

// NewClient creates a new catalog GraphQL client.
func NewClient(opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "catalog_client")
	}
	return &Client{
		endpoint:    opts.Endpoint,
		accessToken: opts.AccessToken,
		httpClient:  httpClient,
		logger:      logger,
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors,omitempty"`
}

const stagedUploadsCreateMutation = `
mutation stagedUploadsCreate($input: [StagedUploadInput!]!) {
  stagedUploadsCreate(input: $input) {
    stagedTargets {
      url
      resourceUrl
      parameters { name value }
    }
    userErrors { field message }
  }
}`

// StagedUploadCreate asks the catalog for a pre-authorized upload target and the
// opaque form parameters to replay during the transfer step. An explicit rejection
// (user errors) is permanent; transport failures are transient.
func (c *Client) StagedUploadCreate(ctx context.Context, input core.StagedUploadInput) (*core.StagedUploadTarget, error) {
	variables := map[string]any{
		"input": []map[string]any{{
			"filename":   input.Filename,
			"mimeType":   input.MimeType,
			"fileSize":   strconv.FormatInt(input.Size, 10),
			"resource":   "IMAGE",
			"httpMethod": "POST",
		}},
	}

	var out struct {
		StagedUploadsCreate struct {
			StagedTargets []core.StagedUploadTarget `json:"stagedTargets"`
			UserErrors    []userError               `json:"userErrors"`
		} `json:"stagedUploadsCreate"`
	}
	if err := c.execute(ctx, stagedUploadsCreateMutation, variables, &out); err != nil {
		return nil, err
	}
	if len(out.StagedUploadsCreate.UserErrors) > 0 {
		return nil, userErrorsToValidation("staged upload rejected", out.StagedUploadsCreate.UserErrors)
	}
	if len(out.StagedUploadsCreate.StagedTargets) == 0 {
		return nil, apperrors.Internal("catalog returned no staged upload target")
	}

	target := out.StagedUploadsCreate.StagedTargets[0]
	if c.logger != nil {
		c.logger.DebugContext(ctx, "staged upload target created", "filename", input.Filename, "size", input.Size)
	}
	return &target, nil
}

const productCreateMediaMutation = `
mutation productCreateMedia($productId: ID!, $media: [CreateMediaInput!]!) {
  productCreateMedia(productId: $productId, media: $media) {
    media { id }
    mediaUserErrors { field message }
  }
}`

// ProductMediaCreate registers a transferred resource against a product. Field
// level validation errors from the mutation are returned to the caller; they are
// not transport failures and must not be retried.
func (c *Client) ProductMediaCreate(ctx context.Context, input core.MediaAttachInput) (string, []core.UserError, error) {
	media := map[string]any{
		"originalSource":   input.ResourceURL,
		"mediaContentType": "IMAGE",
	}
	if input.AltText != "" {
		media["alt"] = input.AltText
	}
	variables := map[string]any{
		"productId": input.ProductID,
		"media":     []map[string]any{media},
	}

	var out struct {
		ProductCreateMedia struct {
			Media []struct {
				ID string `json:"id"`
			} `json:"media"`
			MediaUserErrors []userError `json:"mediaUserErrors"`
		} `json:"productCreateMedia"`
	}
	if err := c.execute(ctx, productCreateMediaMutation, variables, &out); err != nil {
		return "", nil, err
	}
	if errs := out.ProductCreateMedia.MediaUserErrors; len(errs) > 0 {
		return "", toCoreUserErrors(errs), nil
	}
	if len(out.ProductCreateMedia.Media) == 0 || out.ProductCreateMedia.Media[0].ID == "" {
		return "", nil, apperrors.Internal("catalog attached media but returned no media id")
	}

	mediaID := out.ProductCreateMedia.Media[0].ID
	if c.logger != nil {
		c.logger.DebugContext(ctx, "media attached", "product_id", input.ProductID, "media_id", mediaID)
	}
	return mediaID, nil, nil
}

const productDeleteMediaMutation = `
mutation productDeleteMedia($productId: ID!, $mediaIds: [ID!]!) {
  productDeleteMedia(productId: $productId, mediaIds: $mediaIds) {
    deletedMediaIds
    mediaUserErrors { field message }
  }
}`

// ProductMediaDelete detaches a media from a product.
func (c *Client) ProductMediaDelete(ctx context.Context, productID, mediaID string) error {
	variables := map[string]any{
		"productId": productID,
		"mediaIds":  []string{mediaID},
	}

	var out struct {
		ProductDeleteMedia struct {
			DeletedMediaIDs []string    `json:"deletedMediaIds"`
			MediaUserErrors []userError `json:"mediaUserErrors"`
		} `json:"productDeleteMedia"`
	}
	if err := c.execute(ctx, productDeleteMediaMutation, variables, &out); err != nil {
		return err
	}
	if errs := out.ProductDeleteMedia.MediaUserErrors; len(errs) > 0 {
		return userErrorsToValidation("media delete rejected", errs)
	}
	return nil
}

const productReorderMediaMutation = `
mutation productReorderMedia($id: ID!, $moves: [MoveInput!]!) {
  productReorderMedia(id: $id, moves: $moves) {
    mediaUserErrors { field message }
  }
}`

// ProductMediaReorder moves the given media to the ordinal position. Reordering is
// cosmetic; callers treat failures as non-fatal.
func (c *Client) ProductMediaReorder(ctx context.Context, productID, mediaID string, position int) error {
	variables := map[string]any{
		"id": productID,
		"moves": []map[string]any{{
			"id":          mediaID,
			"newPosition": strconv.Itoa(position),
		}},
	}

	var out struct {
		ProductReorderMedia struct {
			MediaUserErrors []userError `json:"mediaUserErrors"`
		} `json:"productReorderMedia"`
	}
	if err := c.execute(ctx, productReorderMediaMutation, variables, &out); err != nil {
		return err
	}
	if errs := out.ProductReorderMedia.MediaUserErrors; len(errs) > 0 {
		return userErrorsToValidation("media reorder rejected", errs)
	}
	return nil
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

func toCoreUserErrors(errs []userError) []core.UserError {
	out := make([]core.UserError, 0, len(errs))
	for _, e := range errs {
		out = append(out, core.UserError{
			Field:   strings.Join(e.Field, "."),
			Message: e.Message,
		})
	}
	return out
}

func userErrorsToValidation(prefix string, errs []userError) error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return apperrors.Validationf("%s: %s", prefix, strings.Join(msgs, "; "))
}

// execute posts one GraphQL document and decodes the data payload into out.
// Transport failures and 5xx/429 responses are transient; GraphQL-level errors are
// surfaced as internal errors since the document is fixed at compile time.
func (c *Client) execute(ctx context.Context, query string, variables map[string]any, out any) error {
	jsonData, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Access-Token", c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "catalog request failed")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "read catalog response")
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return apperrors.Unavailablef("catalog returned %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.Validationf("catalog rejected request (%d): %s", resp.StatusCode, truncate(respBody))
	}

	var envelope graphqlResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "decode catalog response")
	}
	if len(envelope.Errors) > 0 {
		msgs := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			msgs = append(msgs, e.Message)
		}
		return apperrors.Internalf("catalog graphql errors: %s", strings.Join(msgs, "; "))
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "decode catalog data payload")
		}
	}
	return nil
}

func truncate(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 512 {
		return s[:512]
	}
	return s
}
