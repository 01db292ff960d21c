// Package remote talks to the remote collaborator: a flat JSON document per
// collection plus an image upload endpoint. Every collection is read and
// written whole; the last writer wins.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"revayat/internal/models"
	"revayat/internal/observability"
)

const defaultTimeout = 15 * time.Second

// Collection endpoint paths, relative to the base URL.
const (
	PathAccountsRead  = "/read.php"
	PathAccountsStore = "/store.php"
	PathExploreRead   = "/explore-read.php"
	PathExploreStore  = "/explore-store.php"
	PathStoriesRead   = "/stories-read.php"
	PathStoriesStore  = "/stories-store.php"
	PathUploadImage   = "/upload-image.php"
)

// RemoteSync reads and writes a whole collection.
type RemoteSync[T any] interface {
	FetchAll(ctx context.Context) ([]T, error)
	PushAll(ctx context.Context, items []T) error
}

// ImageUploader turns an inline data URL into a hosted URL.
type ImageUploader interface {
	Upload(ctx context.Context, dataURL, reference string) (string, error)
}

// Client is the HTTP transport shared by every collection.
type Client struct {
	base       string
	httpClient *http.Client
}

// NewClient creates a client for base. The base URL must not be empty.
func NewClient(base string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Status: resp.StatusCode, Body: string(respBody)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote API error (status %d): %s", e.Status, e.Body)
}

// Collection syncs one named collection.
type Collection[T any] struct {
	client    *Client
	name      string
	readPath  string
	storePath string
}

// NewCollection binds a collection to its read and store paths.
func NewCollection[T any](client *Client, name, readPath, storePath string) *Collection[T] {
	return &Collection[T]{client: client, name: name, readPath: readPath, storePath: storePath}
}

// Name returns the collection name used in logs and metrics.
func (c *Collection[T]) Name() string {
	return c.name
}

// FetchAll reads the whole collection. A document that is not a JSON array
// reads as an empty collection.
func (c *Collection[T]) FetchAll(ctx context.Context) (items []T, err error) {
	ctx, span := observability.TraceRemoteCall(ctx, c.name, "fetch")
	start := time.Now()
	defer func() {
		record(c.name, "fetch", start, err)
		observability.EndSpan(span, err)
	}()

	var raw json.RawMessage
	if err := c.client.do(ctx, http.MethodGet, c.readPath, nil, &raw); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", c.name, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return []T{}, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.name, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// PushAll replaces the remote collection with items.
func (c *Collection[T]) PushAll(ctx context.Context, items []T) (err error) {
	ctx, span := observability.TraceRemoteCall(ctx, c.name, "push")
	start := time.Now()
	defer func() {
		record(c.name, "push", start, err)
		observability.EndSpan(span, err)
	}()

	if items == nil {
		items = []T{}
	}
	if err := c.client.do(ctx, http.MethodPost, c.storePath, items, nil); err != nil {
		return fmt.Errorf("push %s: %w", c.name, err)
	}
	return nil
}

func record(collection, direction string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	observability.SyncOperations.WithLabelValues(collection, direction, outcome).Inc()
	observability.SyncLatency.WithLabelValues(collection, direction).Observe(time.Since(start).Seconds())
}

// UploadRequest is the body of an image upload.
type UploadRequest struct {
	Data      string `json:"data"`
	Reference string `json:"reference"`
}

// UploadResponse is the reply of an image upload.
type UploadResponse struct {
	URL     string `json:"url"`
	Preview string `json:"preview,omitempty"`
}

// Uploader posts inline images to the upload endpoint.
type Uploader struct {
	client *Client
}

// NewUploader creates an Uploader on client.
func NewUploader(client *Client) *Uploader {
	return &Uploader{client: client}
}

// Upload sends dataURL and returns the hosted URL.
func (u *Uploader) Upload(ctx context.Context, dataURL, reference string) (url string, err error) {
	ctx, span := observability.TraceRemoteCall(ctx, "images", "upload")
	start := time.Now()
	defer func() {
		record("images", "upload", start, err)
		observability.EndSpan(span, err)
	}()

	if !IsInlineImage(dataURL) {
		return "", fmt.Errorf("upload: not a data URL")
	}

	var resp UploadResponse
	if err := u.client.do(ctx, http.MethodPost, PathUploadImage, UploadRequest{Data: dataURL, Reference: reference}, &resp); err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	if resp.URL == "" {
		return "", fmt.Errorf("upload image: response has no url")
	}
	return resp.URL, nil
}

// IsInlineImage reports whether value is an inline data URL that still needs
// to be uploaded.
func IsInlineImage(value string) bool {
	return strings.HasPrefix(value, "data:")
}

// Gateway bundles everything the social stores sync through.
type Gateway struct {
	Accounts RemoteSync[models.Account]
	Explore  RemoteSync[models.ExplorePost]
	Stories  RemoteSync[models.Story]
	Images   ImageUploader
}

// New returns a Gateway for baseURL, or nil when no endpoint is configured.
// A nil Gateway disables remote synchronization everywhere.
func New(baseURL string, timeout time.Duration) *Gateway {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil
	}
	client := NewClient(baseURL, timeout)
	return &Gateway{
		Accounts: NewCollection[models.Account](client, "accounts", PathAccountsRead, PathAccountsStore),
		Explore:  NewCollection[models.ExplorePost](client, "explore", PathExploreRead, PathExploreStore),
		Stories:  NewCollection[models.Story](client, "stories", PathStoriesRead, PathStoriesStore),
		Images:   NewUploader(client),
	}
}
