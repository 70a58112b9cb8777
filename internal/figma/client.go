// Package figma provides an OAuth-authenticated client for the Figma REST
// API plus the deep-link resolver for design URLs.
package figma

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	BaseURL        = "https://api.figma.com/v1"
	DefaultTimeout = 30 * time.Second
)

// TokenSource yields a valid bearer token for each request. Implemented by
// the auth flow bound to a session.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed token. Useful in tests and
// personal-access-token mode.
type StaticToken string

func (t StaticToken) AccessToken(ctx context.Context) (string, error) {
	return string(t), nil
}

// Client is a Figma REST API client acting on behalf of one session.
type Client struct {
	httpClient *http.Client
	tokens     TokenSource
	baseURL    string
}

// NewClient creates a new Figma API client drawing tokens from tokens.
func NewClient(tokens TokenSource) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		tokens:  tokens,
		baseURL: BaseURL,
	}
}

// WithTimeout sets a custom timeout for the client.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithBaseURL points the client at a different API root.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

// doRequest performs an authenticated HTTP request. Upstream failures are
// surfaced immediately; no retries.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	tok, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{
			RetryAfter: resp.Header.Get("Retry-After"),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Body: string(body)}
		// The API usually reports {"status": ..., "err": "..."}.
		var parsed struct {
			Err string `json:"err"`
		}
		if err := json.Unmarshal(body, &parsed); err == nil {
			apiErr.Err = parsed.Err
		}
		return nil, apiErr
	}

	return body, nil
}

// GetFile retrieves a Figma file by its key.
func (c *Client) GetFile(ctx context.Context, fileKey string, opts *GetFileOptions) (*File, error) {
	query := url.Values{}
	if opts != nil {
		if opts.Version != "" {
			query.Set("version", opts.Version)
		}
		if opts.Depth > 0 {
			query.Set("depth", fmt.Sprintf("%d", opts.Depth))
		}
		if opts.Geometry != "" {
			query.Set("geometry", opts.Geometry)
		}
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/files/"+fileKey, query)
	if err != nil {
		return nil, err
	}

	var file File
	if err := json.Unmarshal(body, &file); err != nil {
		return nil, fmt.Errorf("parsing file response: %w", err)
	}

	return &file, nil
}

// GetFileNodes retrieves specific nodes from a Figma file.
func (c *Client) GetFileNodes(ctx context.Context, fileKey string, nodeIDs []string) (*FileNodes, error) {
	query := url.Values{}
	query.Set("ids", strings.Join(nodeIDs, ","))

	body, err := c.doRequest(ctx, http.MethodGet, "/files/"+fileKey+"/nodes", query)
	if err != nil {
		return nil, err
	}

	var nodes FileNodes
	if err := json.Unmarshal(body, &nodes); err != nil {
		return nil, fmt.Errorf("parsing nodes response: %w", err)
	}

	return &nodes, nil
}

// RenderImages asks the API to render nodes as PNG and returns the
// resulting image URLs keyed by node ID.
func (c *Client) RenderImages(ctx context.Context, fileKey string, nodeIDs []string, scale float64) (*ImageRender, error) {
	query := url.Values{}
	query.Set("ids", strings.Join(nodeIDs, ","))
	query.Set("scale", fmt.Sprintf("%g", scale))
	query.Set("format", "png")

	body, err := c.doRequest(ctx, http.MethodGet, "/images/"+fileKey, query)
	if err != nil {
		return nil, err
	}

	var render ImageRender
	if err := json.Unmarshal(body, &render); err != nil {
		return nil, fmt.Errorf("parsing images response: %w", err)
	}
	if render.Err != "" {
		return nil, &APIError{Status: http.StatusOK, Err: render.Err}
	}

	return &render, nil
}

// DownloadImage downloads a rendered image from its short-lived URL.
func (c *Client) DownloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
