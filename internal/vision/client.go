package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/eleven-am/smart-selfie/internal/shared"
)

const DefaultBaseURL = "http://localhost:5000/api"

// StatusError is returned for any non-2xx response from the analysis service.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Endpoint, e.StatusCode)
}

// Client talks to the external analysis service. A zero Timeout means
// requests are bounded only by the caller's context.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.do(ctx, http.MethodGet, "/health", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) Analyze(ctx context.Context, image []byte) (*AnalyzeResponse, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("no frame data provided")
	}

	var resp AnalyzeResponse
	body := imageRequest{Image: shared.EncodeJPEGDataURL(image)}
	if err := c.do(ctx, http.MethodPost, "/analyze", body, &resp); err != nil {
		return nil, err
	}
	if resp.Success != nil && !*resp.Success {
		return nil, fmt.Errorf("analyze failed: %s", resp.Error)
	}
	return &resp, nil
}

func (c *Client) DebugFaces(ctx context.Context, image []byte) (*DebugResponse, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("no frame data provided")
	}

	var resp DebugResponse
	body := imageRequest{Image: shared.EncodeJPEGDataURL(image)}
	if err := c.do(ctx, http.MethodPost, "/debug-faces", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Capture(ctx context.Context, image []byte, meta CaptureMetadata) (*CaptureResponse, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("no image data provided")
	}

	var resp CaptureResponse
	body := captureRequest{Image: shared.EncodeJPEGDataURL(image), Metadata: meta}
	if err := c.do(ctx, http.MethodPost, "/capture", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Gallery(ctx context.Context) (*GalleryResponse, error) {
	var resp GalleryResponse
	if err := c.do(ctx, http.MethodGet, "/gallery", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeletePhoto(ctx context.Context, filename string) error {
	if filename == "" {
		return fmt.Errorf("filename is required")
	}
	return c.do(ctx, http.MethodDelete, "/gallery/"+url.PathEscape(filename), nil, nil)
}

func (c *Client) ClearGallery(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/gallery/clear", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Join(shared.ErrUnavailable, fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Endpoint: path, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
