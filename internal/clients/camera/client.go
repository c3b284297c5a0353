package camera

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var (
	ErrNotFound    = errors.New("camera not found")
	ErrUnavailable = errors.New("camera unavailable")
)

// Client talks to the camera hub HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) doRequest(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: hub returned %d: %s", ErrUnavailable, resp.StatusCode, string(body))
	}

	return body, nil
}

// ListCameras returns all cameras known to the hub.
func (c *Client) ListCameras(ctx context.Context) ([]Camera, error) {
	data, err := c.doRequest(ctx, "/api/cameras")
	if err != nil {
		return nil, err
	}

	var cameras []Camera
	if err := json.Unmarshal(data, &cameras); err != nil {
		return nil, fmt.Errorf("decode cameras: %w", err)
	}
	return cameras, nil
}

// Snapshot fetches a fresh JPEG still from the camera.
func (c *Client) Snapshot(ctx context.Context, camera string) ([]byte, error) {
	if camera == "" {
		return nil, ErrNotFound
	}
	return c.doRequest(ctx, "/api/cameras/"+url.PathEscape(camera)+"/snapshot")
}
