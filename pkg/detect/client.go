package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Detection is one labeled region reported by the backend.
type Detection struct {
	// Label is the detected class name (see AllLabels).
	Label string `json:"class"`

	// Confidence is the detection score in [0, 1].
	Confidence float64 `json:"score"`

	// Box is the detected region as [x, y, width, height] in pixels.
	Box [4]int `json:"box"`
}

// Client calls the image-classification backend. The model is a black
// box from the gateway's perspective: image bytes in, labeled regions
// out.
type Client struct {
	baseURL string
	client  *http.Client
}

// ClientConfig configures the detection client.
type ClientConfig struct {
	// BaseURL is the backend's base URL.
	BaseURL string

	// Timeout bounds one classification call. Default: 30s.
	Timeout time.Duration

	// MaxIdleConnsPerHost sizes the connection pool. Default: 4.
	MaxIdleConnsPerHost int
}

// NewClient creates a detection client with a pooled transport.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxIdleConnsPerHost == 0 {
		cfg.MaxIdleConnsPerHost = 4
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConnsPerHost * 2,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}
}

// Detect submits the image and returns the labeled regions. An empty
// slice means the backend found nothing, which is a normal outcome.
func (c *Client) Detect(ctx context.Context, image []byte, contentType string) ([]Detection, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("image is empty")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/detect", bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("failed to build detect request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detection backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("detection backend returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var detections []Detection
	if err := json.NewDecoder(resp.Body).Decode(&detections); err != nil {
		return nil, fmt.Errorf("failed to decode detection response: %w", err)
	}
	return detections, nil
}
