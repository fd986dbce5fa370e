// Package uploader provides the HTTP client that turns embedded media into
// durable, externally fetchable URLs. Remote tool servers cannot
// dereference data URIs, so embedded payloads must be uploaded before a
// call is forwarded.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client uploads media blobs to the configured upload service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new upload client. An empty baseURL disables uploads;
// Upload then fails with an explanatory error.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type uploadRequest struct {
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

type uploadResponse struct {
	URL string `json:"url"`
}

// Upload stores base64-encoded data and returns its durable URL.
func (c *Client) Upload(ctx context.Context, contentType, base64Data string) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("no upload service configured")
	}

	body, err := json.Marshal(uploadRequest{ContentType: contentType, Data: base64Data})
	if err != nil {
		return "", fmt.Errorf("failed to marshal upload request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/uploads", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to upload media: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("upload service error [%d]: %s", resp.StatusCode, string(respBody))
	}

	var result uploadResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal upload response: %w", err)
	}
	if result.URL == "" {
		return "", fmt.Errorf("upload service returned no URL")
	}
	return result.URL, nil
}
