// Package notifier pushes pipeline events (approval required, tool result)
// to an operator-configured webhook. Delivery is best effort; failures are
// logged and never block the pipeline.
package notifier

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

// Client posts events to a webhook URL.
type Client struct {
	webhookURL string
	httpClient *http.Client
}

// NewClient creates a notifier. An empty URL makes every Notify a no-op.
func NewClient(webhookURL string) *Client {
	return &Client{
		webhookURL: strings.TrimSpace(webhookURL),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Notify delivers one event.
func (c *Client) Notify(ctx context.Context, event map[string]interface{}) error {
	if c.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver event: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
