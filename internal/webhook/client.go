// Package webhook delivers transcription results to caller-supplied callback
// URLs. Delivery is best-effort: one POST, no retries.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tinkervoid/transcriber/internal/logger"
)

const defaultTimeout = 10 * time.Second

// Client posts JSON payloads to callback URLs.
type Client struct {
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a callback client. A zero timeout uses the default.
func NewClient(timeout time.Duration, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		log:        log.WithComponent("webhook"),
	}
}

// Notify POSTs payload as JSON to url. A non-2xx response is an error; the
// caller decides whether that matters (for batch items it is only logged).
func (c *Client) Notify(ctx context.Context, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post %s: %w", url, err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook: %s returned status %d", url, resp.StatusCode)
	}

	c.log.Debug("Callback delivered", map[string]interface{}{
		"url":    url,
		"status": resp.StatusCode,
	})
	return nil
}
