// Package notify sends fire-and-forget user notifications to an external
// sink. Delivery is best effort: callers dispatch through the detached task
// runner and never await the result for correctness.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Sink delivers a notification event for a user.
type Sink interface {
	Notify(ctx context.Context, userID int64, event string, payload map[string]any) error
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if a sink URL is set.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

type event struct {
	UserID  int64          `json:"user_id"`
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload,omitempty"`
}

func (c *Client) Notify(ctx context.Context, userID int64, name string, payload map[string]any) error {
	if !c.Configured() {
		return nil
	}

	body, err := json.Marshal(event{UserID: userID, Event: name, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/notifications", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notification sink error: status %d", resp.StatusCode)
	}
	return nil
}
