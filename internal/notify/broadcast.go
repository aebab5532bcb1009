// Package notify pushes best-effort events to the host platform's
// broadcast webhook. Failures are logged and swallowed; nothing in the
// survey pipeline depends on a broadcast landing.
package notify

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

type Client struct {
	webhookURL string
	httpClient *http.Client
}

type event struct {
	Channel string                 `json:"channel"`
	Event   string                 `json:"event"`
	Payload map[string]interface{} `json:"payload"`
}

func NewClient(webhookURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Broadcast posts the event to the configured webhook. A nil client or an
// empty webhook URL turns it into a no-op.
func (c *Client) Broadcast(channel, name string, payload map[string]interface{}) {
	if c == nil || c.webhookURL == "" {
		return
	}

	body, err := json.Marshal(event{Channel: channel, Event: name, Payload: payload})
	if err != nil {
		slog.Warn("broadcast marshal failed", "event", name, "error", err.Error())
		return
	}

	resp, err := c.httpClient.Post(c.webhookURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		slog.Warn("broadcast failed", "event", name, "error", err.Error())
		return
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("broadcast rejected", "event", name, "status", resp.StatusCode)
	}
}
