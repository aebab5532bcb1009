// Package mailer delivers survey emails through an HTTP email gateway.
package mailer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Client struct {
	gatewayURL    string
	httpClient    *http.Client
	retryAttempts int
}

// Message is the gateway payload.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Config struct {
	GatewayURL    string
	Timeout       time.Duration
	RetryAttempts int
}

func NewClient(cfg Config) *Client {
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		gatewayURL: cfg.GatewayURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retryAttempts: attempts,
	}
}

// SendEmail posts the message to the gateway, retrying with quadratic
// backoff on failure.
func (c *Client) SendEmail(to, subject, body string) error {
	payload, err := json.Marshal(Message{To: to, Subject: subject, Body: body})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt*attempt) * time.Second)
		}

		req, err := http.NewRequest("POST", c.gatewayURL, bytes.NewBuffer(payload))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		lastErr = fmt.Errorf("email gateway returned status %d", resp.StatusCode)
	}

	return fmt.Errorf("failed after %d attempts: %w", c.retryAttempts, lastErr)
}

// TestGateway sends a probe message so -check-connections can verify the
// gateway before the first real survey goes out.
func TestGateway(gatewayURL string) error {
	client := NewClient(Config{
		GatewayURL:    gatewayURL,
		Timeout:       10 * time.Second,
		RetryAttempts: 1,
	})

	return client.SendEmail("test@invalid", "NPS survey gateway test", "Connection successful.")
}
