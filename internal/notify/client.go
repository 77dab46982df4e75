// Package notify is the HTTP client of the card service's send-sms endpoint.
// It lets a card rendered outside the service (the terminal card) deliver its
// acceptance notification through a running server.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nyashahama/valentine-card/internal/card"
)

// SendPath is the endpoint path on the card service.
const SendPath = "/api/send-sms"

// ─── WIRE SHAPES ─────────────────────────────────────────────────────────────

// Request is the JSON body of POST /api/send-sms.
type Request struct {
	PhoneNumber   string `json:"phoneNumber"`
	RequestorName string `json:"requestorName,omitempty"`
	RecipientName string `json:"recipientName,omitempty"`
}

// Response is the JSON body of every send-sms reply.
type Response struct {
	Success    bool   `json:"success,omitempty"`
	DeliveryID string `json:"deliveryId,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ─── CLIENT ──────────────────────────────────────────────────────────────────

// Client posts notifications to a card service. It satisfies
// card.Dispatcher.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a Client for the service at baseURL,
// e.g. "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// Longer than the service's send-sms deadline, which covers
			// every delivery retry.
			Timeout: 90 * time.Second,
		},
	}
}

// Dispatch sends n and returns the delivery id reported by the service.
func (c *Client) Dispatch(ctx context.Context, n card.Notification) (string, error) {
	if n.Destination == "" {
		return "", card.ErrDestinationRequired
	}

	bodyBytes, err := json.Marshal(Request{
		PhoneNumber:   n.Destination,
		RequestorName: n.SenderName,
		RecipientName: n.RecipientName,
	})
	if err != nil {
		return "", fmt.Errorf("notify: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+SendPath, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("notify: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("notify: read response: %w", err)
	}

	var parsed Response
	decodeErr := json.Unmarshal(respBytes, &parsed)

	// Error statuses may carry an empty or non-JSON body (a gateway
	// timeout, for one).
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := parsed.Error
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("notify: status %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("notify: unmarshal response (status %d): %w", resp.StatusCode, decodeErr)
	}
	if !parsed.Success {
		return "", fmt.Errorf("notify: service reported failure: %s", parsed.Error)
	}
	return parsed.DeliveryID, nil
}
