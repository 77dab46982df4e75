package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTwilioURL is the base of the Twilio REST API.
const DefaultTwilioURL = "https://api.twilio.com"

// TwilioConfig holds the account credentials and sending number.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string // Twilio number in E.164, e.g. "+15005550006"
	BaseURL    string // default DefaultTwilioURL; tests point this at httptest
}

// Configured reports whether every credential is present.
func (c TwilioConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != ""
}

// twilioClient is the concrete Sender backed by the Twilio Messages API.
type twilioClient struct {
	cfg        TwilioConfig
	httpClient *http.Client
}

// NewTwilioClient returns a Sender that delivers SMS via Twilio. When cfg is
// incomplete the returned Sender fails every Send with ErrNotConfigured
// instead of refusing to start.
func NewTwilioClient(cfg TwilioConfig) Sender {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultTwilioURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &twilioClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ─── TWILIO API SHAPES ────────────────────────────────────────────────────────

type twilioMessage struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type twilioError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

// ─── SENDER IMPLEMENTATION ────────────────────────────────────────────────────

func (c *twilioClient) Send(ctx context.Context, to, body string) (string, error) {
	if !c.cfg.Configured() {
		return "", ErrNotConfigured
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.cfg.From)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		c.cfg.BaseURL, url.PathEscape(c.cfg.AccountSID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return "", fmt.Errorf("sms: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sms: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("sms: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var parsed twilioError
		if err := json.Unmarshal(respBytes, &parsed); err == nil && parsed.Message != "" {
			apiErr.Code = parsed.Code
			apiErr.Message = parsed.Message
		} else {
			apiErr.Message = fmt.Sprintf("%.200s", string(respBytes))
		}
		return "", apiErr
	}

	var msg twilioMessage
	if err := json.Unmarshal(respBytes, &msg); err != nil {
		return "", fmt.Errorf("sms: unmarshal response (status %d): %w", resp.StatusCode, err)
	}
	if msg.SID == "" {
		return "", fmt.Errorf("sms: response without message sid (status %d)", resp.StatusCode)
	}
	return msg.SID, nil
}
