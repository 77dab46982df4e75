// Package sms defines the interface for outbound text messages and provides a
// Twilio-backed implementation.
package sms

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by a Sender built without provider
// credentials. It is permanent; retrying will not help.
var ErrNotConfigured = errors.New("sms: service not configured")

// Sender is the interface the worker uses to send text messages.
// Tests inject a stub that records calls without hitting the network.
type Sender interface {
	// Send delivers body to the phone number to and returns the provider's
	// message identifier.
	Send(ctx context.Context, to, body string) (sid string, err error)
}

// APIError is a non-success response from the provider.
type APIError struct {
	Status  int    // HTTP status
	Code    int    // provider error code, 0 if absent
	Message string // provider message
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("sms: provider error %d (status %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("sms: provider error (status %d): %s", e.Status, e.Message)
}

// Retryable reports whether the same request may succeed later.
func (e *APIError) Retryable() bool {
	return e.Status == 429 || e.Status >= 500
}

// Retryable reports whether err is worth another attempt. Configuration
// errors and provider rejections (4xx) are not; network failures and 5xx
// responses are.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, ErrNotConfigured) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return true
}

// AcceptedBody is the message sent to a card's sender when it is accepted.
func AcceptedBody(recipientName string) string {
	who := "They said YES! "
	if recipientName != "" {
		who = fmt.Sprintf("%s said YES! ", recipientName)
	}
	return "💕 " + who + "Your Valentine's card was accepted! 💖"
}
