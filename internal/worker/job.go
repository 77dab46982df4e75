package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nyashahama/valentine-card/internal/card"
	"github.com/nyashahama/valentine-card/internal/sms"
	"github.com/nyashahama/valentine-card/internal/store"
)

// DeliveryRecorder persists the final outcome of a dispatch. *store.Store
// satisfies it. A nil recorder means outcomes are only logged.
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, p store.RecordDeliveryParams) (store.Delivery, error)
}

// Job sends a single acceptance notification. The Runner calls Run once per
// attempt and owns the retry loop.
type Job struct {
	sender sms.Sender
	logger *slog.Logger
}

// NewJob constructs a Job with all required dependencies.
func NewJob(sender sms.Sender, logger *slog.Logger) *Job {
	return &Job{
		sender: sender,
		logger: logger,
	}
}

// Run makes one delivery attempt and returns the provider message sid.
func (j *Job) Run(ctx context.Context, n card.Notification) (string, error) {
	if n.Destination == "" {
		return "", card.ErrDestinationRequired
	}

	body := sms.AcceptedBody(n.RecipientName)
	sid, err := j.sender.Send(ctx, n.Destination, body)
	if err != nil {
		return "", fmt.Errorf("job: send sms: %w", err)
	}

	j.logger.Debug("job: sms accepted by provider", "destination", n.Destination, "sid", sid)
	return sid, nil
}
