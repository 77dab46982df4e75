package card

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrDestinationRequired is returned by dispatchers for a Notification with
// no destination, before any network call is made.
var ErrDestinationRequired = errors.New("destination address required")

// Notification is what the sender is told when the card is accepted.
type Notification struct {
	Destination   string // sender's phone number; treated as opaque
	SenderName    string // person who sent the card (may be empty)
	RecipientName string // person who accepted (may be empty)
}

// Dispatcher delivers a Notification and returns the transport's delivery
// identifier. Implementations own any timeout or retry policy.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) (deliveryID string, err error)
}

// AcceptResult reports what an Accept call did.
type AcceptResult struct {
	AlreadyAccepted bool `json:"alreadyAccepted"`
	// Dispatching is true only on the call that started the notification.
	Dispatching bool `json:"dispatching"`
}

// Outcome is the recorded result of the single dispatch attempt.
type Outcome struct {
	DeliveryID string
	Err        error
	Finished   time.Time
}

// Gate is the terminal accept transition. It flips to accepted exactly once
// and starts at most one dispatch, whatever the number of Accept calls.
// Safe for concurrent use.
type Gate struct {
	dispatcher Dispatcher
	logger     *slog.Logger

	mu         sync.Mutex
	accepted   bool
	dispatched bool
	outcome    *Outcome
	done       chan struct{}
}

// NewGate returns a Gate that notifies through d. A nil d means accept never
// dispatches.
func NewGate(d Dispatcher, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		dispatcher: d,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Accept transitions to accepted. The first call with a non-empty
// destination starts the dispatch in its own goroutine and returns without
// waiting for it; ctx cancellation does not abort that dispatch. Dispatch
// failures are logged and swallowed.
func (g *Gate) Accept(ctx context.Context, n Notification) AcceptResult {
	g.mu.Lock()
	if g.accepted {
		g.mu.Unlock()
		return AcceptResult{AlreadyAccepted: true}
	}
	g.accepted = true

	if n.Destination == "" || g.dispatcher == nil || g.dispatched {
		g.mu.Unlock()
		close(g.done)
		return AcceptResult{}
	}
	// The flag flips before the lock is released so a concurrent Accept can
	// never start a second dispatch.
	g.dispatched = true
	g.mu.Unlock()

	go g.dispatch(context.WithoutCancel(ctx), n)
	return AcceptResult{Dispatching: true}
}

func (g *Gate) dispatch(ctx context.Context, n Notification) {
	id, err := g.dispatcher.Dispatch(ctx, n)

	out := &Outcome{DeliveryID: id, Err: err, Finished: time.Now()}
	if err != nil {
		g.logger.Error("card: notification failed",
			"destination", n.Destination,
			"error", err,
		)
	} else {
		g.logger.Info("card: notification sent",
			"destination", n.Destination,
			"delivery_id", id,
		)
	}

	g.mu.Lock()
	g.outcome = out
	g.mu.Unlock()
	close(g.done)
}

// Accepted reports whether Accept has been called.
func (g *Gate) Accepted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.accepted
}

// Dispatched reports whether a dispatch has been started.
func (g *Gate) Dispatched() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dispatched
}

// Done is closed once the accept side effect has settled: after the dispatch
// finished, or right after accept when there was nothing to dispatch. It is
// never closed before Accept.
func (g *Gate) Done() <-chan struct{} { return g.done }

// Outcome returns the dispatch result. ok is false until a dispatch has
// finished, and stays false when none was attempted.
func (g *Gate) Outcome() (Outcome, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.outcome == nil {
		return Outcome{}, false
	}
	return *g.outcome, true
}
