package card

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrWidgetNotFound is returned for unknown or expired widget ids.
var ErrWidgetNotFound = errors.New("card: widget not found")

// Registry holds live widgets for a server, keyed by a random id. A widget
// untouched for longer than the TTL is dropped; for the client that is the
// same as a reload.
type Registry struct {
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu      sync.Mutex
	widgets map[uuid.UUID]*entry
}

type entry struct {
	widget   *Widget
	lastSeen time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry(ttl time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
		widgets: make(map[uuid.UUID]*entry),
	}
}

// Add stores w and returns its id.
func (r *Registry) Add(w *Widget) uuid.UUID {
	id := uuid.New()
	r.mu.Lock()
	r.widgets[id] = &entry{widget: w, lastSeen: r.now()}
	r.mu.Unlock()
	return id
}

// Get returns the widget for id and refreshes its idle timer.
func (r *Registry) Get(id uuid.UUID) (*Widget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.widgets[id]
	if !ok {
		return nil, ErrWidgetNotFound
	}
	e.lastSeen = r.now()
	return e.widget, nil
}

// Len returns the number of live widgets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.widgets)
}

// Sweep drops widgets idle for longer than the TTL and returns how many it
// removed. A widget whose dispatch is still in flight is kept until it
// settles.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)
	removed := 0

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.widgets {
		if !e.lastSeen.Before(cutoff) {
			continue
		}
		if e.widget.gate.Dispatched() {
			select {
			case <-e.widget.gate.Done():
			default:
				continue
			}
		}
		delete(r.widgets, id)
		removed++
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug("card: swept idle widgets", "removed", n, "live", r.Len())
			}
		}
	}
}
