package card

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
)

type blockingDispatcher struct{ release chan struct{} }

func (b blockingDispatcher) Dispatch(context.Context, Notification) (string, error) {
	<-b.release
	return "SM1", nil
}

func newTestRegistry(ttl time.Duration) (*Registry, *time.Time) {
	now := time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC)
	r := NewRegistry(ttl, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.now = func() time.Time { return now }
	return r, &now
}

func TestRegistry_GetUnknown(t *testing.T) {
	r, _ := newTestRegistry(time.Minute)
	if _, err := r.Get(uuid.New()); !errors.Is(err, ErrWidgetNotFound) {
		t.Errorf("err = %v, want ErrWidgetNotFound", err)
	}
}

func TestRegistry_SweepDropsIdleWidgets(t *testing.T) {
	r, now := newTestRegistry(10 * time.Minute)

	idle := r.Add(New(Session{}, nil))
	busy := r.Add(New(Session{}, nil))

	*now = now.Add(8 * time.Minute)
	if _, err := r.Get(busy); err != nil {
		t.Fatalf("get busy: %v", err)
	}

	*now = now.Add(5 * time.Minute)
	if n := r.Sweep(); n != 1 {
		t.Errorf("swept %d, want 1", n)
	}
	if _, err := r.Get(idle); !errors.Is(err, ErrWidgetNotFound) {
		t.Error("idle widget should be gone")
	}
	if _, err := r.Get(busy); err != nil {
		t.Errorf("recently used widget should survive: %v", err)
	}
}

func TestRegistry_SweepKeepsInFlightDispatch(t *testing.T) {
	r, now := newTestRegistry(time.Minute)

	d := blockingDispatcher{release: make(chan struct{})}
	w := New(Session{Destination: "+15551234567"}, d, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	id := r.Add(w)
	w.Accept(context.Background())

	*now = now.Add(time.Hour)
	if n := r.Sweep(); n != 0 {
		t.Errorf("swept %d while dispatch in flight, want 0", n)
	}

	close(d.release)
	<-w.Gate().Done()
	if n := r.Sweep(); n != 1 {
		t.Errorf("swept %d after dispatch settled, want 1", n)
	}
	if _, err := r.Get(id); !errors.Is(err, ErrWidgetNotFound) {
		t.Error("widget should be gone")
	}
}
