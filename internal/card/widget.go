package card

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultPadding keeps the evading control this far from every viewport
// edge, in viewport units.
const DefaultPadding = 20

// Session carries the parameters a card is opened with. Every field is
// optional.
type Session struct {
	RecipientName string `json:"recipientName,omitempty"`
	RequestorName string `json:"requestorName,omitempty"`
	Destination   string `json:"phoneNumber,omitempty"`
}

// DisplayName is how the recipient is addressed.
func (s Session) DisplayName() string {
	if s.RecipientName != "" {
		return s.RecipientName
	}
	return "you"
}

// Headline is the line above the question.
func (s Session) Headline() string {
	if s.RequestorName != "" {
		return fmt.Sprintf("%s wants to know:", s.RequestorName)
	}
	return "Will you be my Valentine?"
}

// Question is the main question addressed to the recipient.
func (s Session) Question() string {
	return fmt.Sprintf("Will you be my Valentine, %s?", s.DisplayName())
}

// Celebration is shown once the card is accepted.
func (s Session) Celebration() string {
	if s.RequestorName != "" {
		return fmt.Sprintf("%s will be so happy!", s.RequestorName)
	}
	return "You made me so happy!"
}

// View is everything a UI needs to draw the card.
type View struct {
	Mood        Mood     `json:"mood"`
	Position    Position `json:"position"`
	Accepted    bool     `json:"accepted"`
	Headline    string   `json:"headline"`
	Question    string   `json:"question"`
	Celebration string   `json:"celebration"`
}

// Option configures a Widget.
type Option func(*Widget)

// WithRand sets the placement random source.
func WithRand(src RandSource) Option {
	return func(w *Widget) { w.placer = NewPlacer(src) }
}

// WithPadding sets the placement padding.
func WithPadding(p float64) Option {
	return func(w *Widget) { w.padding = p }
}

// WithLogger sets the logger used for dispatch outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(w *Widget) { w.logger = l }
}

// Widget is one card session: Idle(level) until accepted, then Accepted for
// good. Safe for concurrent use.
type Widget struct {
	session Session
	placer  *Placer
	padding float64
	logger  *slog.Logger
	gate    *Gate

	mu         sync.Mutex
	escalation Escalation
	position   Position
}

// New mounts a widget at level 0 with the control in its default position.
func New(s Session, d Dispatcher, opts ...Option) *Widget {
	w := &Widget{
		session: s,
		padding: DefaultPadding,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.placer == nil {
		w.placer = NewPlacer(nil)
	}
	w.gate = NewGate(d, w.logger)
	return w
}

// Engage handles one engagement with the decline control: it moves the
// control and escalates the mood. Once accepted it changes nothing.
func (w *Widget) Engage(g Geometry) View {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.gate.Accepted() {
		return w.viewLocked(true)
	}
	w.position = w.placer.PlaceIn(g, w.padding)
	w.escalation.Engage()
	return w.viewLocked(false)
}

// Accept handles activation of the accept control.
func (w *Widget) Accept(ctx context.Context) (View, AcceptResult) {
	w.mu.Lock()
	defer w.mu.Unlock()

	res := w.gate.Accept(ctx, Notification{
		Destination:   w.session.Destination,
		SenderName:    w.session.RequestorName,
		RecipientName: w.session.RecipientName,
	})
	return w.viewLocked(true), res
}

// View returns the current render state.
func (w *Widget) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.viewLocked(w.gate.Accepted())
}

// Level returns the current engagement level.
func (w *Widget) Level() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.escalation.Level()
}

// Session returns the parameters the widget was mounted with.
func (w *Widget) Session() Session { return w.session }

// Gate exposes the acceptance gate so callers can wait on the dispatch.
func (w *Widget) Gate() *Gate { return w.gate }

func (w *Widget) viewLocked(accepted bool) View {
	return View{
		Mood:        w.escalation.Mood(),
		Position:    w.position,
		Accepted:    accepted,
		Headline:    w.session.Headline(),
		Question:    w.session.Question(),
		Celebration: w.session.Celebration(),
	}
}
