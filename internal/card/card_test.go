package card_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/nyashahama/valentine-card/internal/card"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

// fixedRand returns the same value on every draw.
type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

// seqRand cycles through vals.
type seqRand struct {
	vals []float64
	i    int
}

func (s *seqRand) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

// stubDispatcher records calls and returns a canned result.
type stubDispatcher struct {
	mu    sync.Mutex
	calls []card.Notification
	id    string
	err   error
	// release, when non-nil, blocks Dispatch until closed.
	release chan struct{}
}

func (d *stubDispatcher) Dispatch(_ context.Context, n card.Notification) (string, error) {
	d.mu.Lock()
	d.calls = append(d.calls, n)
	d.mu.Unlock()
	if d.release != nil {
		<-d.release
	}
	return d.id, d.err
}

func (d *stubDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitDone(t *testing.T, g *card.Gate) {
	t.Helper()
	select {
	case <-g.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch to settle")
	}
}

var phone = card.Geometry{ViewportWidth: 390, ViewportHeight: 844, ControlWidth: 120, ControlHeight: 60}

// ─── Escalation ───────────────────────────────────────────────────────────────

func TestEscalation_LevelIsMinOfEngagementsAndCap(t *testing.T) {
	for n := 0; n <= 12; n++ {
		var e card.Escalation
		for range n {
			e.Engage()
		}
		want := min(n, card.MaxLevel)
		if e.Level() != want {
			t.Errorf("after %d engagements: level=%d, want %d", n, e.Level(), want)
		}
		if e.Mood() != card.MoodFor(want) {
			t.Errorf("after %d engagements: mood=%+v, want %+v", n, e.Mood(), card.MoodFor(want))
		}
	}
}

func TestMoodFor_TableHasNoGapsAndClamps(t *testing.T) {
	seen := map[string]bool{}
	for level := 0; level <= card.MaxLevel; level++ {
		m := card.MoodFor(level)
		if m.Level != level {
			t.Errorf("MoodFor(%d).Level = %d", level, m.Level)
		}
		if m.Expression == "" || m.Prompt == "" {
			t.Errorf("MoodFor(%d) has empty fields: %+v", level, m)
		}
		if seen[m.Prompt] {
			t.Errorf("MoodFor(%d) repeats prompt %q", level, m.Prompt)
		}
		seen[m.Prompt] = true
	}

	if got := card.MoodFor(-3); got != card.MoodFor(0) {
		t.Errorf("MoodFor(-3) = %+v, want level-0 mood", got)
	}
	for _, level := range []int{6, 7, 100} {
		if got := card.MoodFor(level); got != card.MoodFor(card.MaxLevel) {
			t.Errorf("MoodFor(%d) = %+v, want level-5 mood", level, got)
		}
	}
}

func TestMoodFor_KnownPrompts(t *testing.T) {
	tests := []struct {
		level  int
		prompt string
		face   string
	}{
		{0, "Please say yes! 😊", "😊"},
		{2, "I'm getting sad... 😔", "😔"},
		{3, "Please reconsider... 😢", "😢"},
		{5, "You've broken my heart... 💔", "💔"},
	}
	for _, tt := range tests {
		m := card.MoodFor(tt.level)
		if m.Prompt != tt.prompt || m.Expression != tt.face {
			t.Errorf("level %d: got (%q, %q), want (%q, %q)", tt.level, m.Expression, m.Prompt, tt.face, tt.prompt)
		}
	}
}

// ─── Placer ───────────────────────────────────────────────────────────────────

func TestPlacer_StaysWithinBounds(t *testing.T) {
	const padding = 20
	for _, r := range []float64{0, 0.25, 0.5, 0.999999} {
		p := card.NewPlacer(fixedRand(r))
		pos := p.PlaceIn(phone, padding)

		maxX := phone.ViewportWidth - phone.ControlWidth - padding
		maxY := phone.ViewportHeight - phone.ControlHeight - padding
		if pos.X < padding || pos.X > maxX {
			t.Errorf("r=%v: x=%v outside [%v, %v]", r, pos.X, padding, maxX)
		}
		if pos.Y < padding || pos.Y > maxY {
			t.Errorf("r=%v: y=%v outside [%v, %v]", r, pos.Y, padding, maxY)
		}
		if !pos.Placed {
			t.Errorf("r=%v: position not marked placed", r)
		}
	}
}

func TestPlacer_UniformDrawMapsOntoRange(t *testing.T) {
	p := card.NewPlacer(fixedRand(0.5))
	pos := p.Place(1000, 500, 100, 50, 20)

	// x ∈ [20, 880] → midpoint 450; y ∈ [20, 430] → midpoint 225.
	if pos.X != 450 || pos.Y != 225 {
		t.Errorf("got (%v, %v), want (450, 225)", pos.X, pos.Y)
	}

	low := card.NewPlacer(fixedRand(0)).Place(1000, 500, 100, 50, 20)
	if low.X != 20 || low.Y != 20 {
		t.Errorf("r=0: got (%v, %v), want (20, 20)", low.X, low.Y)
	}
}

func TestPlacer_DegenerateViewportClampsToPadding(t *testing.T) {
	tests := []struct {
		name           string
		vw, vh, cw, ch float64
	}{
		{"control wider than viewport", 100, 800, 200, 40},
		{"control taller than viewport", 800, 30, 100, 40},
		{"exactly no room", 140, 80, 100, 40},
		{"zero viewport", 0, 0, 100, 40},
		{"zero everything", 0, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := card.NewPlacer(fixedRand(0.9))
			pos := p.Place(tt.vw, tt.vh, tt.cw, tt.ch, 20)

			if tt.cw+40 >= tt.vw && pos.X != 20 {
				t.Errorf("x = %v, want 20", pos.X)
			}
			if tt.ch+40 >= tt.vh && pos.Y != 20 {
				t.Errorf("y = %v, want 20", pos.Y)
			}
			if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || pos.X < 0 || pos.Y < 0 {
				t.Errorf("invalid coordinate (%v, %v)", pos.X, pos.Y)
			}
		})
	}
}

func TestPlacer_NaNInputsNeverLeak(t *testing.T) {
	p := card.NewPlacer(fixedRand(0.3))
	pos := p.Place(math.NaN(), math.Inf(1), 10, 10, 20)
	if pos.X != 20 || pos.Y != 20 {
		t.Errorf("got (%v, %v), want (20, 20)", pos.X, pos.Y)
	}
}

func TestPlacer_NilSourceUsesGlobalGenerator(t *testing.T) {
	p := card.NewPlacer(nil)
	for range 200 {
		pos := p.PlaceIn(phone, 20)
		if pos.X < 20 || pos.X > 250 || pos.Y < 20 || pos.Y > 764 {
			t.Fatalf("out of bounds: %+v", pos)
		}
	}
}

// ─── Gate ─────────────────────────────────────────────────────────────────────

func TestGate_AcceptTwice_DispatchesOnce(t *testing.T) {
	d := &stubDispatcher{id: "SM123"}
	g := card.NewGate(d, discardLogger())
	n := card.Notification{Destination: "+15551234567"}

	first := g.Accept(context.Background(), n)
	second := g.Accept(context.Background(), n)
	waitDone(t, g)

	if first.AlreadyAccepted || !first.Dispatching {
		t.Errorf("first accept = %+v, want dispatching", first)
	}
	if !second.AlreadyAccepted || second.Dispatching {
		t.Errorf("second accept = %+v, want alreadyAccepted", second)
	}
	if d.callCount() != 1 {
		t.Errorf("dispatch calls = %d, want 1", d.callCount())
	}
}

func TestGate_ConcurrentAccept_DispatchesOnce(t *testing.T) {
	d := &stubDispatcher{id: "SM1", release: make(chan struct{})}
	g := card.NewGate(d, discardLogger())
	n := card.Notification{Destination: "+15551234567"}

	var wg sync.WaitGroup
	var mu sync.Mutex
	started := 0
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Accept(context.Background(), n).Dispatching {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(d.release)
	waitDone(t, g)

	if started != 1 {
		t.Errorf("dispatches started = %d, want 1", started)
	}
	if d.callCount() != 1 {
		t.Errorf("dispatch calls = %d, want 1", d.callCount())
	}
}

func TestGate_DispatchFailure_StaysAccepted(t *testing.T) {
	d := &stubDispatcher{err: errors.New("twilio: 503")}
	g := card.NewGate(d, discardLogger())

	g.Accept(context.Background(), card.Notification{Destination: "+15551234567"})
	waitDone(t, g)

	if !g.Accepted() {
		t.Error("gate rolled back after failed dispatch")
	}
	out, ok := g.Outcome()
	if !ok || out.Err == nil {
		t.Errorf("outcome = %+v ok=%v, want recorded error", out, ok)
	}
	if res := g.Accept(context.Background(), card.Notification{Destination: "+15551234567"}); !res.AlreadyAccepted {
		t.Error("accept after failure should be a no-op")
	}
	if d.callCount() != 1 {
		t.Errorf("dispatch calls = %d, want 1 (no retry from the gate)", d.callCount())
	}
}

func TestGate_NoDestination_NoDispatch(t *testing.T) {
	d := &stubDispatcher{id: "SM1"}
	g := card.NewGate(d, discardLogger())

	res := g.Accept(context.Background(), card.Notification{SenderName: "Sam"})
	waitDone(t, g)

	if res.Dispatching || res.AlreadyAccepted {
		t.Errorf("result = %+v", res)
	}
	if !g.Accepted() {
		t.Error("expected accepted")
	}
	if d.callCount() != 0 {
		t.Errorf("dispatch calls = %d, want 0", d.callCount())
	}
	if _, ok := g.Outcome(); ok {
		t.Error("no outcome expected without a dispatch")
	}
}

func TestGate_CancelledRequestContextDoesNotAbortDispatch(t *testing.T) {
	d := &ctxCheckingDispatcher{}
	g := card.NewGate(d, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	g.Accept(ctx, card.Notification{Destination: "+15551234567"})
	cancel()
	waitDone(t, g)

	out, _ := g.Outcome()
	if out.Err != nil {
		t.Errorf("dispatch saw cancelled context: %v", out.Err)
	}
}

type ctxCheckingDispatcher struct{}

func (ctxCheckingDispatcher) Dispatch(ctx context.Context, _ card.Notification) (string, error) {
	time.Sleep(10 * time.Millisecond)
	return "SMok", ctx.Err()
}

func TestGate_DoneNotClosedBeforeAccept(t *testing.T) {
	g := card.NewGate(&stubDispatcher{}, discardLogger())
	select {
	case <-g.Done():
		t.Fatal("Done closed before Accept")
	default:
	}
}

// ─── Widget ───────────────────────────────────────────────────────────────────

func TestWidget_EngageThreeTimesThenAccept(t *testing.T) {
	d := &stubDispatcher{id: "SM9f1c"}
	w := card.New(card.Session{
		RecipientName: "Alex",
		RequestorName: "Sam",
		Destination:   "+15551234567",
	}, d, card.WithRand(fixedRand(0.5)), card.WithLogger(discardLogger()))

	var v card.View
	for range 3 {
		v = w.Engage(phone)
	}
	if v.Mood.Level != 3 || v.Mood.Prompt != card.MoodFor(3).Prompt {
		t.Errorf("after 3 engagements mood = %+v", v.Mood)
	}
	if !v.Position.Placed {
		t.Error("position should be placed after engagement")
	}

	v, res := w.Accept(context.Background())
	if !v.Accepted || res.AlreadyAccepted {
		t.Errorf("accept view=%+v res=%+v", v, res)
	}
	waitDone(t, w.Gate())

	if d.callCount() != 1 {
		t.Fatalf("dispatch calls = %d, want 1", d.callCount())
	}
	got := d.calls[0]
	if got.Destination != "+15551234567" || got.SenderName != "Sam" || got.RecipientName != "Alex" {
		t.Errorf("notification = %+v", got)
	}
	out, ok := w.Gate().Outcome()
	if !ok || out.DeliveryID != "SM9f1c" {
		t.Errorf("outcome = %+v ok=%v, want delivery id recorded", out, ok)
	}
}

func TestWidget_EngageSevenTimesClampsToFive(t *testing.T) {
	w := card.New(card.Session{}, nil, card.WithRand(fixedRand(0.1)))
	var v card.View
	for range 7 {
		v = w.Engage(phone)
	}
	if w.Level() != 5 || v.Mood != card.MoodFor(5) {
		t.Errorf("level=%d mood=%+v, want level 5", w.Level(), v.Mood)
	}
}

func TestWidget_EngageAfterAcceptIsNoOp(t *testing.T) {
	src := &seqRand{vals: []float64{0.1, 0.2, 0.8, 0.9}}
	w := card.New(card.Session{}, nil, card.WithRand(src))

	before := w.Engage(phone)
	w.Accept(context.Background())
	after := w.Engage(phone)

	if w.Level() != 1 {
		t.Errorf("level = %d, want 1", w.Level())
	}
	if after.Position != before.Position {
		t.Errorf("position moved after accept: %+v → %+v", before.Position, after.Position)
	}
	if !after.Accepted {
		t.Error("view should report accepted")
	}
}

func TestWidget_InitialViewIsInFlow(t *testing.T) {
	w := card.New(card.Session{}, nil)
	v := w.View()
	if v.Position.Placed || v.Accepted || v.Mood.Level != 0 {
		t.Errorf("initial view = %+v", v)
	}
	if v.Question != "Will you be my Valentine, you?" {
		t.Errorf("question = %q", v.Question)
	}
	if v.Headline != "Will you be my Valentine?" || v.Celebration != "You made me so happy!" {
		t.Errorf("fallback texts = %q / %q", v.Headline, v.Celebration)
	}
}

func TestSession_Texts(t *testing.T) {
	s := card.Session{RecipientName: "Alex", RequestorName: "Sam"}
	if s.DisplayName() != "Alex" {
		t.Errorf("display name = %q", s.DisplayName())
	}
	if s.Headline() != "Sam wants to know:" {
		t.Errorf("headline = %q", s.Headline())
	}
	if s.Celebration() != "Sam will be so happy!" {
		t.Errorf("celebration = %q", s.Celebration())
	}
}
