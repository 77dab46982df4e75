// Package tui renders a card in the terminal with Bubble Tea. The viewport is
// the terminal grid and the evading control jumps between cells.
package tui

import (
	"context"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/nyashahama/valentine-card/internal/card"
)

// Padding is the placement padding in cells. Create the widget with
// card.WithPadding(Padding).
const Padding = 1

const (
	yesLabel  = "Yes! 💖"
	noLabel   = "No 😢"
	buttonGap = 3

	fallbackWidth  = 80
	fallbackHeight = 24
)

type dispatchDoneMsg struct {
	outcome  card.Outcome
	finished bool
}

// waitForDispatch blocks until the gate settles.
func waitForDispatch(g *card.Gate) tea.Cmd {
	return func() tea.Msg {
		<-g.Done()
		o, ok := g.Outcome()
		return dispatchDoneMsg{outcome: o, finished: ok}
	}
}

type rect struct{ x, y, w, h int }

func (r rect) contains(x, y int) bool {
	return x >= r.x && x < r.x+r.w && y >= r.y && y < r.y+r.h
}

// Model is the Bubble Tea model for one card.
type Model struct {
	widget *card.Widget
	view   card.View
	st     styles

	width  int
	height int

	// hovering is true while the pointer is inside the decline control, so
	// one entry engages once.
	hovering bool

	sending  bool
	notified bool
}

// New returns a Model over w.
func New(w *card.Widget) Model {
	return Model{
		widget: w,
		view:   w.View(),
		st:     defaultStyles(),
		width:  fallbackWidth,
		height: fallbackHeight,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case dispatchDoneMsg:
		m.sending = false
		m.notified = msg.finished && msg.outcome.Err == nil
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	}
	if m.view.Accepted {
		return m, nil
	}

	switch msg.String() {
	// Moving focus onto "No" makes it run; focus stays on "Yes".
	case "tab", "shift+tab", "left", "right", "h", "l", "n":
		m.engage()
		return m, nil
	case "enter", " ", "y":
		return m.accept()
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.view.Accepted {
		return m, nil
	}
	l := m.layout()

	switch {
	case msg.Action == tea.MouseActionMotion:
		in := l.no.contains(msg.X, msg.Y)
		if in && !m.hovering {
			m.engage()
			in = m.layout().no.contains(msg.X, msg.Y)
		}
		m.hovering = in

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if l.yes.contains(msg.X, msg.Y) {
			return m.accept()
		}
		if l.no.contains(msg.X, msg.Y) {
			m.engage()
		}
	}
	return m, nil
}

func (m *Model) engage() {
	m.view = m.widget.Engage(card.Geometry{
		ViewportWidth:  float64(m.width),
		ViewportHeight: float64(m.height),
		ControlWidth:   float64(lipgloss.Width(m.st.no.Render(noLabel))),
		ControlHeight:  1,
	})
}

func (m Model) accept() (tea.Model, tea.Cmd) {
	view, res := m.widget.Accept(context.Background())
	m.view = view
	if !res.Dispatching {
		return m, nil
	}
	m.sending = true
	return m, waitForDispatch(m.widget.Gate())
}

// Accepted reports whether the card has been accepted.
func (m Model) Accepted() bool { return m.view.Accepted }

// ─── LAYOUT ───────────────────────────────────────────────────────────────────

type layout struct {
	body    []string // centred, styled lines starting at row top
	top     int
	yes, no rect
}

func (m Model) bodyLines() []string {
	mood := m.view.Mood
	lines := strings.Split(m.st.face.Render(mood.Expression), "\n")
	return append(lines,
		"",
		m.st.headline.Render(m.view.Headline+" 💝"),
		m.st.question.Render(m.view.Question),
		m.st.prompt.Render(mood.Prompt),
		"",
	)
}

func (m Model) layout() layout {
	body := m.bodyLines()
	top := max(0, (m.height-len(body)-1)/2)
	row := top + len(body)

	yesW := lipgloss.Width(m.st.yes.Render(yesLabel))
	noW := lipgloss.Width(m.st.no.Render(noLabel))

	l := layout{body: body, top: top}
	if !m.view.Position.Placed {
		x := max(0, (m.width-yesW-buttonGap-noW)/2)
		l.yes = rect{x: x, y: row, w: yesW, h: 1}
		l.no = rect{x: x + yesW + buttonGap, y: row, w: noW, h: 1}
		return l
	}

	l.yes = rect{x: max(0, (m.width-yesW)/2), y: row, w: yesW, h: 1}
	// Keep the control on screen if the terminal shrank after placement.
	x := clamp(int(math.Floor(m.view.Position.X)), 0, m.width-noW)
	y := clamp(int(math.Floor(m.view.Position.Y)), 0, m.height-1)
	l.no = rect{x: x, y: y, w: noW, h: 1}
	return l
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	return min(max(v, lo), hi)
}

// ─── VIEW ─────────────────────────────────────────────────────────────────────

// View implements tea.Model.
func (m Model) View() string {
	rows := make([]string, max(m.height, 1))
	if m.view.Accepted {
		m.drawAccepted(rows)
	} else {
		m.drawAsking(rows)
	}
	if help := m.help(); help != "" && len(rows) > 1 {
		rows[len(rows)-1] = m.center(m.st.help.Render(help))
	}
	return strings.Join(rows, "\n")
}

func (m Model) drawAsking(rows []string) {
	l := m.layout()
	for i, line := range l.body {
		if r := l.top + i; r < len(rows) {
			rows[r] = m.center(line)
		}
	}

	yes := m.st.yes.Render(yesLabel)
	no := m.st.no.Render(noLabel)
	if l.yes.y < len(rows) {
		rows[l.yes.y] = overlay(rows[l.yes.y], l.yes.x, yes)
	}
	if l.no.y < len(rows) {
		rows[l.no.y] = overlay(rows[l.no.y], l.no.x, no)
	}
}

func (m Model) drawAccepted(rows []string) {
	lines := []string{
		m.st.heart.Render("💕"),
		"",
		m.st.headline.Render("Yay! 💖"),
		m.st.question.Render(m.view.Celebration),
	}
	switch {
	case m.sending:
		lines = append(lines, "", m.st.help.Render("sending the good news…"))
	case m.notified:
		lines = append(lines, "", m.st.prompt.Render("💌 They know now!"))
	}

	top := max(0, (len(rows)-len(lines))/2)
	for i, line := range lines {
		if r := top + i; r < len(rows) {
			rows[r] = m.center(line)
		}
	}
}

func (m Model) help() string {
	if m.view.Accepted {
		return "q: quit"
	}
	return "tab/→: No · enter/y: Yes · q: quit"
}

func (m Model) center(s string) string {
	pad := max(0, (m.width-lipgloss.Width(s))/2)
	return strings.Repeat(" ", pad) + s
}

// overlay draws s over line starting at cell x.
func overlay(line string, x int, s string) string {
	lineW := ansi.StringWidth(line)
	left := ansi.Cut(line, 0, x)
	if w := ansi.StringWidth(left); w < x {
		left += strings.Repeat(" ", x-w)
	}
	right := ""
	if end := x + ansi.StringWidth(s); end < lineW {
		right = ansi.Cut(line, end, lineW)
	}
	return left + s + right
}
