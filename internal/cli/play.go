package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nyashahama/valentine-card/internal/card"
	"github.com/nyashahama/valentine-card/internal/notify"
	"github.com/nyashahama/valentine-card/internal/share"
	"github.com/nyashahama/valentine-card/internal/tui"
)

// notifyGrace bounds how long play waits for an in-flight notification after
// the card is closed. It matches the notify client's HTTP timeout, which
// outlasts the service's retries.
const notifyGrace = 90 * time.Second

type playOptions struct {
	session   card.Session
	link      string
	notifyURL string
	logFile   string
}

// PlayCmd opens a card in the terminal.
func PlayCmd() *cobra.Command {
	var opts playOptions

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Open a card in the terminal",
		Long: `Open a card in the terminal. Try to pick "No".

Card details come from flags or from a link made by "valentine link". When
the card carries a phone number, saying yes notifies the sender through the
card service at --notify-url.

Examples:
  valentine play --recipient Sam --requestor Alex
  valentine play --link "http://localhost:8080/card?recipient=Sam&requestor=Alex&phone=%2B15551234567"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.session.RecipientName, "recipient", "", "recipient's name")
	cmd.Flags().StringVar(&opts.session.RequestorName, "requestor", "", "sender's name")
	cmd.Flags().StringVar(&opts.session.Destination, "phone", "", "sender's phone number, notified on yes")
	cmd.Flags().StringVar(&opts.link, "link", "", "card link; overrides the other card flags")
	cmd.Flags().StringVar(&opts.notifyURL, "notify-url", "http://localhost:8080", "card service that sends the SMS")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "write logs to this file")

	return cmd
}

func runPlay(cmd *cobra.Command, opts playOptions) error {
	session, err := opts.resolveSession()
	if err != nil {
		return err
	}

	logger, closeLog, err := openLog(opts.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	var dispatcher card.Dispatcher
	if session.Destination != "" {
		dispatcher = notify.NewClient(opts.notifyURL)
	}

	widget := card.New(session, dispatcher,
		card.WithPadding(tui.Padding),
		card.WithLogger(logger),
	)

	p := tea.NewProgram(tui.New(widget),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(cmd.Context()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("play: %w", err)
	}

	if !widget.Gate().Accepted() {
		return nil
	}
	return reportOutcome(cmd.OutOrStdout(), widget.Gate(), notifyGrace)
}

func (o playOptions) resolveSession() (card.Session, error) {
	if o.link == "" {
		return o.session, nil
	}
	params, err := share.ParseLink(o.link)
	if err != nil {
		return card.Session{}, err
	}
	return params.Session, nil
}

// reportOutcome waits up to grace for the gate to settle and prints what
// happened to the notification.
func reportOutcome(w io.Writer, g *card.Gate, grace time.Duration) error {
	if !g.Dispatched() {
		fmt.Fprintln(w, color.New(color.FgMagenta).Sprint("💖 Accepted!"))
		return nil
	}

	select {
	case <-g.Done():
	case <-time.After(grace):
		fmt.Fprintln(w, color.New(color.FgYellow).Sprint("! notification still pending, giving up"))
		return nil
	}

	o, _ := g.Outcome()
	if o.Err != nil {
		fmt.Fprintf(w, "%s sender not notified: %v\n", color.New(color.FgRed).Sprint("✗"), o.Err)
		return nil
	}
	fmt.Fprintf(w, "%s sender notified (%s)\n", color.New(color.FgGreen).Sprint("✓"), o.DeliveryID)
	return nil
}

// openLog returns a logger writing to path, or a discarding logger when path
// is empty. The terminal belongs to the card while it runs.
func openLog(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, func() { _ = f.Close() }, nil
}
