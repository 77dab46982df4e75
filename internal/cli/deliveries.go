package cli

import (
	"database/sql"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	_ "github.com/lib/pq" // postgres driver
	"github.com/spf13/cobra"

	"github.com/nyashahama/valentine-card/internal/config"
	"github.com/nyashahama/valentine-card/internal/store"
)

// DeliveriesCmd lists recorded acceptance notifications for a phone number.
func DeliveriesCmd() *cobra.Command {
	var dsn string
	var limit int

	cmd := &cobra.Command{
		Use:   "deliveries [phone]",
		Short: "List acceptance SMS sent to a phone number",
		Long: `List the most recent acceptance notifications recorded in the delivery log.

The database defaults to DATABASE_URL (environment or .env).

Examples:
  valentine deliveries +15551234567
  valentine deliveries +15551234567 --limit 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be at least 1, got %d", limit)
			}
			if dsn == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				dsn = cfg.DatabaseURL
			}
			if dsn == "" {
				return fmt.Errorf("no database: set DATABASE_URL or --database-url")
			}

			pool, err := sql.Open("postgres", dsn)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer pool.Close()

			list, err := store.New(pool).ListDeliveries(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			printDeliveries(cmd.OutOrStdout(), list)
			return nil
		},
	}

	cmd.Flags().StringVar(&dsn, "database-url", "", "postgres connection string")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of deliveries to show")

	return cmd
}

func printDeliveries(w io.Writer, list []store.Delivery) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No deliveries recorded.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tSTATUS\tFROM\tTO\tATTEMPTS\tDETAIL")
	for _, d := range list {
		detail := d.DeliveryID.String
		if d.Status == store.StatusFailed {
			detail = d.ErrorMessage.String
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			d.CreatedAt.Local().Format(time.DateTime),
			statusLabel(d.Status),
			orDash(d.SenderName),
			orDash(d.RecipientName),
			d.Attempts,
			detail,
		)
	}
	_ = tw.Flush()
}

func statusLabel(status string) string {
	switch status {
	case store.StatusSent:
		return color.New(color.FgGreen).Sprint(status)
	case store.StatusFailed:
		return color.New(color.FgRed).Sprint(status)
	default:
		return status
	}
}

func orDash(s sql.NullString) string {
	if !s.Valid || s.String == "" {
		return "-"
	}
	return s.String
}
