package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nyashahama/valentine-card/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "valentine",
		Short: "Valentine cards that won't take no for an answer",
		Long: `valentine creates shareable Valentine's card links, opens cards in the
terminal, and inspects the log of acceptance SMS sent by the card service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(cli.LinkCmd())
	rootCmd.AddCommand(cli.PlayCmd())
	rootCmd.AddCommand(cli.DeliveriesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
