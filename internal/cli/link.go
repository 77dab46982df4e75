// Package cli holds the cobra commands of the valentine binary.
package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nyashahama/valentine-card/internal/share"
)

// errInvalidCard is returned after the field errors have been printed.
var errInvalidCard = errors.New("invalid card details")

// LinkCmd prints a shareable card link.
func LinkCmd() *cobra.Command {
	var baseURL string
	var form share.Form

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Create a shareable card link",
		Long: `Validate the card details and print the link to send.

The recipient opens the link in a browser. When they say yes, an SMS goes to
the phone number given here.

Examples:
  valentine link --requestor Alex --recipient Sam --phone +15551234567
  valentine link --base-url https://valentine.example.com --requestor Alex --recipient Sam --phone +15551234567`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			link, err := share.Link(baseURL, form)
			if fe, ok := share.AsFieldErrors(err); ok {
				printFieldErrors(cmd.ErrOrStderr(), fe)
				return errInvalidCard
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s Card for %s is ready:\n",
				color.New(color.FgGreen).Sprint("✓"), form.Normalize().RecipientName)
			fmt.Fprintln(w, color.New(color.FgMagenta, color.Bold).Sprint(link))
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:8080", "public address of the card service")
	cmd.Flags().StringVar(&form.RequestorName, "requestor", "", "your name")
	cmd.Flags().StringVar(&form.RecipientName, "recipient", "", "recipient's name")
	cmd.Flags().StringVar(&form.PhoneNumber, "phone", "", "your phone number, notified on yes (e.g. +1234567890)")
	cmd.Flags().StringVar(&form.Style, "style", share.DefaultStyle, "card style")

	return cmd
}

var flagForField = map[string]string{
	"requestorName": "--requestor",
	"recipientName": "--recipient",
	"phoneNumber":   "--phone",
}

func printFieldErrors(w io.Writer, fe share.FieldErrors) {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	red := color.New(color.FgRed)
	for _, f := range fields {
		name := flagForField[f]
		if name == "" {
			name = f
		}
		fmt.Fprintf(w, "%s %s: %s\n", red.Sprint("✗"), name, fe[f])
	}
}
