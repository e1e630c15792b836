package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/greenpoints/greenledger/ledger"
)

func newValidateCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the integrity of the whole chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLedger(cmd, func(ctx context.Context, l *ledger.Ledger) error {
				report := l.Validate()
				out := cmd.OutOrStdout()
				if asJSON {
					if err := printJSON(out, report); err != nil {
						return err
					}
				} else if report.Valid {
					fmt.Fprintf(out, "chain is valid (%d blocks)\n", report.Length)
				} else {
					fmt.Fprintf(out, "chain is INVALID (%d blocks, %d failures)\n", report.Length, len(report.Failures))
					for _, f := range report.Failures {
						fmt.Fprintln(out, "  -", f.String())
					}
				}
				return report.Err()
			})
		},
	}
	validateCmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	return validateCmd
}
