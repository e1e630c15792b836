package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/greenpoints/greenledger/ledger"
)

func newBalanceCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <address>",
		Short: "Print the balance of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLedger(cmd, func(ctx context.Context, l *ledger.Ledger) error {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %v GP\n", args[0], l.Balance(args[0]))
				return err
			})
		},
	}
}

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <address>",
		Short: "Print every committed transaction touching an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLedger(cmd, func(ctx context.Context, l *ledger.Ledger) error {
				return printJSON(cmd.OutOrStdout(), l.History(args[0]))
			})
		},
	}
}
