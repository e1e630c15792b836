package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/greenpoints/greenledger/ledger"
)

func newDifficultyCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "difficulty [n]",
		Short: "Print or change the proof of work difficulty",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLedger(cmd, func(ctx context.Context, l *ledger.Ledger) error {
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					_, err := fmt.Fprintln(out, l.Difficulty())
					return err
				}
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("%w: difficulty %q is not a number", ledger.ErrInvalidSetting, args[0])
				}
				old, err := l.SetDifficulty(ctx, n)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(out, "difficulty changed from %d to %d\n", old, n)
				return err
			})
		},
	}
}
