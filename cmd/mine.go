package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/greenpoints/greenledger/block"
	"github.com/greenpoints/greenledger/ledger"
)

func newMineCmd(opts *globalOptions) *cobra.Command {
	var minerAddr string
	mineCmd := &cobra.Command{
		Use:   "mine",
		Short: "Finalize the pending transactions into a new block",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLedger(cmd, func(ctx context.Context, l *ledger.Ledger) error {
				b, err := l.FinalizeBlock(ctx, minerAddr)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "block %d %s nonce=%d transactions=%d\n",
					b.Index, block.ShortHash(b.Hash), b.Nonce, len(b.Transactions()))
				return err
			})
		},
	}
	mineCmd.Flags().StringVar(&minerAddr, "miner", "", "address receiving the mining reward")
	_ = mineCmd.MarkFlagRequired("miner")
	return mineCmd
}
