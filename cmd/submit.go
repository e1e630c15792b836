package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/greenpoints/greenledger/ledger"
	"github.com/greenpoints/greenledger/types"
)

type submitOptions struct {
	from     string
	to       string
	amount   float64
	txType   string
	metadata map[string]string
}

func newSubmitCmd(opts *globalOptions) *cobra.Command {
	so := &submitOptions{}
	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Queue a transaction in the pending pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLedger(cmd, func(ctx context.Context, l *ledger.Ledger) error {
				tx := &types.Transaction{
					Sender:    so.from,
					Recipient: so.to,
					Amount:    so.amount,
					Type:      types.TxType(so.txType),
					Metadata:  types.Metadata(so.metadata),
				}
				ok, err := l.SubmitTransaction(ctx, tx)
				if err != nil {
					return err
				}
				if !ok {
					if cerr := l.CheckTransaction(tx); cerr != nil {
						return fmt.Errorf("transaction rejected: %w", cerr)
					}
					return fmt.Errorf("transaction rejected")
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), tx.ID)
				return err
			})
		},
	}
	submitCmd.Flags().StringVar(&so.from, "from", "", "sender address")
	submitCmd.Flags().StringVar(&so.to, "to", "", "recipient address")
	submitCmd.Flags().Float64VarP(&so.amount, "amount", "a", 0, "amount of GP")
	submitCmd.Flags().StringVar(&so.txType, "type", string(types.TxTypeTransfer), "transaction type")
	submitCmd.Flags().StringToStringVarP(&so.metadata, "meta", "m", nil, "metadata key=value pairs")
	return submitCmd
}
