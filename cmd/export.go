package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/greenpoints/greenledger/jsonx"
	"github.com/greenpoints/greenledger/ledger"
	"github.com/greenpoints/greenledger/service"
)

func newExportCmd(opts *globalOptions) *cobra.Command {
	var output string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON backup of the chain, pending pool and settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLedger(cmd, func(ctx context.Context, l *ledger.Ledger) error {
				doc, err := service.NewAdminService(l, 0).Export(ctx, "cli")
				if err != nil {
					return err
				}
				if output == "" {
					return printJSON(cmd.OutOrStdout(), doc)
				}
				raw, err := jsonx.MarshalIndent(doc, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(output, raw, 0o644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported %d blocks to %s\n", len(doc.Chain), output)
				return err
			})
		},
	}
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "output file, stdout when empty")
	return exportCmd
}
