package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/greenpoints/greenledger/jsonx"
	"github.com/greenpoints/greenledger/ledger"
)

func newAppendCmd(opts *globalOptions) *cobra.Command {
	var rawJSON string
	appendCmd := &cobra.Command{
		Use:   "append [key=value ...]",
		Short: "Append an audit record as a new block",
		Long: `Append one audit record to the chain. The record is given either as
key=value pairs or as a JSON object with --json.

Examples:
  greenledger append action=login user=u42
  greenledger append --json '{"action":"grant","amount":5,"tags":["qr"]}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := parseRecord(rawJSON, args)
			if err != nil {
				return err
			}
			return opts.withLedger(cmd, func(ctx context.Context, l *ledger.Ledger) error {
				hash, err := l.AppendEntry(ctx, record)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
				return err
			})
		},
	}
	appendCmd.Flags().StringVar(&rawJSON, "json", "", "record as a JSON object")
	return appendCmd
}

func parseRecord(rawJSON string, pairs []string) (map[string]interface{}, error) {
	record := make(map[string]interface{})
	if rawJSON != "" {
		if err := jsonx.UnmarshalUseNumber([]byte(rawJSON), &record); err != nil {
			return nil, fmt.Errorf("parse --json: %w", err)
		}
	}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		record[k] = v
	}
	if len(record) == 0 {
		return nil, fmt.Errorf("record is empty")
	}
	return record, nil
}
