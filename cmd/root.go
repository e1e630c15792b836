package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/greenpoints/greenledger/config"
	"github.com/greenpoints/greenledger/events"
	"github.com/greenpoints/greenledger/ledger"
	"github.com/greenpoints/greenledger/logx"
	"github.com/greenpoints/greenledger/store"
)

// globalOptions are the flags shared by every command.
type globalOptions struct {
	configPath string
	tuningPath string
	dataDir    string
	storage    string
}

// NewRootCmd builds the greenledger command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:           "greenledger",
		Short:         "GreenPoints ledger node CLI",
		Long:          "Command line interface for running and inspecting a GreenPoints hash-chained ledger.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "node config file (yaml)")
	rootCmd.PersistentFlags().StringVarP(&opts.tuningPath, "tuning", "t", "", "chain tuning file (ini)")
	rootCmd.PersistentFlags().StringVarP(&opts.dataDir, "data-dir", "d", "", "data directory, overrides the node config")
	rootCmd.PersistentFlags().StringVar(&opts.storage, "storage", "", "storage backend (file|leveldb|redis|memory), overrides the node config")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newValidateCmd(opts),
		newBalanceCmd(opts),
		newHistoryCmd(opts),
		newAppendCmd(opts),
		newSubmitCmd(opts),
		newMineCmd(opts),
		newDifficultyCmd(opts),
		newExportCmd(opts),
	)
	return rootCmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		logx.Error("CMD", fmt.Sprintf("Command execution failed: %v", err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// loadConfiguration resolves the node and tuning files plus flag overrides.
func (o *globalOptions) loadConfiguration() (*config.NodeConfig, *config.Tuning, error) {
	node := config.DefaultNodeConfig()
	if o.configPath != "" {
		loaded, err := config.LoadNodeConfig(o.configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load node config: %w", err)
		}
		node = *loaded
	}
	if o.dataDir != "" {
		node.DataDir = o.dataDir
	}
	if o.storage != "" {
		node.Storage.Type = o.storage
	}
	if err := node.Validate(); err != nil {
		return nil, nil, err
	}

	tuning, err := config.LoadTuning(o.tuningPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load tuning config: %w", err)
	}
	return &node, tuning, nil
}

// openLedger opens the configured chain store and loads the ledger from it.
func (o *globalOptions) openLedger(ctx context.Context, bus *events.EventBus) (*ledger.Ledger, *config.NodeConfig, *config.Tuning, error) {
	node, tuning, err := o.loadConfiguration()
	if err != nil {
		return nil, nil, nil, err
	}
	lc, err := tuning.LedgerConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	lc.Events = bus

	sc := node.StoreConfig()
	st, err := store.CreateStore(&sc)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open chain store: %w", err)
	}
	l, err := ledger.New(ctx, st, lc)
	if err != nil {
		_ = st.Close()
		return nil, nil, nil, err
	}
	return l, node, tuning, nil
}

// withLedger runs fn against the configured ledger and closes it afterwards.
func (o *globalOptions) withLedger(cmd *cobra.Command, fn func(ctx context.Context, l *ledger.Ledger) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	l, _, _, err := o.openLedger(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := l.Close(); cerr != nil {
			logx.Warn("CMD", fmt.Sprintf("Failed to close ledger: %v", cerr))
		}
	}()
	return fn(ctx, l)
}
