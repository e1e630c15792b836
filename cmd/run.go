package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/greenpoints/greenledger/events"
	"github.com/greenpoints/greenledger/exception"
	"github.com/greenpoints/greenledger/jsonrpc"
	"github.com/greenpoints/greenledger/ledger"
	"github.com/greenpoints/greenledger/logx"
	"github.com/greenpoints/greenledger/mirror"
	"github.com/greenpoints/greenledger/monitoring"
	"github.com/greenpoints/greenledger/ratelimit"
	"github.com/greenpoints/greenledger/service"
)

const shutdownTimeout = 10 * time.Second

func newRunCmd(opts *globalOptions) *cobra.Command {
	var rpcAddr string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the ledger node with its JSON-RPC server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(opts, rpcAddr)
		},
	}
	runCmd.Flags().StringVar(&rpcAddr, "rpc-addr", "", "JSON-RPC listen address, overrides the node config")
	return runCmd
}

func runNode(opts *globalOptions, rpcAddr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	node, tuning, err := opts.loadConfiguration()
	if err != nil {
		return err
	}
	logx.Init(tuning.Log)
	defer logx.Close()
	monitoring.InitMetrics()

	bus := events.NewEventBus()
	ld, node, _, err := opts.openLedger(ctx, bus)
	if err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}
	defer func() {
		if err := ld.Close(); err != nil {
			logx.Error("NODE", fmt.Sprintf("Failed to close ledger: %v", err))
		}
	}()
	logx.Info("NODE", fmt.Sprintf("Node %s loaded %d blocks (difficulty %d, proof of work %v)",
		node.Name, ld.Len(), ld.Difficulty(), ld.ProofOfWork()))

	if node.MirrorDSN != "" {
		stopMirror, err := startMirror(ctx, node.MirrorDSN, ld, bus)
		if err != nil {
			return err
		}
		defer stopMirror()
	}

	if node.MetricsAddr != "" {
		startMetricsServer(node.MetricsAddr)
	}

	if rpcAddr == "" {
		rpcAddr = node.RPCAddr
	}
	srv := jsonrpc.NewServer(rpcAddr, jsonrpc.Services{
		Tx:      service.NewTxService(ld),
		Account: service.NewAccountService(ld),
		Audit:   service.NewAuditService(ld),
		Admin:   service.NewAdminService(ld, node.AdminLogSize),
		Health:  service.NewHealthService(ld, node.Name),
	})
	if len(node.CORSOrigins) > 0 {
		srv.SetCORSConfig(jsonrpc.CORSConfig{
			AllowedOrigins: node.CORSOrigins,
			AllowedMethods: []string{http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
		})
	} else if cors, ok := jsonrpc.CORSFromEnv(); ok {
		srv.SetCORSConfig(cors)
	}
	if node.RateLimitEnabled() {
		limiter := ratelimit.NewSubmissionLimiter(node.SubmissionLimits())
		defer limiter.Stop()
		srv.SetRateLimiter(limiter)
	}
	srv.Start()

	<-ctx.Done()
	logx.Info("NODE", "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// startMirror backfills the mirror database with the current chain and
// then follows committed blocks. The returned func stops it.
func startMirror(ctx context.Context, dsn string, ld *ledger.Ledger, bus *events.EventBus) (func(), error) {
	db, err := mirror.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect mirror database: %w", err)
	}
	m := mirror.New(db, ld)
	if err := m.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	m.Start(bus)
	if err := m.Sync(ctx, ld.Blocks()); err != nil {
		logx.Warn("MIRROR", fmt.Sprintf("Initial sync incomplete: %v", err))
	}
	return func() {
		m.Stop()
		db.Close()
	}, nil
}

func startMetricsServer(addr string) {
	mux := http.NewServeMux()
	monitoring.RegisterMetrics(mux)
	exception.SafeGo("MetricsServer", func() {
		logx.Info("METRICS", fmt.Sprintf("Serving metrics on %s", addr))
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Error("METRICS", fmt.Sprintf("Metrics server stopped: %v", err))
		}
	})
}
