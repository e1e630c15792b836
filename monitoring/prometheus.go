package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/greenpoints/greenledger/logx"
)

type TxRejectedReason string

var (
	TxInvalidAmount   TxRejectedReason = "invalid_amount"
	TxMissingParty    TxRejectedReason = "missing_party"
	TxUnknownType     TxRejectedReason = "unknown_type"
	TxDuplicated      TxRejectedReason = "duplicated"
	TxMempoolFull     TxRejectedReason = "mempool_full"
	TxPoolDisabled    TxRejectedReason = "pool_disabled"
	TxPersistFailed   TxRejectedReason = "persistence"
	TxRejectedUnknown TxRejectedReason = "other"
)

type nodePromMetrics struct {
	nodeUpUnixSeconds   prometheus.Gauge
	mempoolSize         prometheus.Gauge
	blockHeight         prometheus.Gauge
	difficulty          prometheus.Gauge
	committedBlocks     *prometheus.CounterVec
	txInBlock           prometheus.Histogram
	ingressTxCount      prometheus.Counter
	rejectedTxCount     *prometheus.CounterVec
	miningDuration      prometheus.Histogram
	miningAttempts      prometheus.Histogram
	miningAborted       prometheus.Counter
	persistenceFailures prometheus.Counter
	validationFailures  prometheus.Counter
	mirrorFailures      prometheus.Counter
	panicCount          prometheus.Counter
}

func newNodePromMetrics(reg prometheus.Registerer) *nodePromMetrics {
	factory := promauto.With(reg)
	return &nodePromMetrics{
		nodeUpUnixSeconds: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "greenledger_node_up_timestamp_unix_seconds",
				Help: "Unix timestamp of the node",
			},
		),
		mempoolSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "greenledger_pending_pool_size",
				Help: "The total pending transactions waiting to be mined",
			},
		),
		blockHeight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "greenledger_chain_height",
				Help: "The number of blocks in the chain",
			},
		),
		difficulty: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "greenledger_difficulty",
				Help: "The current proof of work difficulty",
			},
		),
		committedBlocks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "greenledger_blocks_committed_total",
				Help: "The total number of blocks committed",
			},
			[]string{"kind"},
		),
		txInBlock: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "greenledger_tx_in_block",
				Help:    "Number of tx in block",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		ingressTxCount: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "greenledger_ingress_tx_total",
				Help: "The total number of submitted transactions",
			},
		),
		rejectedTxCount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "greenledger_rejected_tx_total",
				Help: "The total number of rejected transactions",
			},
			[]string{"reason"},
		),
		miningDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "greenledger_mining_duration_seconds",
				Help:    "Time spent searching for a nonce",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
		miningAttempts: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "greenledger_mining_attempts",
				Help:    "Nonces tried per mined block",
				Buckets: prometheus.ExponentialBuckets(1, 16, 8),
			},
		),
		miningAborted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "greenledger_mining_aborted_total",
				Help: "Mining runs ended by cancellation or timeout",
			},
		),
		persistenceFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "greenledger_persistence_failures_total",
				Help: "Failed writes of the ledger state",
			},
		),
		validationFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "greenledger_validation_failures_total",
				Help: "Chain validation runs that found integrity failures",
			},
		),
		mirrorFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "greenledger_mirror_failures_total",
				Help: "Ledger events that could not be written to the mirror database",
			},
		),
		panicCount: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "greenledger_panic_total",
				Help: "Recovered panics in background goroutines",
			},
		),
	}
}

var (
	registry    = prometheus.NewRegistry()
	nodeMetrics = newNodePromMetrics(registry)
	initOnce    sync.Once
)

// InitMetrics registers the process collectors and stamps the start time.
func InitMetrics() {
	initOnce.Do(func() {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
	nodeMetrics.nodeUpUnixSeconds.SetToCurrentTime()
}

// Registry exposes the metrics registry, mainly for tests.
func Registry() *prometheus.Registry {
	return registry
}

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("METRICS", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
}

func SetMempoolSize(size int) {
	nodeMetrics.mempoolSize.Set(float64(size))
}

func SetBlockHeight(height int) {
	nodeMetrics.blockHeight.Set(float64(height))
}

func SetDifficulty(difficulty int) {
	nodeMetrics.difficulty.Set(float64(difficulty))
}

// RecordCommittedBlock counts a block by kind ("mined" or "record").
func RecordCommittedBlock(kind string, txCount int) {
	nodeMetrics.committedBlocks.With(prometheus.Labels{"kind": kind}).Inc()
	if txCount > 0 {
		nodeMetrics.txInBlock.Observe(float64(txCount))
	}
}

func IncreaseIngressTxCount() {
	nodeMetrics.ingressTxCount.Inc()
}

func RecordRejectedTx(reason TxRejectedReason) {
	nodeMetrics.rejectedTxCount.With(prometheus.Labels{
		"reason": string(reason),
	}).Inc()
}

func RecordMining(duration time.Duration, attempts uint64) {
	nodeMetrics.miningDuration.Observe(duration.Seconds())
	nodeMetrics.miningAttempts.Observe(float64(attempts))
}

func IncreaseMiningAborted() {
	nodeMetrics.miningAborted.Inc()
}

func IncreasePersistenceFailure() {
	nodeMetrics.persistenceFailures.Inc()
}

func IncreaseValidationFailure() {
	nodeMetrics.validationFailures.Inc()
}

func IncreaseMirrorFailure() {
	nodeMetrics.mirrorFailures.Inc()
}

func IncreasePanicCount() {
	nodeMetrics.panicCount.Inc()
}
