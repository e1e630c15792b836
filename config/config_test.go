package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenpoints/greenledger/ledger"
	"github.com/greenpoints/greenledger/store"
	"github.com/greenpoints/greenledger/validator"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadNodeConfig(t *testing.T) {
	path := writeFile(t, "node.yml", `
node:
  name: rewards-1
  data_dir: /var/lib/greenledger
  storage:
    type: leveldb
  cors_origins:
    - https://dash.example
  mirror_dsn: postgres://ledger@localhost/ledger?sslmode=disable
  rate_limit:
    sender_max_requests: 5
    window_ms: 2000
`)
	cfg, err := LoadNodeConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "rewards-1", cfg.Name)
	assert.Equal(t, DefaultRPCAddr, cfg.RPCAddr)
	assert.Equal(t, []string{"https://dash.example"}, cfg.CORSOrigins)

	sc := cfg.StoreConfig()
	assert.Equal(t, store.LevelDBStoreType, sc.Type)
	assert.Equal(t, "/var/lib/greenledger", sc.Directory)

	require.True(t, cfg.RateLimitEnabled())
	limits := cfg.SubmissionLimits()
	assert.Equal(t, 0, limits.IP.MaxRequests)
	assert.Equal(t, 5, limits.Sender.MaxRequests)
	assert.Equal(t, 2*time.Second, limits.Sender.WindowSize)
}

func TestLoadNodeConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown storage", "node:\n  storage:\n    type: mongo\n"},
		{"redis without addr", "node:\n  storage:\n    type: redis\n"},
		{"empty data dir", "node:\n  data_dir: \"\"\n"},
		{"negative log size", "node:\n  admin_log_size: -1\n"},
		{"negative rate limit", "node:\n  rate_limit:\n    ip_max_requests: -1\n"},
		{"not yaml", "node: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadNodeConfig(writeFile(t, "node.yml", tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadNodeConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoadTuning(t *testing.T) {
	path := writeFile(t, "tuning.ini", `
[chain]
difficulty = 3
mining_reward = 12.5
validation_policy = current
mine_timeout_ms = 1500

[mempool]
max_txs = 500

[log]
filename = ./logs/test.log
max_size_mb = 10
`)
	tuning, err := LoadTuning(path)
	require.NoError(t, err)

	assert.Equal(t, 3, tuning.Chain.Difficulty)
	assert.True(t, tuning.Chain.ProofOfWork, "missing keys keep their defaults")
	assert.Equal(t, 500, tuning.Mempool.MaxTxs)
	assert.Equal(t, "./logs/test.log", tuning.Log.Filename)
	assert.Equal(t, 10, tuning.Log.MaxSizeMB)

	lc, err := tuning.LedgerConfig()
	require.NoError(t, err)
	assert.Equal(t, 12.5, lc.MiningReward)
	assert.Equal(t, validator.PolicyCurrent, lc.ValidationPolicy)
	assert.Equal(t, 1500*time.Millisecond, lc.MineTimeout)
	assert.Equal(t, 500, lc.MaxPendingTxs)
}

func TestLoadTuning_Defaults(t *testing.T) {
	tuning, err := LoadTuning("")
	require.NoError(t, err)

	lc, err := tuning.LedgerConfig()
	require.NoError(t, err)
	assert.Equal(t, ledger.DefaultDifficulty, lc.Difficulty)
	assert.Equal(t, ledger.DefaultMiningReward, lc.MiningReward)
	assert.Equal(t, validator.PolicyRecorded, lc.ValidationPolicy)
}

func TestLoadTuning_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"difficulty out of range", "[chain]\ndifficulty = 17\n"},
		{"zero reward", "[chain]\nmining_reward = 0\n"},
		{"unknown policy", "[chain]\nvalidation_policy = strict\n"},
		{"negative timeout", "[chain]\nmine_timeout_ms = -1\n"},
		{"negative pool", "[mempool]\nmax_txs = -5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTuning(writeFile(t, "tuning.ini", tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadChainAndMempoolConfig(t *testing.T) {
	path := writeFile(t, "tuning.ini", "[chain]\nproof_of_work = false\npending_pool = false\n\n[mempool]\nmax_txs = 7\n")

	chain, err := LoadChainConfig(path)
	require.NoError(t, err)
	assert.False(t, chain.ProofOfWork)
	assert.False(t, chain.PendingPool)
	assert.Equal(t, ledger.DefaultDifficulty, chain.Difficulty)

	mp, err := LoadMempoolConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7, mp.MaxTxs)
}
