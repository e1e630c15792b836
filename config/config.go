package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/greenpoints/greenledger/db"
	"github.com/greenpoints/greenledger/ledger"
	"github.com/greenpoints/greenledger/logx"
	"github.com/greenpoints/greenledger/ratelimit"
	"github.com/greenpoints/greenledger/store"
	"github.com/greenpoints/greenledger/validator"
)

const (
	DefaultNodeName = "greenledger"
	DefaultDataDir  = "./data"
	DefaultRPCAddr  = ":8545"
)

// DefaultNodeConfig is used when no node file is given.
func DefaultNodeConfig() NodeConfig {
	return NodeConfig{
		Name:    DefaultNodeName,
		DataDir: DefaultDataDir,
		Storage: StorageConfig{Type: string(store.FileStoreType)},
		RPCAddr: DefaultRPCAddr,
	}
}

// LoadNodeConfig reads and parses a node.yml file. Keys missing from the
// file keep their defaults.
func LoadNodeConfig(path string) (*NodeConfig, error) {
	logx.Info("CONFIG", fmt.Sprintf("Loading node config from %s", path))
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfgFile := ConfigFile{Node: DefaultNodeConfig()}
	if err := yaml.NewDecoder(file).Decode(&cfgFile); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfgFile.Node.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfgFile.Node, nil
}

func (c *NodeConfig) Validate() error {
	if c.AdminLogSize < 0 {
		return fmt.Errorf("admin_log_size must not be negative")
	}
	rl := c.RateLimit
	if rl.IPMaxRequests < 0 || rl.SenderMaxRequests < 0 || rl.WindowMs < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}
	sc := c.StoreConfig()
	return sc.Validate()
}

// RateLimitEnabled reports whether any request limit is configured.
func (c *NodeConfig) RateLimitEnabled() bool {
	return c.RateLimit.IPMaxRequests > 0 || c.RateLimit.SenderMaxRequests > 0
}

// SubmissionLimits maps the rate_limit section onto the limiter config. The
// window defaults to one minute.
func (c *NodeConfig) SubmissionLimits() ratelimit.SubmissionConfig {
	window := time.Minute
	if c.RateLimit.WindowMs > 0 {
		window = time.Duration(c.RateLimit.WindowMs) * time.Millisecond
	}
	base := ratelimit.DefaultConfig()
	base.WindowSize = window
	ip, sender := base, base
	ip.MaxRequests = c.RateLimit.IPMaxRequests
	sender.MaxRequests = c.RateLimit.SenderMaxRequests
	return ratelimit.SubmissionConfig{IP: ip, Sender: sender}
}

// StoreConfig maps the storage section onto the chain store factory.
func (c *NodeConfig) StoreConfig() store.StoreConfig {
	return store.StoreConfig{
		Type:      store.StoreType(c.Storage.Type),
		Directory: c.DataDir,
		Redis: db.RedisOptions{
			Addr:      c.Storage.Redis.Addr,
			Password:  c.Storage.Redis.Password,
			DB:        c.Storage.Redis.DB,
			Namespace: c.Storage.Redis.Namespace,
		},
	}
}

type ChainConfig struct {
	ProofOfWork      bool    `ini:"proof_of_work"`
	PendingPool      bool    `ini:"pending_pool"`
	Difficulty       int     `ini:"difficulty"`
	MiningReward     float64 `ini:"mining_reward"`
	ValidationPolicy string  `ini:"validation_policy"`
	MineTimeoutMs    int     `ini:"mine_timeout_ms"`
}

type MempoolConfig struct {
	MaxTxs int `ini:"max_txs"`
}

// Tuning holds the sections of the tuning .ini file.
type Tuning struct {
	Chain   ChainConfig
	Mempool MempoolConfig
	Log     logx.Config
}

func DefaultChainConfig() ChainConfig {
	d := ledger.DefaultConfig()
	return ChainConfig{
		ProofOfWork:      d.ProofOfWork,
		PendingPool:      d.PendingPool,
		Difficulty:       d.Difficulty,
		MiningReward:     d.MiningReward,
		ValidationPolicy: string(d.ValidationPolicy),
	}
}

func DefaultTuning() *Tuning {
	return &Tuning{Chain: DefaultChainConfig()}
}

func (c *ChainConfig) Validate() error {
	if _, err := validator.ParsePolicy(c.ValidationPolicy); err != nil {
		return err
	}
	if c.MineTimeoutMs < 0 {
		return fmt.Errorf("mine_timeout_ms must not be negative")
	}
	lc, err := c.LedgerConfig(MempoolConfig{})
	if err != nil {
		return err
	}
	return lc.Validate()
}

func (c *MempoolConfig) Validate() error {
	if c.MaxTxs < 0 {
		return fmt.Errorf("max_txs must not be negative")
	}
	return nil
}

// LedgerConfig builds the ledger configuration from the tuning sections.
func (c *ChainConfig) LedgerConfig(mp MempoolConfig) (ledger.Config, error) {
	policy, err := validator.ParsePolicy(c.ValidationPolicy)
	if err != nil {
		return ledger.Config{}, err
	}
	return ledger.Config{
		ProofOfWork:      c.ProofOfWork,
		PendingPool:      c.PendingPool,
		Difficulty:       c.Difficulty,
		MiningReward:     c.MiningReward,
		ValidationPolicy: policy,
		MineTimeout:      time.Duration(c.MineTimeoutMs) * time.Millisecond,
		MaxPendingTxs:    mp.MaxTxs,
	}, nil
}

// LoadChainConfig reads the [chain] section from an .ini file
func LoadChainConfig(path string) (*ChainConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	chainCfg := DefaultChainConfig()
	if err := cfg.Section("chain").MapTo(&chainCfg); err != nil {
		return nil, err
	}
	return &chainCfg, nil
}

func LoadMempoolConfig(path string) (*MempoolConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	mempoolCfg := &MempoolConfig{}
	if err := cfg.Section("mempool").MapTo(mempoolCfg); err != nil {
		return nil, err
	}
	return mempoolCfg, nil
}

// LoadTuning reads every section of the tuning file. An empty path returns
// the defaults.
func LoadTuning(path string) (*Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	logx.Info("CONFIG", fmt.Sprintf("Loading tuning config from %s", path))
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Section("chain").MapTo(&t.Chain); err != nil {
		return nil, fmt.Errorf("[chain]: %w", err)
	}
	if err := cfg.Section("mempool").MapTo(&t.Mempool); err != nil {
		return nil, fmt.Errorf("[mempool]: %w", err)
	}
	if err := cfg.Section("log").MapTo(&t.Log); err != nil {
		return nil, fmt.Errorf("[log]: %w", err)
	}
	if err := t.Chain.Validate(); err != nil {
		return nil, fmt.Errorf("[chain]: %w", err)
	}
	if err := t.Mempool.Validate(); err != nil {
		return nil, fmt.Errorf("[mempool]: %w", err)
	}
	return t, nil
}

// LedgerConfig builds the ledger configuration from the loaded tuning.
func (t *Tuning) LedgerConfig() (ledger.Config, error) {
	return t.Chain.LedgerConfig(t.Mempool)
}
