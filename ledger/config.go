package ledger

import (
	"fmt"
	"math"
	"time"

	"github.com/greenpoints/greenledger/events"
	"github.com/greenpoints/greenledger/validator"
)

const (
	DefaultDifficulty   = 2
	DefaultMiningReward = 10.0
	// MaxDifficulty bounds the expected search to 16^16 hashes.
	MaxDifficulty = 16
)

// Config parameterizes one ledger core. An audit chain is ProofOfWork=false
// and PendingPool=false; a reward chain enables both.
type Config struct {
	ProofOfWork      bool
	PendingPool      bool
	Difficulty       int
	MiningReward     float64
	ValidationPolicy validator.Policy
	// MineTimeout bounds a single mining run; 0 disables the bound.
	MineTimeout time.Duration
	// MaxPendingTxs caps the pending pool; 0 means unbounded.
	MaxPendingTxs int

	// Clock stamps blocks and transactions; defaults to time.Now.
	Clock func() time.Time
	// Events receives ledger events when set.
	Events *events.EventBus
}

// DefaultConfig is a proof-of-work reward chain.
func DefaultConfig() Config {
	return Config{
		ProofOfWork:      true,
		PendingPool:      true,
		Difficulty:       DefaultDifficulty,
		MiningReward:     DefaultMiningReward,
		ValidationPolicy: validator.PolicyRecorded,
	}
}

// AuditConfig is a plain hash-chained log: no mining, no pool.
func AuditConfig() Config {
	return Config{
		MiningReward:     DefaultMiningReward,
		ValidationPolicy: validator.PolicyRecorded,
	}
}

func (c *Config) Validate() error {
	if err := validateDifficulty(c.Difficulty); err != nil {
		return err
	}
	if err := validateReward(c.MiningReward); err != nil {
		return err
	}
	if _, err := validator.ParsePolicy(string(c.ValidationPolicy)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSetting, err)
	}
	if c.MineTimeout < 0 {
		return fmt.Errorf("%w: negative mine timeout", ErrInvalidSetting)
	}
	if c.MaxPendingTxs < 0 {
		return fmt.Errorf("%w: negative pending pool size", ErrInvalidSetting)
	}
	return nil
}

func validateDifficulty(d int) error {
	if d < 0 || d > MaxDifficulty {
		return fmt.Errorf("%w: difficulty must be between 0 and %d, got %d", ErrInvalidSetting, MaxDifficulty, d)
	}
	return nil
}

func validateReward(r float64) error {
	if !(r > 0) || math.IsInf(r, 0) {
		return fmt.Errorf("%w: mining reward must be positive, got %v", ErrInvalidSetting, r)
	}
	return nil
}
