package miner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/greenpoints/greenledger/block"
	"github.com/greenpoints/greenledger/logx"
	"github.com/greenpoints/greenledger/monitoring"
)

// ErrMiningAborted wraps the context error of a cancelled or timed out run.
var ErrMiningAborted = errors.New("mining aborted")

// Miner searches for a nonce that gives a block the requested number of
// leading zero hex digits. It holds no ledger state and is safe for
// concurrent use.
type Miner struct {
	timeout time.Duration
}

// New returns a miner. timeout <= 0 means only the caller's context bounds a run.
func New(timeout time.Duration) *Miner {
	return &Miner{timeout: timeout}
}

// MineBlock mines a copy of candidate and returns it. The candidate itself is
// never modified, so a caller can rebuild and retry after an abort.
func (m *Miner) MineBlock(ctx context.Context, candidate *block.Block, difficulty int) (*block.Block, error) {
	if candidate == nil {
		return nil, fmt.Errorf("%w: nil candidate", block.ErrValidation)
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	b := candidate.Clone()
	b.Nonce = 0
	start := time.Now()
	attempts, err := b.Mine(ctx, difficulty)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			monitoring.IncreaseMiningAborted()
			logx.Warn("MINER", fmt.Sprintf("Mining block %d aborted after %d attempts in %s: %v", b.Index, attempts, elapsed, err))
			return nil, fmt.Errorf("%w: %w", ErrMiningAborted, err)
		}
		return nil, err
	}

	monitoring.RecordMining(elapsed, attempts)
	logx.Info("MINER", fmt.Sprintf("Mined block %d at difficulty %d: %s nonce=%d attempts=%d in %s",
		b.Index, difficulty, block.ShortHash(b.Hash), b.Nonce, attempts, elapsed))
	return b, nil
}
