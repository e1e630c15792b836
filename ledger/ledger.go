package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/greenpoints/greenledger/block"
	"github.com/greenpoints/greenledger/events"
	"github.com/greenpoints/greenledger/logx"
	"github.com/greenpoints/greenledger/mempool"
	"github.com/greenpoints/greenledger/monitoring"
	"github.com/greenpoints/greenledger/types"
)

// stamp fills in the creation time when missing and derives the id. The id
// is always recomputed so callers cannot choose it.
func (l *Ledger) stamp(tx *types.Transaction) {
	if tx.Timestamp.IsZero() {
		tx.Timestamp = l.clock()
	} else {
		tx.Timestamp = tx.Timestamp.UTC()
	}
	tx.ID = tx.DeriveID()
}

// CheckTransaction reports why tx would be rejected by SubmitTransaction,
// or nil if it would be accepted right now. tx is not modified.
func (l *Ledger) CheckTransaction(tx *types.Transaction) error {
	if tx == nil {
		return fmt.Errorf("%w: nil transaction", types.ErrInvalidTransaction)
	}
	cp := tx.Clone()
	l.stamp(cp)
	return l.check(cp)
}

func (l *Ledger) check(tx *types.Transaction) error {
	if !l.cfg.PendingPool {
		return ErrPoolDisabled
	}
	if err := tx.Validate(); err != nil {
		return err
	}
	if l.pool.Has(tx.ID) {
		return fmt.Errorf("%w: %s", mempool.ErrDuplicateTx, tx.ID)
	}
	if idx, ok := l.committed.BlockOf(tx.ID); ok {
		return fmt.Errorf("%w: %s already committed in block %d", mempool.ErrDuplicateTx, tx.ID, idx)
	}
	if l.cfg.MaxPendingTxs > 0 && l.pool.Len() >= l.cfg.MaxPendingTxs {
		return mempool.ErrMempoolFull
	}
	return nil
}

// SubmitTransaction adds tx to the pending pool and persists the pool.
// A transaction that fails validation returns (false, nil); the reason is
// logged, counted and available from CheckTransaction. A persistence
// failure returns (false, ErrPersistence) with the pool unchanged.
//
// tx.Timestamp (when zero) and tx.ID are set in place; the pool keeps its
// own copy.
func (l *Ledger) SubmitTransaction(ctx context.Context, tx *types.Transaction) (bool, error) {
	monitoring.IncreaseIngressTxCount()
	if tx == nil {
		l.reject("", fmt.Errorf("%w: nil transaction", types.ErrInvalidTransaction))
		return false, nil
	}
	l.stamp(tx)

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if err := l.check(tx); err != nil {
		l.reject(tx.ID, err)
		return false, nil
	}
	pooled := tx.Clone()
	if err := l.pool.Add(pooled); err != nil {
		l.reject(tx.ID, err)
		return false, nil
	}

	chain, _, reward := l.snapshot()
	if err := l.persist(ctx, chain, l.pool.GetBatch(0), l.schedule, reward); err != nil {
		l.pool.Remove(pooled.ID)
		monitoring.RecordRejectedTx(monitoring.TxPersistFailed)
		return false, err
	}

	monitoring.SetMempoolSize(l.pool.Len())
	l.bus.Publish(events.NewTransactionAccepted(pooled.Clone()))
	logx.Info("LEDGER", fmt.Sprintf("Accepted %s id %s", pooled.String(), pooled.ID))
	return true, nil
}

func (l *Ledger) reject(txID string, err error) {
	monitoring.RecordRejectedTx(rejectReason(err))
	l.bus.Publish(events.NewTransactionRejected(txID, err.Error()))
	logx.Warn("LEDGER", fmt.Sprintf("Rejected transaction %s: %v", txID, err))
}

func rejectReason(err error) monitoring.TxRejectedReason {
	switch {
	case errors.Is(err, ErrPoolDisabled):
		return monitoring.TxPoolDisabled
	case errors.Is(err, mempool.ErrDuplicateTx):
		return monitoring.TxDuplicated
	case errors.Is(err, mempool.ErrMempoolFull):
		return monitoring.TxMempoolFull
	case errors.Is(err, types.ErrInvalidTransaction):
		return invalidReason(err)
	default:
		return monitoring.TxRejectedUnknown
	}
}

func invalidReason(err error) monitoring.TxRejectedReason {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "amount"):
		return monitoring.TxInvalidAmount
	case strings.Contains(msg, "sender"), strings.Contains(msg, "recipient"):
		return monitoring.TxMissingParty
	case strings.Contains(msg, "unknown type"):
		return monitoring.TxUnknownType
	default:
		return monitoring.TxRejectedUnknown
	}
}

// FinalizeBlock bundles every pending transaction plus a mining reward for
// minerAddr into a new block, mines it when proof of work is enabled, then
// commits and persists it. Mining runs without any ledger lock; if the chain
// tip or the bundled transactions changed meanwhile, the block is rebuilt.
func (l *Ledger) FinalizeBlock(ctx context.Context, minerAddr string) (*block.Block, error) {
	if !l.cfg.PendingPool {
		return nil, ErrPoolDisabled
	}
	if minerAddr == "" {
		return nil, fmt.Errorf("%w: miner address is required", types.ErrInvalidTransaction)
	}

	l.finalizeMu.Lock()
	defer l.finalizeMu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pending := l.pool.GetBatch(0)
		if len(pending) == 0 {
			return nil, ErrNoPendingTransactions
		}

		chain, difficulty, reward := l.snapshot()
		tip := chain[len(chain)-1]
		candidate, err := l.buildCandidate(tip, pending, minerAddr, reward)
		if err != nil {
			return nil, err
		}

		mined := candidate
		if l.cfg.ProofOfWork && difficulty > 0 {
			if mined, err = l.miner.MineBlock(ctx, candidate, difficulty); err != nil {
				return nil, err
			}
		}

		committed, retry, err := l.commitMined(ctx, tip, pending, mined)
		if err != nil {
			return nil, err
		}
		if retry {
			logx.Info("LEDGER", fmt.Sprintf("Chain or difficulty changed while mining block %d, rebuilding", mined.Index))
			continue
		}
		return committed.Clone(), nil
	}
}

func (l *Ledger) buildCandidate(tip *block.Block, pending []*types.Transaction, minerAddr string, reward float64) (*block.Block, error) {
	now := l.clock()
	entries := make([]types.Entry, 0, len(pending)+1)
	for _, tx := range pending {
		entries = append(entries, types.TxEntry(tx.Clone()))
	}
	rewardTx := types.NewTransaction(types.SystemSender, minerAddr, reward, types.TxTypeMiningReward, now, nil)
	entries = append(entries, types.TxEntry(rewardTx))
	return block.New(tip.Index+1, now, entries, tip.Hash, 0)
}

// commitMined appends b if the tip it was built on is still the tip and all
// of its pool transactions are still pending; otherwise it asks for a retry.
func (l *Ledger) commitMined(ctx context.Context, tip *block.Block, pending []*types.Transaction, b *block.Block) (*block.Block, bool, error) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	chain, _, reward := l.snapshot()
	if chain[len(chain)-1].Hash != tip.Hash {
		return nil, true, nil
	}
	// a difficulty raise while mining leaves b short of what its height
	// now requires
	if l.cfg.ProofOfWork && !block.MeetsDifficulty(b.Hash, l.validateOptions(l.schedule).Required(b.Index)) {
		return nil, true, nil
	}
	bundled := make(map[string]struct{}, len(pending))
	for _, tx := range pending {
		if !l.pool.Has(tx.ID) {
			return nil, true, nil
		}
		bundled[tx.ID] = struct{}{}
	}

	remaining := make([]*types.Transaction, 0)
	for _, tx := range l.pool.GetBatch(0) {
		if _, ok := bundled[tx.ID]; !ok {
			remaining = append(remaining, tx)
		}
	}

	next := append(chain, b)
	if err := l.persist(ctx, next, remaining, l.schedule, reward); err != nil {
		return nil, false, err
	}
	l.swapChain(next)

	ids := txIDs(b.Transactions())
	l.pool.RemoveIDs(ids)
	l.committed.Add(b.Index, ids)

	monitoring.SetMempoolSize(l.pool.Len())
	monitoring.RecordCommittedBlock("mined", len(ids))
	l.bus.Publish(events.NewBlockCommitted(b))
	logx.Info("LEDGER", fmt.Sprintf("Committed block %d %s with %d transactions", b.Index, block.ShortHash(b.Hash), len(ids)))
	return b, false, nil
}

// PendingTransactions returns up to limit pending transactions in
// submission order; limit <= 0 returns all.
func (l *Ledger) PendingTransactions(limit int) []*types.Transaction {
	batch := l.pool.GetBatch(limit)
	out := make([]*types.Transaction, len(batch))
	for i, tx := range batch {
		out[i] = tx.Clone()
	}
	return out
}

// PendingCount returns the size of the pending pool.
func (l *Ledger) PendingCount() int {
	return l.pool.Len()
}

// RemovePending drops a pending transaction and persists the pool.
func (l *Ledger) RemovePending(ctx context.Context, id string) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	before := l.pool.GetBatch(0)
	if !l.pool.Remove(id) {
		return fmt.Errorf("pending transaction %s: %w", id, ErrNotFound)
	}
	chain, _, reward := l.snapshot()
	if err := l.persist(ctx, chain, l.pool.GetBatch(0), l.schedule, reward); err != nil {
		l.pool.Reset(before)
		return err
	}

	monitoring.SetMempoolSize(l.pool.Len())
	l.bus.Publish(events.NewTransactionRemoved(id))
	logx.Info("LEDGER", fmt.Sprintf("Removed pending transaction %s", id))
	return nil
}

type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusConfirmed TxStatus = "confirmed"
)

// TxRecord is a transaction looked up by id.
type TxRecord struct {
	*types.Transaction
	Status     TxStatus `json:"status"`
	BlockIndex int      `json:"block_index,omitempty"`
	BlockHash  string   `json:"block_hash,omitempty"`
}

// Transaction looks a transaction up in the pool, then in the chain.
func (l *Ledger) Transaction(id string) (*TxRecord, error) {
	if tx, ok := l.pool.Get(id); ok {
		return &TxRecord{Transaction: tx.Clone(), Status: TxStatusPending}, nil
	}
	if idx, ok := l.committed.BlockOf(id); ok {
		chain, _, _ := l.snapshot()
		if idx < len(chain) {
			for _, tx := range chain[idx].Transactions() {
				if tx.ID == id {
					return &TxRecord{
						Transaction: tx.Clone(),
						Status:      TxStatusConfirmed,
						BlockIndex:  idx,
						BlockHash:   chain[idx].Hash,
					}, nil
				}
			}
		}
	}
	return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
}
