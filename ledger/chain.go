package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/greenpoints/greenledger/block"
	"github.com/greenpoints/greenledger/events"
	"github.com/greenpoints/greenledger/logx"
	"github.com/greenpoints/greenledger/mempool"
	"github.com/greenpoints/greenledger/miner"
	"github.com/greenpoints/greenledger/monitoring"
	"github.com/greenpoints/greenledger/store"
	"github.com/greenpoints/greenledger/types"
	"github.com/greenpoints/greenledger/validator"
)

// Ledger is an append-only chain of blocks with an optional pending pool.
//
// Locking: mu guards chain, schedule and reward for readers. writeMu
// serializes every mutation together with its persistence; the new state is
// written first and swapped in only once the write succeeded. finalizeMu lets
// one finalize run at a time and is never held by other mutations, so
// submissions continue while a block is mined.
type Ledger struct {
	cfg   Config
	store store.ChainStore
	miner *miner.Miner
	bus   *events.EventBus
	clock func() time.Time

	mu    sync.RWMutex
	chain []*block.Block
	// schedule is replaced, never modified in place; its last step is the
	// current difficulty
	schedule block.DifficultySchedule
	reward   float64

	writeMu    sync.Mutex
	finalizeMu sync.Mutex

	pool      *mempool.Mempool
	committed *mempool.DedupService
	balances  balanceCache
}

// New loads the ledger from st, or creates and persists a genesis block
// when st is empty. A loaded chain that fails validation is reported with an
// error wrapping validator.ErrChainIntegrity and is never repaired.
func New(ctx context.Context, st store.ChainStore, cfg Config) (*Ledger, error) {
	if st == nil {
		return nil, fmt.Errorf("chain store cannot be nil")
	}
	if cfg.ValidationPolicy == "" {
		cfg.ValidationPolicy = validator.PolicyRecorded
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	l := &Ledger{
		cfg:       cfg,
		store:     st,
		miner:     miner.New(cfg.MineTimeout),
		bus:       cfg.Events,
		clock:     func() time.Time { return clock().UTC() },
		schedule:  block.NewSchedule(cfg.Difficulty),
		reward:    cfg.MiningReward,
		pool:      mempool.NewMempool(cfg.MaxPendingTxs),
		committed: mempool.NewDedupService(),
	}

	state, err := st.LoadState(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if len(state.Blocks) == 0 {
		if err := l.createGenesis(ctx); err != nil {
			return nil, err
		}
	} else if err := l.restore(state); err != nil {
		return nil, err
	}

	l.reportGauges()
	return l, nil
}

func (l *Ledger) createGenesis(ctx context.Context) error {
	genesis, err := block.New(0, l.clock(), nil, block.ZeroHash, 0)
	if err != nil {
		return err
	}
	if d := l.schedule.Current(); l.cfg.ProofOfWork && d > 0 {
		if genesis, err = l.miner.MineBlock(ctx, genesis, d); err != nil {
			return fmt.Errorf("mine genesis: %w", err)
		}
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if err := l.persist(ctx, []*block.Block{genesis}, nil, l.schedule, l.reward); err != nil {
		return err
	}
	l.chain = []*block.Block{genesis}
	logx.Info("LEDGER", fmt.Sprintf("Created genesis block %s", block.ShortHash(genesis.Hash)))
	return nil
}

func (l *Ledger) restore(state *store.State) error {
	if state.MetaLoaded {
		l.reward = state.MiningReward
		if err := validateDifficulty(state.Difficulty); err != nil {
			return fmt.Errorf("%w: %v", store.ErrCorrupt, err)
		}
		if err := validateReward(l.reward); err != nil {
			return fmt.Errorf("%w: %v", store.ErrCorrupt, err)
		}
		l.schedule = state.Schedule
		if len(l.schedule) == 0 {
			// state written without a schedule: the stored difficulty applies
			// to the whole chain
			l.schedule = block.NewSchedule(state.Difficulty)
		}
		if err := l.schedule.Validate(MaxDifficulty); err != nil {
			return fmt.Errorf("%w: %v", store.ErrCorrupt, err)
		}
		if l.schedule.Current() != state.Difficulty {
			return fmt.Errorf("%w: difficulty %d does not match schedule %d",
				store.ErrCorrupt, state.Difficulty, l.schedule.Current())
		}
	}

	report := validator.Validate(state.Blocks, l.validateOptions(l.schedule))
	if err := report.Err(); err != nil {
		logx.Error("LEDGER", fmt.Sprintf("Persisted chain failed validation: %v", err))
		return err
	}

	for _, b := range state.Blocks {
		l.committed.Add(b.Index, txIDs(b.Transactions()))
	}

	// transactions committed by a block whose pool update was lost, or
	// otherwise unusable, are dropped
	pending := make([]*types.Transaction, 0, len(state.Pending))
	for _, tx := range state.Pending {
		if err := tx.Validate(); err != nil {
			logx.Warn("LEDGER", fmt.Sprintf("Dropping invalid pending transaction on load: %v", err))
			continue
		}
		if l.committed.IsDuplicate(tx.ID) {
			logx.Warn("LEDGER", fmt.Sprintf("Dropping already committed pending transaction %s", tx.ID))
			continue
		}
		pending = append(pending, tx)
	}
	l.pool.Reset(pending)
	l.chain = state.Blocks

	logx.Info("LEDGER", fmt.Sprintf("Loaded %d blocks, %d pending transactions, difficulty %d, reward %v",
		len(l.chain), l.pool.Len(), l.schedule.Current(), l.reward))
	return nil
}

// persist writes a full state. The caller holds writeMu.
func (l *Ledger) persist(ctx context.Context, chain []*block.Block, pending []*types.Transaction, schedule block.DifficultySchedule, reward float64) error {
	err := l.store.SaveState(ctx, &store.State{
		Blocks:       chain,
		Pending:      pending,
		Difficulty:   schedule.Current(),
		MiningReward: reward,
		Schedule:     schedule,
	})
	if err != nil {
		monitoring.IncreasePersistenceFailure()
		logx.Error("LEDGER", fmt.Sprintf("Failed to persist ledger state: %v", err))
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// snapshot returns the committed chain slice and settings. Committed blocks
// are never modified, so the slice may be read without the lock.
func (l *Ledger) snapshot() ([]*block.Block, int, float64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.chain[:len(l.chain):len(l.chain)], l.schedule.Current(), l.reward
}

// AppendEntry commits a block holding one record entry, without mining and
// without touching the pending pool. It returns the new block hash.
func (l *Ledger) AppendEntry(ctx context.Context, record map[string]interface{}) (string, error) {
	normalized, err := types.NormalizeRecord(record)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	chain, _, reward := l.snapshot()
	tip := chain[len(chain)-1]
	b, err := block.New(tip.Index+1, l.clock(), []types.Entry{types.RecordEntry(normalized)}, tip.Hash, 0)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	next := append(chain, b)
	if err := l.persist(ctx, next, l.pool.GetBatch(0), l.schedule, reward); err != nil {
		return "", err
	}
	l.swapChain(next)

	monitoring.RecordCommittedBlock("record", 0)
	l.bus.Publish(events.NewBlockCommitted(b))
	logx.Info("LEDGER", fmt.Sprintf("Appended record block %d %s", b.Index, block.ShortHash(b.Hash)))
	return b.Hash, nil
}

func (l *Ledger) swapChain(next []*block.Block) {
	l.mu.Lock()
	l.chain = next
	l.mu.Unlock()
	monitoring.SetBlockHeight(len(next))
}

// Blocks returns a deep copy of the chain.
func (l *Ledger) Blocks() []*block.Block {
	chain, _, _ := l.snapshot()
	out := make([]*block.Block, len(chain))
	for i, b := range chain {
		out[i] = b.Clone()
	}
	return out
}

func (l *Ledger) LatestBlock() (*block.Block, error) {
	chain, _, _ := l.snapshot()
	if len(chain) == 0 {
		return nil, ErrEmptyChain
	}
	return chain[len(chain)-1].Clone(), nil
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.chain)
}

func (l *Ledger) BlockByIndex(index int) (*block.Block, error) {
	chain, _, _ := l.snapshot()
	if index < 0 || index >= len(chain) {
		return nil, fmt.Errorf("block %d: %w", index, ErrNotFound)
	}
	return chain[index].Clone(), nil
}

func (l *Ledger) BlockByHash(hash string) (*block.Block, error) {
	chain, _, _ := l.snapshot()
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].Hash == hash {
			return chain[i].Clone(), nil
		}
	}
	return nil, fmt.Errorf("block %s: %w", block.ShortHash(hash), ErrNotFound)
}

func (l *Ledger) Difficulty() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.schedule.Current()
}

func (l *Ledger) MiningReward() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reward
}

// ProofOfWork reports whether finalized blocks are mined.
func (l *Ledger) ProofOfWork() bool { return l.cfg.ProofOfWork }

// SetDifficulty changes the difficulty used for future blocks and returns
// the previous value. The change is added to the difficulty schedule at the
// next block height, so blocks already committed keep their requirement.
func (l *Ledger) SetDifficulty(ctx context.Context, difficulty int) (int, error) {
	if err := validateDifficulty(difficulty); err != nil {
		return 0, err
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	chain, old, reward := l.snapshot()
	next := l.schedule.With(len(chain), difficulty)
	if err := l.persist(ctx, chain, l.pool.GetBatch(0), next, reward); err != nil {
		return old, err
	}
	l.mu.Lock()
	l.schedule = next
	l.mu.Unlock()

	monitoring.SetDifficulty(difficulty)
	l.bus.Publish(events.NewSettingsChanged("difficulty", float64(old), float64(difficulty)))
	logx.Info("LEDGER", fmt.Sprintf("Difficulty changed from %d to %d", old, difficulty))
	return old, nil
}

// SetMiningReward changes the reward paid by future blocks and returns the
// previous value.
func (l *Ledger) SetMiningReward(ctx context.Context, reward float64) (float64, error) {
	if err := validateReward(reward); err != nil {
		return 0, err
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	chain, _, old := l.snapshot()
	if err := l.persist(ctx, chain, l.pool.GetBatch(0), l.schedule, reward); err != nil {
		return old, err
	}
	l.mu.Lock()
	l.reward = reward
	l.mu.Unlock()

	l.bus.Publish(events.NewSettingsChanged("mining_reward", old, reward))
	logx.Info("LEDGER", fmt.Sprintf("Mining reward changed from %v to %v", old, reward))
	return old, nil
}

// Validate checks the live chain.
func (l *Ledger) Validate() *validator.Report {
	l.mu.RLock()
	chain := l.chain[:len(l.chain):len(l.chain)]
	opts := l.validateOptions(l.schedule)
	l.mu.RUnlock()
	return validator.Validate(chain, opts)
}

// DifficultySchedule returns the difficulty history of the chain.
func (l *Ledger) DifficultySchedule() block.DifficultySchedule {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.schedule.Clone()
}

func (l *Ledger) validateOptions(schedule block.DifficultySchedule) validator.Options {
	return validator.Options{
		Policy:            l.cfg.ValidationPolicy,
		ProofOfWork:       l.cfg.ProofOfWork,
		Schedule:          schedule,
		CurrentDifficulty: schedule.Current(),
	}
}

// Close releases the chain store.
func (l *Ledger) Close() error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return l.store.Close()
}

func (l *Ledger) reportGauges() {
	chain, difficulty, _ := l.snapshot()
	monitoring.SetBlockHeight(len(chain))
	monitoring.SetDifficulty(difficulty)
	monitoring.SetMempoolSize(l.pool.Len())
}

func txIDs(txs []*types.Transaction) []string {
	ids := make([]string, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
	}
	return ids
}
