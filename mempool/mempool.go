package mempool

import (
	"errors"
	"sync"

	"github.com/greenpoints/greenledger/types"
)

var (
	ErrMempoolFull = errors.New("mempool is full")
	ErrDuplicateTx = errors.New("transaction already pending")
	ErrNilTx       = errors.New("nil transaction")
)

// Mempool provides a thread-safe ordered queue of pending transactions.
// maxTxs <= 0 means unbounded.
type Mempool struct {
	mu     sync.Mutex
	txs    []*types.Transaction
	byID   map[string]struct{}
	maxTxs int
}

// NewMempool creates a new, empty mempool.
func NewMempool(maxTxs int) *Mempool {
	return &Mempool{
		txs:    make([]*types.Transaction, 0),
		byID:   make(map[string]struct{}),
		maxTxs: maxTxs,
	}
}

// Add pushes a transaction to the back of the queue.
func (m *Mempool) Add(tx *types.Transaction) error {
	if tx == nil {
		return ErrNilTx
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[tx.ID]; ok {
		return ErrDuplicateTx
	}
	if m.maxTxs > 0 && len(m.txs) >= m.maxTxs {
		return ErrMempoolFull
	}
	m.txs = append(m.txs, tx)
	m.byID[tx.ID] = struct{}{}
	return nil
}

// Has reports whether a transaction with id is pending.
func (m *Mempool) Has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byID[id]
	return ok
}

// Len returns the number of transactions in the mempool.
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs)
}

// GetBatch returns up to max transactions without removing them. max <= 0
// returns everything.
func (m *Mempool) GetBatch(max int) []*types.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.txs) == 0 {
		return nil
	}
	if max <= 0 || len(m.txs) < max {
		max = len(m.txs)
	}
	batch := make([]*types.Transaction, max)
	copy(batch, m.txs[:max])
	return batch
}

// Get returns the pending transaction with id, if any.
func (m *Mempool) Get(id string) (*types.Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return nil, false
	}
	for _, tx := range m.txs {
		if tx.ID == id {
			return tx, true
		}
	}
	return nil, false
}

// RemoveIDs drops the given transactions, keeping the order of the rest.
// Transactions added after a GetBatch snapshot are left untouched.
func (m *Mempool) RemoveIDs(ids []string) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.txs[:0]
	removed := 0
	for _, tx := range m.txs {
		if _, ok := drop[tx.ID]; ok {
			delete(m.byID, tx.ID)
			removed++
			continue
		}
		kept = append(kept, tx)
	}
	for i := len(kept); i < len(m.txs); i++ {
		m.txs[i] = nil
	}
	m.txs = kept
	return removed
}

// Remove drops a single transaction by id.
func (m *Mempool) Remove(id string) bool {
	return m.RemoveIDs([]string{id}) == 1
}

// Reset replaces the queue contents, used when restoring persisted state.
func (m *Mempool) Reset(txs []*types.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs = make([]*types.Transaction, 0, len(txs))
	m.byID = make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		if tx == nil {
			continue
		}
		if _, ok := m.byID[tx.ID]; ok {
			continue
		}
		m.txs = append(m.txs, tx)
		m.byID[tx.ID] = struct{}{}
	}
}
