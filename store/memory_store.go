package store

import (
	"context"
	"sync"

	"github.com/greenpoints/greenledger/block"
	"github.com/greenpoints/greenledger/types"
)

// MemoryStore keeps the ledger state in process memory. Nothing survives a
// restart; it backs ephemeral nodes and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	blocks []*block.Block
	meta   *stateMeta
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) LoadState(ctx context.Context) (*State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &State{Blocks: cloneBlocks(s.blocks)}
	if s.meta != nil {
		s.meta.applyTo(st)
		st.Pending = cloneTxs(s.meta.Pending)
	}
	return st, nil
}

func (s *MemoryStore) SaveState(ctx context.Context, st *State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errStoreClosed
	}

	// committed blocks are immutable, only the new tail is copied
	blocks := make([]*block.Block, len(st.Blocks))
	for i, b := range st.Blocks {
		if i < len(s.blocks) && s.blocks[i].Hash == b.Hash {
			blocks[i] = s.blocks[i]
		} else {
			blocks[i] = b.Clone()
		}
	}
	meta := metaOf(st)
	meta.Pending = cloneTxs(meta.Pending)

	s.blocks = blocks
	s.meta = &meta
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func cloneBlocks(in []*block.Block) []*block.Block {
	out := make([]*block.Block, len(in))
	for i, b := range in {
		out[i] = b.Clone()
	}
	return out
}

func cloneTxs(in []*types.Transaction) []*types.Transaction {
	out := make([]*types.Transaction, len(in))
	for i, tx := range in {
		out[i] = tx.Clone()
	}
	return out
}
