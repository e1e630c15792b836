package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/greenpoints/greenledger/block"
	"github.com/greenpoints/greenledger/db"
	"github.com/greenpoints/greenledger/jsonx"
	"github.com/greenpoints/greenledger/logx"
)

// GenericStore is a database-agnostic ChainStore over a DatabaseProvider.
// Blocks live under blk:<index>, the pool and settings under meta:state and
// the number of persisted blocks under meta:height. Each save writes only
// the blocks past the persisted height, together with the meta keys, in one
// atomic batch.
type GenericStore struct {
	provider db.DatabaseProvider
	writer   *db.BatchWriter

	mu     sync.Mutex
	height int
}

// NewGenericStore creates a new generic store with the given provider
func NewGenericStore(provider db.DatabaseProvider) (*GenericStore, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	s := &GenericStore{
		provider: provider,
		writer:   db.NewBatchWriter(provider),
	}
	height, err := s.loadHeight()
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}
	s.height = height
	return s, nil
}

func blockKey(index int) []byte {
	return []byte(fmt.Sprintf("%s%012d", PrefixBlock, index))
}

func metaKey(name string) []byte {
	return []byte(PrefixMeta + name)
}

func (s *GenericStore) loadHeight() (int, error) {
	value, err := s.provider.Get(context.Background(), metaKey(MetaKeyHeight))
	if err != nil {
		return 0, err
	}
	if value == nil {
		return 0, nil
	}
	h, err := strconv.Atoi(string(value))
	if err != nil || h < 0 {
		return 0, fmt.Errorf("%w: invalid height %q", ErrCorrupt, value)
	}
	return h, nil
}

// Height returns the number of persisted blocks.
func (s *GenericStore) Height() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height
}

func (s *GenericStore) LoadState(ctx context.Context) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &State{}
	if s.height > 0 {
		keys := make([][]byte, s.height)
		for i := range keys {
			keys[i] = blockKey(i)
		}
		values, err := s.provider.GetBatch(ctx, keys)
		if err != nil {
			return nil, errors.Wrap(err, "load blocks")
		}
		st.Blocks = make([]*block.Block, 0, s.height)
		for i, key := range keys {
			raw, ok := values[string(key)]
			if !ok {
				return nil, fmt.Errorf("%w: block %d missing", ErrCorrupt, i)
			}
			var blk block.Block
			if err := jsonx.UnmarshalUseNumber(raw, &blk); err != nil {
				return nil, fmt.Errorf("%w: block %d: %v", ErrCorrupt, i, err)
			}
			st.Blocks = append(st.Blocks, &blk)
		}
	}

	raw, err := s.provider.Get(ctx, metaKey(MetaKeyState))
	if err != nil {
		return nil, errors.Wrap(err, "load ledger state")
	}
	if raw != nil {
		var meta stateMeta
		if err := jsonx.UnmarshalUseNumber(raw, &meta); err != nil {
			return nil, fmt.Errorf("%w: ledger state: %v", ErrCorrupt, err)
		}
		meta.applyTo(st)
	}
	logx.Info("KVSTORE", fmt.Sprintf("Loaded %d blocks and %d pending transactions", len(st.Blocks), len(st.Pending)))
	return st, nil
}

func (s *GenericStore) SaveState(ctx context.Context, st *State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	metaRaw, err := jsonx.Marshal(metaOf(st))
	if err != nil {
		return errors.Wrap(err, "encode ledger state")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(st.Blocks) < s.height {
		return fmt.Errorf("refusing to shrink persisted chain from %d to %d blocks", s.height, len(st.Blocks))
	}
	newBlocks := st.Blocks[s.height:]
	encoded := make([][]byte, len(newBlocks))
	for i, blk := range newBlocks {
		raw, err := jsonx.Marshal(blk)
		if err != nil {
			return errors.Wrapf(err, "encode block %d", blk.Index)
		}
		encoded[i] = raw
	}

	err = s.writer.Write(ctx, func(batch db.DatabaseBatch) error {
		for i, raw := range encoded {
			batch.Put(blockKey(s.height+i), raw)
		}
		batch.Put(metaKey(MetaKeyState), metaRaw)
		batch.Put(metaKey(MetaKeyHeight), []byte(strconv.Itoa(len(st.Blocks))))
		return nil
	})
	if err != nil {
		return err
	}
	if len(newBlocks) > 0 {
		logx.Debug("KVSTORE", fmt.Sprintf("Persisted blocks %d to %d", s.height, len(st.Blocks)-1))
	}
	s.height = len(st.Blocks)
	return nil
}

// Close closes the underlying provider.
func (s *GenericStore) Close() error {
	return s.provider.Close()
}
