package store

import (
	"context"
	"errors"

	"github.com/greenpoints/greenledger/block"
	"github.com/greenpoints/greenledger/types"
)

// ErrCorrupt is returned when persisted data cannot be decoded.
var ErrCorrupt = errors.New("persisted ledger data is corrupt")

var errStoreClosed = errors.New("chain store is closed")

// State is everything the ledger persists: the chain plus the mutable
// settings and the pending pool.
type State struct {
	Blocks       []*block.Block
	Pending      []*types.Transaction
	Difficulty   int
	MiningReward float64
	// Schedule records every difficulty change with the height it applies
	// from, so past blocks are checked against what was required of them.
	Schedule block.DifficultySchedule
	// MetaLoaded is false when no settings were found on load; the caller
	// then falls back to its configured defaults.
	MetaLoaded bool
}

// stateMeta is the persisted form of the non-chain part of State.
type stateMeta struct {
	Pending      []*types.Transaction     `json:"pending"`
	Difficulty   int                      `json:"difficulty"`
	MiningReward float64                  `json:"mining_reward"`
	Schedule     block.DifficultySchedule `json:"difficulty_schedule,omitempty"`
}

func metaOf(s *State) stateMeta {
	pending := s.Pending
	if pending == nil {
		pending = []*types.Transaction{}
	}
	return stateMeta{
		Pending:      pending,
		Difficulty:   s.Difficulty,
		MiningReward: s.MiningReward,
		Schedule:     s.Schedule.Clone(),
	}
}

// applyTo copies the loaded settings and pool into st.
func (m stateMeta) applyTo(st *State) {
	st.Pending = m.Pending
	st.Difficulty = m.Difficulty
	st.MiningReward = m.MiningReward
	st.Schedule = m.Schedule.Clone()
	st.MetaLoaded = true
}

// ChainStore is the persistence backend of a ledger. SaveState must either
// persist the whole state or leave the previous one readable; blocks are
// append-only so implementations may write only the new tail.
type ChainStore interface {
	// LoadState returns the persisted state. A store that was never written
	// returns an empty State and no error.
	LoadState(ctx context.Context) (*State, error)
	SaveState(ctx context.Context, s *State) error
	Close() error
}
