package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/greenpoints/greenledger/block"
	"github.com/greenpoints/greenledger/interfaces"
	"github.com/greenpoints/greenledger/ledger"
	"github.com/greenpoints/greenledger/logx"
)

const (
	// DefaultMaxAdminActions bounds the in-memory action log.
	DefaultMaxAdminActions = 1000
	// DefaultActionLogLimit is how many actions Actions returns when asked
	// for a non-positive limit.
	DefaultActionLogLimit = 50
	// DefaultForceMiner receives the reward of a force-mined block when no
	// miner address is given.
	DefaultForceMiner = "ADMIN"
)

type AdminServiceImpl struct {
	ledger     *ledger.Ledger
	clock      func() time.Time
	maxActions int

	mu      sync.Mutex
	actions []interfaces.AdminAction
}

func NewAdminService(ld *ledger.Ledger, maxActions int) *AdminServiceImpl {
	if maxActions <= 0 {
		maxActions = DefaultMaxAdminActions
	}
	return &AdminServiceImpl{ledger: ld, clock: time.Now, maxActions: maxActions}
}

func (s *AdminServiceImpl) logAction(action, details, adminID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, interfaces.AdminAction{
		Timestamp: s.clock().UTC(),
		Action:    action,
		Details:   details,
		AdminID:   adminID,
	})
	if over := len(s.actions) - s.maxActions; over > 0 {
		s.actions = append([]interfaces.AdminAction(nil), s.actions[over:]...)
	}
	logx.Info("ADMIN", fmt.Sprintf("%s: %s (admin %s)", action, details, adminID))
}

func (s *AdminServiceImpl) SetDifficulty(ctx context.Context, difficulty int, adminID string) (*interfaces.SettingChange, error) {
	old, err := s.ledger.SetDifficulty(ctx, difficulty)
	if err != nil {
		return nil, err
	}
	s.logAction("adjust_difficulty", fmt.Sprintf("Changed difficulty from %d to %d", old, difficulty), adminID)
	return &interfaces.SettingChange{Setting: "difficulty", OldValue: float64(old), NewValue: float64(difficulty)}, nil
}

func (s *AdminServiceImpl) SetMiningReward(ctx context.Context, reward float64, adminID string) (*interfaces.SettingChange, error) {
	old, err := s.ledger.SetMiningReward(ctx, reward)
	if err != nil {
		return nil, err
	}
	s.logAction("adjust_reward", fmt.Sprintf("Changed mining reward from %v to %v", old, reward), adminID)
	return &interfaces.SettingChange{Setting: "mining_reward", OldValue: old, NewValue: reward}, nil
}

func (s *AdminServiceImpl) ForceMine(ctx context.Context, minerAddr string, adminID string) (*block.Block, error) {
	if minerAddr == "" {
		minerAddr = DefaultForceMiner
	}
	b, err := s.ledger.FinalizeBlock(ctx, minerAddr)
	if err != nil {
		return nil, err
	}
	s.logAction("force_mine", fmt.Sprintf("Forced mining of block #%d", b.Index), adminID)
	return b, nil
}

// Actions returns the most recent limit actions, oldest first.
func (s *AdminServiceImpl) Actions(ctx context.Context, limit int) (*interfaces.ActionLogResponse, error) {
	if limit <= 0 {
		limit = DefaultActionLogLimit
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	start := 0
	if len(s.actions) > limit {
		start = len(s.actions) - limit
	}
	out := make([]interfaces.AdminAction, len(s.actions)-start)
	copy(out, s.actions[start:])
	return &interfaces.ActionLogResponse{TotalActions: len(s.actions), Actions: out}, nil
}

// Export builds a backup document of the whole ledger. The export itself is
// logged after the document is built, so it is not part of its own log.
func (s *AdminServiceImpl) Export(ctx context.Context, adminID string) (*interfaces.ExportDocument, error) {
	s.mu.Lock()
	adminLog := make([]interfaces.AdminAction, len(s.actions))
	copy(adminLog, s.actions)
	s.mu.Unlock()

	doc := &interfaces.ExportDocument{
		ExportTimestamp: s.clock().UTC(),
		Chain:           s.ledger.Blocks(),
		Pending:         s.ledger.PendingTransactions(0),
		Difficulty:      s.ledger.Difficulty(),
		Schedule:        s.ledger.DifficultySchedule(),
		MiningReward:    s.ledger.MiningReward(),
		AdminLog:        adminLog,
	}
	s.logAction("export_data", fmt.Sprintf("Exported %d blocks and %d pending transactions", len(doc.Chain), len(doc.Pending)), adminID)
	return doc, nil
}
