package service

import (
	"context"
	"fmt"

	"github.com/greenpoints/greenledger/block"
	"github.com/greenpoints/greenledger/interfaces"
	"github.com/greenpoints/greenledger/ledger"
	"github.com/greenpoints/greenledger/validator"
)

type AuditServiceImpl struct {
	ledger *ledger.Ledger
}

func NewAuditService(ld *ledger.Ledger) *AuditServiceImpl {
	return &AuditServiceImpl{ledger: ld}
}

func (s *AuditServiceImpl) AppendRecord(ctx context.Context, record map[string]interface{}) (*interfaces.AppendRecordResponse, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: record is required", block.ErrValidation)
	}
	hash, err := s.ledger.AppendEntry(ctx, record)
	if err != nil {
		return nil, err
	}
	b, err := s.ledger.BlockByHash(hash)
	if err != nil {
		return nil, err
	}
	return &interfaces.AppendRecordResponse{BlockHash: hash, BlockIndex: b.Index}, nil
}

func (s *AuditServiceImpl) LatestBlock(ctx context.Context) (*block.Block, error) {
	return s.ledger.LatestBlock()
}

// GetBlock looks a block up by index when one is given, otherwise by hash.
func (s *AuditServiceImpl) GetBlock(ctx context.Context, index *int, hash string) (*block.Block, error) {
	if index != nil {
		return s.ledger.BlockByIndex(*index)
	}
	if hash == "" {
		return nil, fmt.Errorf("%w: index or hash is required", block.ErrValidation)
	}
	return s.ledger.BlockByHash(hash)
}

func (s *AuditServiceImpl) ValidateChain(ctx context.Context) (*validator.Report, error) {
	return s.ledger.Validate(), nil
}

func (s *AuditServiceImpl) Stats(ctx context.Context) (*ledger.Stats, error) {
	st := s.ledger.Stats()
	return &st, nil
}
