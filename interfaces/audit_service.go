package interfaces

import (
	"context"

	"github.com/greenpoints/greenledger/block"
	"github.com/greenpoints/greenledger/ledger"
	"github.com/greenpoints/greenledger/validator"
)

// AuditService covers the append-only record log and chain inspection.
type AuditService interface {
	AppendRecord(ctx context.Context, record map[string]interface{}) (*AppendRecordResponse, error)
	LatestBlock(ctx context.Context) (*block.Block, error)
	GetBlock(ctx context.Context, index *int, hash string) (*block.Block, error)
	ValidateChain(ctx context.Context) (*validator.Report, error)
	Stats(ctx context.Context) (*ledger.Stats, error)
}
