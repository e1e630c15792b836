package interfaces

import (
	"context"

	"github.com/greenpoints/greenledger/block"
	"github.com/greenpoints/greenledger/ledger"
)

type TxService interface {
	SubmitTx(ctx context.Context, in *SubmitTxRequest) (*SubmitTxResponse, error)
	GetTx(ctx context.Context, id string) (*ledger.TxRecord, error)
	PendingTxs(ctx context.Context, limit int) (*PendingTxsResponse, error)
	RemovePending(ctx context.Context, id string) error
	FinalizeBlock(ctx context.Context, minerAddr string) (*block.Block, error)
}
