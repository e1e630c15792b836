package service

import (
	"context"
	"fmt"

	"github.com/greenpoints/greenledger/block"
	"github.com/greenpoints/greenledger/interfaces"
	"github.com/greenpoints/greenledger/ledger"
	"github.com/greenpoints/greenledger/types"
)

type TxServiceImpl struct {
	ledger *ledger.Ledger
}

func NewTxService(ld *ledger.Ledger) *TxServiceImpl {
	return &TxServiceImpl{ledger: ld}
}

// SubmitTx queues a transaction. A rejected transaction is reported in the
// response, not as an error; only persistence failures are errors.
func (s *TxServiceImpl) SubmitTx(ctx context.Context, in *interfaces.SubmitTxRequest) (*interfaces.SubmitTxResponse, error) {
	if in == nil {
		return &interfaces.SubmitTxResponse{Ok: false, Error: "invalid tx"}, nil
	}
	txType := types.TxType(in.Type)
	if txType == "" {
		txType = types.TxTypeTransfer
	}
	tx := &types.Transaction{
		Sender:    in.Sender,
		Recipient: in.Recipient,
		Amount:    in.Amount,
		Type:      txType,
		Metadata:  types.Metadata(in.Metadata),
	}
	if in.Timestamp != nil {
		tx.Timestamp = *in.Timestamp
	}

	ok, err := s.ledger.SubmitTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}
	if !ok {
		reason := "transaction rejected"
		if cerr := s.ledger.CheckTransaction(tx); cerr != nil {
			reason = cerr.Error()
		}
		return &interfaces.SubmitTxResponse{Ok: false, TxID: tx.ID, Error: reason}, nil
	}
	return &interfaces.SubmitTxResponse{Ok: true, TxID: tx.ID}, nil
}

func (s *TxServiceImpl) GetTx(ctx context.Context, id string) (*ledger.TxRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: transaction id is required", types.ErrInvalidTransaction)
	}
	return s.ledger.Transaction(id)
}

func (s *TxServiceImpl) PendingTxs(ctx context.Context, limit int) (*interfaces.PendingTxsResponse, error) {
	return &interfaces.PendingTxsResponse{
		TotalCount: s.ledger.PendingCount(),
		PendingTxs: s.ledger.PendingTransactions(limit),
	}, nil
}

func (s *TxServiceImpl) RemovePending(ctx context.Context, id string) error {
	return s.ledger.RemovePending(ctx, id)
}

func (s *TxServiceImpl) FinalizeBlock(ctx context.Context, minerAddr string) (*block.Block, error) {
	return s.ledger.FinalizeBlock(ctx, minerAddr)
}
