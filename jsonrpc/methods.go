package jsonrpc

import (
	"context"

	"github.com/creachadair/jrpc2/handler"

	"github.com/greenpoints/greenledger/block"
	"github.com/greenpoints/greenledger/interfaces"
	"github.com/greenpoints/greenledger/ledger"
	"github.com/greenpoints/greenledger/security/validation"
	"github.com/greenpoints/greenledger/validator"
)

// --- Params/Results ---

type appendRecordParams struct {
	Record map[string]interface{} `json:"record"`
}

type limitParams struct {
	Limit int `json:"limit"`
}

type txIDParams struct {
	TxID string `json:"transaction_id"`
}

type okResponse struct {
	Ok bool `json:"ok"`
}

type finalizeParams struct {
	Miner string `json:"miner"`
}

type getBlockParams struct {
	Index *int   `json:"index,omitempty"`
	Hash  string `json:"hash,omitempty"`
}

type addressParams struct {
	Address string `json:"address"`
}

type newAddressParams struct {
	Username string `json:"username"`
}

type setDifficultyParams struct {
	Difficulty int    `json:"difficulty"`
	AdminID    string `json:"admin_id"`
}

type setRewardParams struct {
	Reward  float64 `json:"reward"`
	AdminID string  `json:"admin_id"`
}

type forceMineParams struct {
	Miner   string `json:"miner"`
	AdminID string `json:"admin_id"`
}

type exportParams struct {
	AdminID string `json:"admin_id"`
}

// wrap adapts a service call to a jrpc2 handler result, turning service
// errors into coded JSON-RPC errors.
func wrap[T any](method string, res T, err error) (T, error) {
	if err != nil {
		var zero T
		return zero, toJRPC2Error(newRPCError(method, err))
	}
	return res, nil
}

// Build jrpc2 method map
func (s *Server) buildMethodMap() handler.Map {
	return handler.Map{
		MethodAuditAppend: handler.New(func(ctx context.Context, p appendRecordParams) (*interfaces.AppendRecordResponse, error) {
			if err := validation.ValidateRecord(p.Record); err != nil {
				return wrap[*interfaces.AppendRecordResponse](MethodAuditAppend, nil, err)
			}
			res, err := s.auditSvc.AppendRecord(ctx, p.Record)
			return wrap(MethodAuditAppend, res, err)
		}),
		MethodTxSubmit: handler.New(func(ctx context.Context, p interfaces.SubmitTxRequest) (*interfaces.SubmitTxResponse, error) {
			if err := validation.ValidateTransactionFields(p.Sender, p.Recipient, p.Type, p.Metadata); err != nil {
				return wrap[*interfaces.SubmitTxResponse](MethodTxSubmit, nil, err)
			}
			if err := s.limiter.AllowSender(p.Sender); err != nil {
				return wrap[*interfaces.SubmitTxResponse](MethodTxSubmit, nil, err)
			}
			res, err := s.txSvc.SubmitTx(ctx, &p)
			return wrap(MethodTxSubmit, res, err)
		}),
		MethodTxPending: handler.New(func(ctx context.Context, p limitParams) (*interfaces.PendingTxsResponse, error) {
			res, err := s.txSvc.PendingTxs(ctx, p.Limit)
			return wrap(MethodTxPending, res, err)
		}),
		MethodTxRemove: handler.New(func(ctx context.Context, p txIDParams) (*okResponse, error) {
			err := s.txSvc.RemovePending(ctx, p.TxID)
			return wrap(MethodTxRemove, &okResponse{Ok: err == nil}, err)
		}),
		MethodTxGet: handler.New(func(ctx context.Context, p txIDParams) (*ledger.TxRecord, error) {
			res, err := s.txSvc.GetTx(ctx, p.TxID)
			return wrap(MethodTxGet, res, err)
		}),
		MethodBlockFinalize: handler.New(func(ctx context.Context, p finalizeParams) (*block.Block, error) {
			res, err := s.txSvc.FinalizeBlock(ctx, p.Miner)
			return wrap(MethodBlockFinalize, res, err)
		}),
		MethodBlockLatest: handler.New(func(ctx context.Context) (*block.Block, error) {
			res, err := s.auditSvc.LatestBlock(ctx)
			return wrap(MethodBlockLatest, res, err)
		}),
		MethodBlockGet: handler.New(func(ctx context.Context, p getBlockParams) (*block.Block, error) {
			res, err := s.auditSvc.GetBlock(ctx, p.Index, p.Hash)
			return wrap(MethodBlockGet, res, err)
		}),
		MethodAccountBalance: handler.New(func(ctx context.Context, p addressParams) (*interfaces.BalanceResponse, error) {
			res, err := s.acctSvc.GetBalance(ctx, p.Address)
			return wrap(MethodAccountBalance, res, err)
		}),
		MethodAccountHistory: handler.New(func(ctx context.Context, p addressParams) (*interfaces.HistoryResponse, error) {
			res, err := s.acctSvc.GetHistory(ctx, p.Address)
			return wrap(MethodAccountHistory, res, err)
		}),
		MethodAccountLeaderboard: handler.New(func(ctx context.Context, p limitParams) (*interfaces.LeaderboardResponse, error) {
			res, err := s.acctSvc.GetLeaderboard(ctx, p.Limit)
			return wrap(MethodAccountLeaderboard, res, err)
		}),
		MethodAccountNewAddress: handler.New(func(ctx context.Context, p newAddressParams) (*interfaces.NewAddressResponse, error) {
			if err := validation.ValidateUsername(p.Username); err != nil {
				return wrap[*interfaces.NewAddressResponse](MethodAccountNewAddress, nil, err)
			}
			res, err := s.acctSvc.NewAddress(ctx, p.Username)
			return wrap(MethodAccountNewAddress, res, err)
		}),
		MethodChainValidate: handler.New(func(ctx context.Context) (*validator.Report, error) {
			res, err := s.auditSvc.ValidateChain(ctx)
			return wrap(MethodChainValidate, res, err)
		}),
		MethodChainStats: handler.New(func(ctx context.Context) (*ledger.Stats, error) {
			res, err := s.auditSvc.Stats(ctx)
			return wrap(MethodChainStats, res, err)
		}),
		MethodAdminSetDifficulty: handler.New(func(ctx context.Context, p setDifficultyParams) (*interfaces.SettingChange, error) {
			res, err := s.adminSvc.SetDifficulty(ctx, p.Difficulty, p.AdminID)
			return wrap(MethodAdminSetDifficulty, res, err)
		}),
		MethodAdminSetReward: handler.New(func(ctx context.Context, p setRewardParams) (*interfaces.SettingChange, error) {
			res, err := s.adminSvc.SetMiningReward(ctx, p.Reward, p.AdminID)
			return wrap(MethodAdminSetReward, res, err)
		}),
		MethodAdminForceMine: handler.New(func(ctx context.Context, p forceMineParams) (*block.Block, error) {
			res, err := s.adminSvc.ForceMine(ctx, p.Miner, p.AdminID)
			return wrap(MethodAdminForceMine, res, err)
		}),
		MethodAdminActions: handler.New(func(ctx context.Context, p limitParams) (*interfaces.ActionLogResponse, error) {
			res, err := s.adminSvc.Actions(ctx, p.Limit)
			return wrap(MethodAdminActions, res, err)
		}),
		MethodAdminExport: handler.New(func(ctx context.Context, p exportParams) (*interfaces.ExportDocument, error) {
			res, err := s.adminSvc.Export(ctx, p.AdminID)
			return wrap(MethodAdminExport, res, err)
		}),
		MethodHealthCheck: handler.New(func(ctx context.Context) (*interfaces.HealthCheckResponse, error) {
			res, err := s.healthSvc.Check(ctx)
			return wrap(MethodHealthCheck, res, err)
		}),
	}
}
