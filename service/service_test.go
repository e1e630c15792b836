package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenpoints/greenledger/block"
	"github.com/greenpoints/greenledger/interfaces"
	"github.com/greenpoints/greenledger/ledger"
	"github.com/greenpoints/greenledger/store"
	"github.com/greenpoints/greenledger/types"
	"github.com/greenpoints/greenledger/wallet"
)

func newTestLedger(t *testing.T, cfg ledger.Config) *ledger.Ledger {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	l, err := ledger.New(context.Background(), st, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func rewardLedger(t *testing.T) *ledger.Ledger {
	cfg := ledger.DefaultConfig()
	cfg.Difficulty = 1
	return newTestLedger(t, cfg)
}

func TestTxService_SubmitAndFinalize(t *testing.T) {
	ctx := context.Background()
	l := rewardLedger(t)
	svc := NewTxService(l)

	resp, err := svc.SubmitTx(ctx, &interfaces.SubmitTxRequest{Sender: "alice", Recipient: "bob", Amount: 5})
	require.NoError(t, err)
	require.True(t, resp.Ok, resp.Error)
	require.NotEmpty(t, resp.TxID)

	pending, err := svc.PendingTxs(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, pending.TotalCount)
	assert.Equal(t, types.TxTypeTransfer, pending.PendingTxs[0].Type)

	rec, err := svc.GetTx(ctx, resp.TxID)
	require.NoError(t, err)
	assert.Equal(t, ledger.TxStatusPending, rec.Status)

	b, err := svc.FinalizeBlock(ctx, "miner")
	require.NoError(t, err)
	assert.Equal(t, 1, b.Index)

	rec, err = svc.GetTx(ctx, resp.TxID)
	require.NoError(t, err)
	assert.Equal(t, ledger.TxStatusConfirmed, rec.Status)
	assert.Equal(t, b.Hash, rec.BlockHash)
}

func TestTxService_RejectionIsReportedInResponse(t *testing.T) {
	ctx := context.Background()
	svc := NewTxService(rewardLedger(t))

	resp, err := svc.SubmitTx(ctx, &interfaces.SubmitTxRequest{Sender: "alice", Recipient: "bob", Amount: -1})
	require.NoError(t, err)
	assert.False(t, resp.Ok)
	assert.Contains(t, resp.Error, "amount")

	resp, err = svc.SubmitTx(ctx, nil)
	require.NoError(t, err)
	assert.False(t, resp.Ok)

	_, err = svc.GetTx(ctx, "")
	assert.True(t, errors.Is(err, types.ErrInvalidTransaction))
	_, err = svc.GetTx(ctx, "missing")
	assert.True(t, errors.Is(err, ledger.ErrNotFound))
}

func TestTxService_RemovePending(t *testing.T) {
	ctx := context.Background()
	svc := NewTxService(rewardLedger(t))

	resp, err := svc.SubmitTx(ctx, &interfaces.SubmitTxRequest{Sender: "alice", Recipient: "bob", Amount: 1})
	require.NoError(t, err)
	require.NoError(t, svc.RemovePending(ctx, resp.TxID))
	assert.True(t, errors.Is(svc.RemovePending(ctx, resp.TxID), ledger.ErrNotFound))
}

func TestAccountService(t *testing.T) {
	ctx := context.Background()
	l := rewardLedger(t)
	txs := NewTxService(l)
	accounts := NewAccountService(l)

	_, err := txs.SubmitTx(ctx, &interfaces.SubmitTxRequest{Sender: "alice", Recipient: "bob", Amount: 3})
	require.NoError(t, err)
	_, err = txs.FinalizeBlock(ctx, "carol")
	require.NoError(t, err)

	bal, err := accounts.GetBalance(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 3.0, bal.Balance)

	hist, err := accounts.GetHistory(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, hist.Count)
	assert.Equal(t, 1, hist.Entries[0].BlockIndex)

	board, err := accounts.GetLeaderboard(ctx, 1)
	require.NoError(t, err)
	require.Len(t, board.Accounts, 1)
	assert.Equal(t, "carol", board.Accounts[0].Address)

	addr, err := accounts.NewAddress(ctx, "dave")
	require.NoError(t, err)
	assert.True(t, wallet.IsAddress(addr.Address))
	_, err = accounts.NewAddress(ctx, "")
	assert.Error(t, err)
}

func TestAuditService(t *testing.T) {
	ctx := context.Background()
	svc := NewAuditService(newTestLedger(t, ledger.AuditConfig()))

	resp, err := svc.AppendRecord(ctx, map[string]interface{}{"action": "login", "user": "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.BlockIndex)

	latest, err := svc.LatestBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, resp.BlockHash, latest.Hash)

	idx := 0
	genesis, err := svc.GetBlock(ctx, &idx, "")
	require.NoError(t, err)
	assert.Equal(t, latest.PreviousHash, genesis.Hash)

	byHash, err := svc.GetBlock(ctx, nil, resp.BlockHash)
	require.NoError(t, err)
	assert.Equal(t, 1, byHash.Index)

	_, err = svc.GetBlock(ctx, nil, "")
	assert.Error(t, err)
	_, err = svc.AppendRecord(ctx, nil)
	assert.Error(t, err)

	report, err := svc.ValidateChain(ctx)
	require.NoError(t, err)
	assert.True(t, report.Valid)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ChainLength)
	assert.Equal(t, 1, stats.RecordCount)
}

func TestAdminService_SettingsAndLog(t *testing.T) {
	ctx := context.Background()
	l := rewardLedger(t)
	admin := NewAdminService(l, 2)

	change, err := admin.SetDifficulty(ctx, 2, "root")
	require.NoError(t, err)
	assert.Equal(t, 1.0, change.OldValue)
	assert.Equal(t, 2.0, change.NewValue)

	_, err = admin.SetDifficulty(ctx, -1, "root")
	assert.True(t, errors.Is(err, ledger.ErrInvalidSetting))

	change, err = admin.SetMiningReward(ctx, 25, "root")
	require.NoError(t, err)
	assert.Equal(t, ledger.DefaultMiningReward, change.OldValue)
	assert.Equal(t, 25.0, l.MiningReward())

	_, err = admin.ForceMine(ctx, "", "root")
	assert.True(t, errors.Is(err, ledger.ErrNoPendingTransactions))

	_, err = NewTxService(l).SubmitTx(ctx, &interfaces.SubmitTxRequest{Sender: "alice", Recipient: "bob", Amount: 1})
	require.NoError(t, err)
	b, err := admin.ForceMine(ctx, "", "root")
	require.NoError(t, err)
	assert.Equal(t, 25.0, l.Balance(DefaultForceMiner))
	assert.Equal(t, 2, b.Difficulty)

	// the log keeps the last two actions
	log, err := admin.Actions(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, log.TotalActions)
	require.Len(t, log.Actions, 2)
	assert.Equal(t, "adjust_reward", log.Actions[0].Action)
	assert.Equal(t, "force_mine", log.Actions[1].Action)
	assert.Equal(t, "root", log.Actions[1].AdminID)

	log, err = admin.Actions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, log.Actions, 1)
	assert.Equal(t, "force_mine", log.Actions[0].Action)
}

func TestAdminService_Export(t *testing.T) {
	ctx := context.Background()
	l := rewardLedger(t)
	admin := NewAdminService(l, 0)

	_, err := admin.SetMiningReward(ctx, 12, "root")
	require.NoError(t, err)
	_, err = NewTxService(l).SubmitTx(ctx, &interfaces.SubmitTxRequest{Sender: "alice", Recipient: "bob", Amount: 1})
	require.NoError(t, err)

	doc, err := admin.Export(ctx, "root")
	require.NoError(t, err)
	assert.Len(t, doc.Chain, 1)
	assert.Len(t, doc.Pending, 1)
	assert.Equal(t, 1, doc.Difficulty)
	assert.Equal(t, block.NewSchedule(1), doc.Schedule)
	assert.Equal(t, 12.0, doc.MiningReward)
	require.Len(t, doc.AdminLog, 1)
	assert.False(t, doc.ExportTimestamp.IsZero())

	log, err := admin.Actions(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "export_data", log.Actions[len(log.Actions)-1].Action)
}

func TestHealthService(t *testing.T) {
	l := rewardLedger(t)
	hs := NewHealthService(l, "node-a")

	resp, err := hs.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, interfaces.HealthServing, resp.Status)
	assert.Equal(t, "node-a", resp.NodeName)
	assert.Equal(t, 1, resp.ChainLength)
	assert.True(t, resp.ChainValid)

	resp, err = NewHealthService(nil, "node-b").Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, interfaces.HealthNotServing, resp.Status)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = hs.Check(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}
