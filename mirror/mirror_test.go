package mirror

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenpoints/greenledger/block"
	"github.com/greenpoints/greenledger/events"
	"github.com/greenpoints/greenledger/types"
)

type execCall struct {
	query string
	args  []interface{}
}

type fakeExecer struct {
	mu     sync.Mutex
	calls  []execCall
	failOn string
}

func (f *fakeExecer) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && strings.Contains(query, f.failOn) {
		return nil, errors.New("connection reset")
	}
	f.calls = append(f.calls, execCall{query: query, args: args})
	return nil, nil
}

func (f *fakeExecer) count(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.Contains(c.query, "INSERT INTO "+table+" ") {
			n++
		}
	}
	return n
}

type staticBalances map[string]float64

func (s staticBalances) Balance(addr string) float64 { return s[addr] }

func minedBlock(t *testing.T) *block.Block {
	t.Helper()
	ts := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	entries := []types.Entry{
		types.TxEntry(types.NewTransaction("alice", "bob", 4, types.TxTypeTransfer, ts, types.Metadata{"note": "lunch"})),
		types.TxEntry(types.NewTransaction(types.SystemSender, "miner", 10, types.TxTypeMiningReward, ts, nil)),
	}
	b, err := block.New(1, ts, entries, block.ZeroHash, 0)
	require.NoError(t, err)
	return b
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeExecer{}
	require.NoError(t, New(db, nil).EnsureSchema(context.Background()))
	assert.Len(t, db.calls, len(schema))

	db = &fakeExecer{failOn: "greenledger_balances"}
	assert.Error(t, New(db, nil).EnsureSchema(context.Background()))
}

func TestWriteBlock(t *testing.T) {
	db := &fakeExecer{}
	m := New(db, staticBalances{"alice": -4, "bob": 4, "miner": 10, types.SystemSender: -10})
	b := minedBlock(t)

	require.NoError(t, m.WriteBlock(context.Background(), b))
	assert.Equal(t, 1, db.count("greenledger_blocks"))
	assert.Equal(t, 2, db.count("greenledger_transactions"))
	assert.Equal(t, 4, db.count("greenledger_balances"))

	blockCall := db.calls[0]
	assert.Equal(t, b.Hash, blockCall.args[1])
	assert.Contains(t, blockCall.args[6], `"kind":"transaction"`)

	txCall := db.calls[1]
	assert.Equal(t, `{"note":"lunch"}`, txCall.args[7])
	assert.Nil(t, db.calls[2].args[7])
}

func TestWriteBlock_WithoutBalances(t *testing.T) {
	db := &fakeExecer{}
	require.NoError(t, New(db, nil).WriteBlock(context.Background(), minedBlock(t)))
	assert.Equal(t, 0, db.count("greenledger_balances"))
}

func TestWriteBlock_Error(t *testing.T) {
	db := &fakeExecer{failOn: "greenledger_transactions"}
	err := New(db, nil).WriteBlock(context.Background(), minedBlock(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert transaction")
}

func TestSync(t *testing.T) {
	db := &fakeExecer{}
	genesis, err := block.New(0, time.Now(), nil, block.ZeroHash, 0)
	require.NoError(t, err)

	require.NoError(t, New(db, nil).Sync(context.Background(), []*block.Block{genesis, minedBlock(t)}))
	assert.Equal(t, 2, db.count("greenledger_blocks"))
}

func TestStartMirrorsCommittedBlocks(t *testing.T) {
	db := &fakeExecer{}
	bus := events.NewEventBus()
	m := New(db, nil)
	m.Start(bus)
	m.Start(bus)
	assert.Equal(t, 1, bus.GetTotalSubscriptions())

	bus.Publish(events.NewTransactionRemoved("abc"))
	bus.Publish(events.NewBlockCommitted(minedBlock(t)))
	m.Stop()

	assert.Equal(t, 0, bus.GetTotalSubscriptions())
	assert.Equal(t, 1, db.count("greenledger_blocks"))
	m.Stop()
}
