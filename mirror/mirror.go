// Package mirror copies committed blocks into a postgres database for
// dashboards and reporting. The ledger never reads the mirror back, and a
// failing mirror never blocks the ledger.
package mirror

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/greenpoints/greenledger/block"
	"github.com/greenpoints/greenledger/events"
	"github.com/greenpoints/greenledger/exception"
	"github.com/greenpoints/greenledger/jsonx"
	"github.com/greenpoints/greenledger/logx"
	"github.com/greenpoints/greenledger/monitoring"
)

// Execer is the subset of *sql.DB the mirror writes through.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// BalanceSource supplies the current balance of an address.
type BalanceSource interface {
	Balance(address string) float64
}

type Mirror struct {
	db       Execer
	balances BalanceSource
	timeout  time.Duration

	mu    sync.Mutex
	bus   *events.EventBus
	subID events.SubscriberID
	done  chan struct{}
}

// New returns a mirror writing to db. balances may be nil, in which case
// the balances table is not maintained.
func New(db Execer, balances BalanceSource) *Mirror {
	return &Mirror{db: db, balances: balances, timeout: 10 * time.Second}
}

func (m *Mirror) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create mirror schema: %w", err)
		}
	}
	return nil
}

// Start consumes ledger events from bus until Stop is called.
func (m *Mirror) Start(bus *events.EventBus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != nil {
		return
	}
	id, ch := bus.Subscribe()
	m.bus, m.subID, m.done = bus, id, make(chan struct{})
	done := m.done

	exception.SafeGo("LedgerMirror", func() {
		defer close(done)
		for ev := range ch {
			ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
			err := exception.SafeCall("LedgerMirror", func() error { return m.Handle(ctx, ev) })
			if err != nil {
				monitoring.IncreaseMirrorFailure()
				logx.Error("MIRROR", fmt.Sprintf("Failed to mirror %s %s: %v", ev.Type(), ev.Subject(), err))
			}
			cancel()
		}
	})
	logx.Info("MIRROR", "Mirroring ledger events to postgres")
}

// Stop unsubscribes and waits for in-flight events to be written.
func (m *Mirror) Stop() {
	m.mu.Lock()
	bus, id, done := m.bus, m.subID, m.done
	m.bus, m.done = nil, nil
	m.mu.Unlock()
	if done == nil {
		return
	}
	bus.Unsubscribe(id)
	<-done
}

// Handle writes one event. Only committed blocks are mirrored.
func (m *Mirror) Handle(ctx context.Context, ev events.LedgerEvent) error {
	bc, ok := ev.(*events.BlockCommitted)
	if !ok {
		return nil
	}
	return m.WriteBlock(ctx, bc.Block)
}

// WriteBlock inserts b, its transactions and the balances it touched.
// Inserts are idempotent, so replaying a block is harmless.
func (m *Mirror) WriteBlock(ctx context.Context, b *block.Block) error {
	data, err := jsonx.Marshal(b.Data)
	if err != nil {
		return fmt.Errorf("encode block %d: %w", b.Index, err)
	}
	if _, err := m.db.ExecContext(ctx, insertBlockSQL,
		b.Index, b.Hash, b.PreviousHash, strconv.FormatUint(b.Nonce, 10), b.Difficulty, b.Timestamp, string(data)); err != nil {
		return fmt.Errorf("insert block %d: %w", b.Index, err)
	}

	touched := make(map[string]struct{})
	for _, tx := range b.Transactions() {
		var meta interface{}
		if len(tx.Metadata) > 0 {
			raw, err := jsonx.Marshal(tx.Metadata)
			if err != nil {
				return fmt.Errorf("encode metadata of %s: %w", tx.ID, err)
			}
			meta = string(raw)
		}
		if _, err := m.db.ExecContext(ctx, insertTxSQL,
			tx.ID, b.Index, tx.Sender, tx.Recipient, tx.Amount, string(tx.Type), tx.Timestamp, meta); err != nil {
			return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
		}
		touched[tx.Sender] = struct{}{}
		touched[tx.Recipient] = struct{}{}
	}

	if m.balances == nil {
		return nil
	}
	for addr := range touched {
		if _, err := m.db.ExecContext(ctx, upsertBalanceSQL, addr, m.balances.Balance(addr)); err != nil {
			return fmt.Errorf("update balance of %s: %w", addr, err)
		}
	}
	return nil
}

// Sync writes every block of chain, for a first fill or after an outage.
func (m *Mirror) Sync(ctx context.Context, chain []*block.Block) error {
	for _, b := range chain {
		if err := m.WriteBlock(ctx, b); err != nil {
			return err
		}
	}
	logx.Info("MIRROR", fmt.Sprintf("Synced %d blocks", len(chain)))
	return nil
}
