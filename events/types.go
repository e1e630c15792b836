package events

import (
	"time"

	"github.com/greenpoints/greenledger/block"
	"github.com/greenpoints/greenledger/types"
)

// EventType is an enum-like string type for ledger events
type EventType string

const (
	EventTransactionAccepted EventType = "TransactionAccepted"
	EventTransactionRejected EventType = "TransactionRejected"
	EventTransactionRemoved  EventType = "TransactionRemoved"
	EventBlockCommitted      EventType = "BlockCommitted"
	EventSettingsChanged     EventType = "SettingsChanged"
)

// LedgerEvent represents anything observable that happens to the ledger.
// Subject is the transaction id or block hash the event is about.
type LedgerEvent interface {
	Type() EventType
	Timestamp() time.Time
	Subject() string
}

type baseEvent struct {
	timestamp time.Time
}

func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func now() baseEvent { return baseEvent{timestamp: time.Now().UTC()} }

// TransactionAccepted is published once a transaction is in the pending pool.
type TransactionAccepted struct {
	baseEvent
	Tx *types.Transaction
}

func NewTransactionAccepted(tx *types.Transaction) *TransactionAccepted {
	return &TransactionAccepted{baseEvent: now(), Tx: tx}
}

func (e *TransactionAccepted) Type() EventType { return EventTransactionAccepted }
func (e *TransactionAccepted) Subject() string { return e.Tx.ID }

// TransactionRejected carries the reason a submission was refused.
type TransactionRejected struct {
	baseEvent
	TxID   string
	Reason string
}

func NewTransactionRejected(txID, reason string) *TransactionRejected {
	return &TransactionRejected{baseEvent: now(), TxID: txID, Reason: reason}
}

func (e *TransactionRejected) Type() EventType { return EventTransactionRejected }
func (e *TransactionRejected) Subject() string { return e.TxID }

// TransactionRemoved is published when an operator drops a pending tx.
type TransactionRemoved struct {
	baseEvent
	TxID string
}

func NewTransactionRemoved(txID string) *TransactionRemoved {
	return &TransactionRemoved{baseEvent: now(), TxID: txID}
}

func (e *TransactionRemoved) Type() EventType { return EventTransactionRemoved }
func (e *TransactionRemoved) Subject() string { return e.TxID }

// BlockCommitted carries a private copy of the committed block.
type BlockCommitted struct {
	baseEvent
	Block *block.Block
}

func NewBlockCommitted(b *block.Block) *BlockCommitted {
	return &BlockCommitted{baseEvent: now(), Block: b.Clone()}
}

func (e *BlockCommitted) Type() EventType { return EventBlockCommitted }
func (e *BlockCommitted) Subject() string { return e.Block.Hash }

// SettingsChanged reports an admin change of difficulty or mining reward.
type SettingsChanged struct {
	baseEvent
	Setting  string
	OldValue float64
	NewValue float64
}

func NewSettingsChanged(setting string, oldValue, newValue float64) *SettingsChanged {
	return &SettingsChanged{baseEvent: now(), Setting: setting, OldValue: oldValue, NewValue: newValue}
}

func (e *SettingsChanged) Type() EventType { return EventSettingsChanged }
func (e *SettingsChanged) Subject() string { return e.Setting }
