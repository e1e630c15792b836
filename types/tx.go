package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/greenpoints/greenledger/jsonx"
)

// TxType classifies a transaction. New kinds are added to allowedTxTypes.
type TxType string

const (
	TxTypeTransfer     TxType = "transfer"
	TxTypeTaskReward   TxType = "task_reward"
	TxTypeMiningReward TxType = "mining_reward"
	TxTypeQRReward     TxType = "qr_reward"
	TxTypeAdminBonus   TxType = "admin_bonus"
)

// SystemSender is the sender of rewards minted by the ledger itself.
const SystemSender = "SYSTEM"

const txIDLength = 16

var allowedTxTypes = map[TxType]struct{}{
	TxTypeTransfer:     {},
	TxTypeTaskReward:   {},
	TxTypeMiningReward: {},
	TxTypeQRReward:     {},
	TxTypeAdminBonus:   {},
}

var ErrInvalidTransaction = errors.New("invalid transaction")

// IsValidTxType reports whether t is one of the known transaction kinds.
func IsValidTxType(t TxType) bool {
	_, ok := allowedTxTypes[t]
	return ok
}

// Metadata carries free-form annotations the ledger never interprets.
type Metadata map[string]string

type Transaction struct {
	ID        string    `json:"transaction_id"`
	Sender    string    `json:"from"`
	Recipient string    `json:"to"`
	Amount    float64   `json:"amount"`
	Type      TxType    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  Metadata  `json:"metadata,omitempty"`
}

// NewTransaction builds a transaction stamped at ts and derives its id.
func NewTransaction(sender, recipient string, amount float64, txType TxType, ts time.Time, meta Metadata) *Transaction {
	tx := &Transaction{
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
		Type:      txType,
		Timestamp: ts.UTC(),
		Metadata:  meta,
	}
	tx.ID = tx.DeriveID()
	return tx
}

// DeriveID hashes the canonical core fields plus the creation time.
func (tx *Transaction) DeriveID() string {
	core := map[string]interface{}{
		"sender":    tx.Sender,
		"recipient": tx.Recipient,
		"amount":    tx.Amount,
		"timestamp": tx.Timestamp.UTC().Format(time.RFC3339Nano),
		"type":      string(tx.Type),
	}
	raw, err := jsonx.Canonical(core)
	if err != nil {
		// only reachable for NaN/Inf amounts, which Validate rejects
		raw = []byte(fmt.Sprintf("%s|%s|%v|%s|%s", tx.Sender, tx.Recipient, tx.Amount, tx.Timestamp.UTC().Format(time.RFC3339Nano), tx.Type))
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:txIDLength]
}

// Validate checks the required core. Errors wrap ErrInvalidTransaction.
func (tx *Transaction) Validate() error {
	if tx == nil {
		return fmt.Errorf("%w: nil transaction", ErrInvalidTransaction)
	}
	if !(tx.Amount > 0) || tx.Amount > maxAmount {
		return fmt.Errorf("%w: amount must be positive, got %v", ErrInvalidTransaction, tx.Amount)
	}
	if strings.TrimSpace(tx.Sender) == "" {
		return fmt.Errorf("%w: sender is required", ErrInvalidTransaction)
	}
	if strings.TrimSpace(tx.Recipient) == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidTransaction)
	}
	if !IsValidTxType(tx.Type) {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, tx.Type)
	}
	return nil
}

// maxAmount keeps amounts finite; +Inf would poison every replayed balance.
const maxAmount = 1e300

// Touches reports whether addr is the sender or the recipient.
func (tx *Transaction) Touches(addr string) bool {
	return tx.Sender == addr || tx.Recipient == addr
}

func (tx *Transaction) Clone() *Transaction {
	if tx == nil {
		return nil
	}
	cp := *tx
	if tx.Metadata != nil {
		cp.Metadata = make(Metadata, len(tx.Metadata))
		for k, v := range tx.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

func (tx *Transaction) String() string {
	return fmt.Sprintf("Transaction(%s -> %s: %v GP, %s)", tx.Sender, tx.Recipient, tx.Amount, tx.Type)
}
