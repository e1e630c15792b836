package block

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/greenpoints/greenledger/jsonx"
	"github.com/greenpoints/greenledger/types"
)

// HashLength is the length of a hex encoded sha256 digest.
const HashLength = sha256.Size * 2

// ZeroHash is the previous hash of the genesis block.
var ZeroHash = strings.Repeat("0", HashLength)

var ErrValidation = errors.New("block validation failed")

// Block is one immutable, hash-linked unit of the ledger. Fields are only
// written by New and Mine; every other holder treats a *Block as read-only.
type Block struct {
	Index        int           `json:"index"`
	Timestamp    time.Time     `json:"timestamp"`
	Data         []types.Entry `json:"data"`
	PreviousHash string        `json:"previous_hash"`
	Nonce        uint64        `json:"nonce"`
	Difficulty   int           `json:"difficulty"`
	Hash         string        `json:"hash"`
}

// hashInput is the exact field set covered by the block hash.
type hashInput struct {
	Index        int           `json:"index"`
	Timestamp    string        `json:"timestamp"`
	Data         []types.Entry `json:"data"`
	PreviousHash string        `json:"previous_hash"`
	Nonce        uint64        `json:"nonce"`
}

// New assembles a block and computes its hash.
func New(index int, ts time.Time, data []types.Entry, previousHash string, nonce uint64) (*Block, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: negative index %d", ErrValidation, index)
	}
	if !IsHexDigest(previousHash) {
		return nil, fmt.Errorf("%w: previous hash must be %d hex chars, got %q", ErrValidation, HashLength, previousHash)
	}
	if data == nil {
		data = []types.Entry{}
	}
	b := &Block{
		Index:        index,
		Timestamp:    ts.UTC(),
		Data:         data,
		PreviousHash: previousHash,
		Nonce:        nonce,
	}
	h, err := b.ComputeHash()
	if err != nil {
		return nil, err
	}
	b.Hash = h
	return b, nil
}

// ComputeHash returns the sha256 of the canonical serialization of
// (index, timestamp, data, previous_hash, nonce).
func (b *Block) ComputeHash() (string, error) {
	raw, err := b.canonicalBytes()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func (b *Block) canonicalBytes() ([]byte, error) {
	in := hashInput{
		Index:        b.Index,
		Timestamp:    b.Timestamp.UTC().Format(time.RFC3339Nano),
		Data:         b.Data,
		PreviousHash: b.PreviousHash,
		Nonce:        b.Nonce,
	}
	if in.Data == nil {
		in.Data = []types.Entry{}
	}
	raw, err := jsonx.Canonical(in)
	if err != nil {
		return nil, fmt.Errorf("serialize block %d: %w", b.Index, err)
	}
	return raw, nil
}

// mineCheckInterval is how many nonces are tried between context checks.
const mineCheckInterval = 1 << 12

// Mine increments the nonce until the hash has difficulty leading '0'
// digits. It returns ctx.Err() if the context ends first; the block keeps
// the last tried nonce in that case and must be discarded.
func (b *Block) Mine(ctx context.Context, difficulty int) (attempts uint64, err error) {
	if difficulty < 0 || difficulty > HashLength {
		return 0, fmt.Errorf("%w: difficulty %d out of range", ErrValidation, difficulty)
	}
	b.Difficulty = difficulty
	// the payload does not change while mining, so serialize it once
	prefix, suffix, err := b.splitCanonical()
	if err != nil {
		return 0, err
	}
	for {
		h := hashWithNonce(prefix, suffix, b.Nonce)
		attempts++
		if MeetsDifficulty(h, difficulty) {
			b.Hash = h
			return attempts, nil
		}
		if attempts%mineCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return attempts, err
			}
		}
		b.Nonce++
	}
}

// MeetsDifficulty reports whether hash starts with difficulty '0' chars.
func MeetsDifficulty(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	if len(hash) < difficulty {
		return false
	}
	for i := 0; i < difficulty; i++ {
		if hash[i] != '0' {
			return false
		}
	}
	return true
}

// IsHexDigest reports whether s looks like a lowercase sha256 hex digest.
func IsHexDigest(s string) bool {
	if len(s) != HashLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

// Transactions returns the transaction entries in payload order.
func (b *Block) Transactions() []*types.Transaction {
	txs := make([]*types.Transaction, 0, len(b.Data))
	for _, e := range b.Data {
		if e.Kind == types.EntryKindTransaction && e.Transaction != nil {
			txs = append(txs, e.Transaction)
		}
	}
	return txs
}

// Clone returns a deep copy so callers can never mutate committed blocks.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	cp := *b
	cp.Data = make([]types.Entry, len(b.Data))
	for i, e := range b.Data {
		ne := types.Entry{Kind: e.Kind, Transaction: e.Transaction.Clone()}
		if e.Record != nil {
			ne.Record = cloneRecord(e.Record)
		}
		cp.Data[i] = ne
	}
	return &cp
}

func cloneRecord(r types.Record) types.Record {
	out := make(types.Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return map[string]interface{}(cloneRecord(val))
	case types.Record:
		return cloneRecord(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// ShortHash shortens a hash for log lines.
func ShortHash(hash string) string {
	const keep = 8
	if len(hash) <= 2*keep {
		return hash
	}
	return hash[:keep] + "..." + hash[len(hash)-keep:]
}
