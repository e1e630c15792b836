package types

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/greenpoints/greenledger/jsonx"
)

type EntryKind string

const (
	EntryKindTransaction EntryKind = "transaction"
	EntryKindRecord      EntryKind = "record"
)

// Record is a free-form audit payload. After NormalizeRecord it only holds
// JSON-native values.
type Record map[string]interface{}

// Entry is one element of a block payload: either a transaction or an
// audit record, tagged by Kind.
type Entry struct {
	Kind        EntryKind    `json:"kind"`
	Transaction *Transaction `json:"transaction,omitempty"`
	Record      Record       `json:"record,omitempty"`
}

func TxEntry(tx *Transaction) Entry {
	return Entry{Kind: EntryKindTransaction, Transaction: tx}
}

func RecordEntry(r Record) Entry {
	return Entry{Kind: EntryKindRecord, Record: r}
}

var ErrUnserializable = errors.New("value is not serializable")

// NormalizeRecord returns a deep copy of r in which every value is
// JSON-native. Stringers (external object ids) and text marshalers become
// strings, times become RFC 3339 strings.
func NormalizeRecord(r map[string]interface{}) (Record, error) {
	out := make(Record, len(r))
	for k, v := range r {
		nv, err := normalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

func normalizeValue(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case nil, string, bool, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return val, nil
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano), nil
	case map[string]interface{}:
		return NormalizeRecord(val)
	case Record:
		return NormalizeRecord(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			nv, err := normalizeValue(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = nv
		}
		return out, nil
	case fmt.Stringer:
		return val.String(), nil
	case encoding.TextMarshaler:
		text, err := val.MarshalText()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnserializable, err)
		}
		return string(text), nil
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return nil, fmt.Errorf("%w: %T", ErrUnserializable, v)
	}

	// structs, typed maps and slices: round trip through JSON
	raw, err := jsonx.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %T: %v", ErrUnserializable, v, err)
	}
	var generic interface{}
	if err := jsonx.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("%w: %T: %v", ErrUnserializable, v, err)
	}
	return generic, nil
}

// HistoryEntry is a transaction annotated with the block that holds it.
type HistoryEntry struct {
	*Transaction
	BlockIndex int    `json:"block_index"`
	BlockHash  string `json:"block_hash"`
}
