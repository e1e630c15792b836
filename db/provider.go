package db

import "context"

// DatabaseProvider is the key-value backend under the chain store. Reads
// return nil for absent keys; all writes go through a DatabaseBatch so a
// ledger save is applied whole or not at all.
type DatabaseProvider interface {
	Get(ctx context.Context, key []byte) ([]byte, error)

	// GetBatch reads keys from one consistent view. Absent keys are left out
	// of the result.
	GetBatch(ctx context.Context, keys [][]byte) (map[string][]byte, error)

	Delete(ctx context.Context, key []byte) error

	Batch() DatabaseBatch

	Close() error
}

// DatabaseBatch buffers writes until Write commits them atomically.
type DatabaseBatch interface {
	Put(key, value []byte)

	// Len is the number of buffered writes
	Len() int

	Write(ctx context.Context) error

	Reset()

	// Close releases batch resources
	Close() error
}
