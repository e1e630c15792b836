package db

import (
	"context"
	"fmt"

	"github.com/greenpoints/greenledger/logx"
)

// BatchWriter runs a group of writes as one atomic batch on the shared
// DatabaseProvider.
type BatchWriter struct {
	provider DatabaseProvider
}

func NewBatchWriter(provider DatabaseProvider) *BatchWriter {
	return &BatchWriter{provider: provider}
}

// Write fills a batch with fn and commits it. Nothing is written when fn
// fails or ctx is done before the commit.
func (w *BatchWriter) Write(ctx context.Context, fn func(batch DatabaseBatch) error) error {
	batch := w.provider.Batch()
	defer func() {
		if err := batch.Close(); err != nil {
			logx.Error("BATCH", fmt.Sprintf("Failed to close batch: %v", err))
		}
	}()

	if err := fn(batch); err != nil {
		batch.Reset()
		return fmt.Errorf("batch aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		batch.Reset()
		return err
	}
	n := batch.Len()
	if n == 0 {
		return nil
	}

	if err := batch.Write(ctx); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	logx.Debug("BATCH", fmt.Sprintf("Committed %d writes", n))
	return nil
}
