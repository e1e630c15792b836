package mirror

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/greenpoints/greenledger/logx"
)

const (
	connectRetries    = 5
	connectRetryDelay = 3 * time.Second
)

// Connect opens a postgres connection pool and pings it, retrying a few
// times while the database comes up.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	var lastErr error
	for attempt := 0; attempt < connectRetries; attempt++ {
		if attempt > 0 {
			logx.Warn("MIRROR", fmt.Sprintf("Retrying database connection (attempt %d/%d) after error: %v", attempt+1, connectRetries, lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(connectRetryDelay):
			}
		}

		db, err := sql.Open("postgres", dsn)
		if err != nil {
			lastErr = fmt.Errorf("failed to open database connection: %w", err)
			continue
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			lastErr = fmt.Errorf("failed to ping database: %w", err)
			continue
		}

		logx.Info("MIRROR", "Database connection established")
		return db, nil
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", connectRetries, lastErr)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS greenledger_blocks (
		block_index   BIGINT PRIMARY KEY,
		hash          CHAR(64) NOT NULL UNIQUE,
		previous_hash CHAR(64) NOT NULL,
		nonce         NUMERIC(20) NOT NULL,
		difficulty    INTEGER NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL,
		data          JSONB NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS greenledger_transactions (
		transaction_id VARCHAR(64) PRIMARY KEY,
		block_index    BIGINT NOT NULL REFERENCES greenledger_blocks(block_index),
		sender         VARCHAR(255) NOT NULL,
		recipient      VARCHAR(255) NOT NULL,
		amount         DOUBLE PRECISION NOT NULL,
		tx_type        VARCHAR(32) NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL,
		metadata       JSONB
	);`,
	`CREATE TABLE IF NOT EXISTS greenledger_balances (
		address    VARCHAR(255) PRIMARY KEY,
		balance    DOUBLE PRECISION NOT NULL,
		updated_at TIMESTAMPTZ DEFAULT now()
	);`,
}

const (
	insertBlockSQL = `INSERT INTO greenledger_blocks (block_index, hash, previous_hash, nonce, difficulty, created_at, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (block_index) DO NOTHING`
	insertTxSQL = `INSERT INTO greenledger_transactions (transaction_id, block_index, sender, recipient, amount, tx_type, created_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (transaction_id) DO NOTHING`
	upsertBalanceSQL = `INSERT INTO greenledger_balances (address, balance) VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE SET balance = EXCLUDED.balance, updated_at = now()`
)
