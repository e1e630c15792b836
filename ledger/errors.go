package ledger

import "errors"

var (
	ErrNoPendingTransactions = errors.New("no pending transactions to mine")
	ErrPersistence           = errors.New("failed to persist ledger")
	ErrEmptyChain            = errors.New("chain is empty")
	ErrPoolDisabled          = errors.New("pending pool is disabled")
	ErrNotFound              = errors.New("not found")
	ErrInvalidSetting        = errors.New("invalid ledger setting")
)
