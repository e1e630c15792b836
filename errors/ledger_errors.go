package errors

import (
	stderrors "errors"
	"strings"

	"github.com/greenpoints/greenledger/block"
	"github.com/greenpoints/greenledger/jsonx"
	"github.com/greenpoints/greenledger/ledger"
	"github.com/greenpoints/greenledger/mempool"
	"github.com/greenpoints/greenledger/miner"
	"github.com/greenpoints/greenledger/ratelimit"
	"github.com/greenpoints/greenledger/types"
	"github.com/greenpoints/greenledger/validator"
)

// LedgerErrorCode is a stable, client-facing error code.
type LedgerErrorCode string

const (
	// General errors
	ErrCodeInternal LedgerErrorCode = "internal_error"

	// Validation errors
	ErrCodeInvalidRequest     LedgerErrorCode = "invalid_request"
	ErrCodeInvalidTransaction LedgerErrorCode = "invalid_transaction"
	ErrCodeInvalidAddress     LedgerErrorCode = "invalid_address"
	ErrCodeInvalidAmount      LedgerErrorCode = "invalid_amount"
	ErrCodeInvalidSetting     LedgerErrorCode = "invalid_setting"

	// Business logic errors
	ErrCodeNotFound              LedgerErrorCode = "not_found"
	ErrCodeDuplicateTransaction  LedgerErrorCode = "duplicate_transaction"
	ErrCodeNoPendingTransactions LedgerErrorCode = "no_pending_transactions"
	ErrCodePoolDisabled          LedgerErrorCode = "pool_disabled"

	// System errors
	ErrCodeMempoolFull       LedgerErrorCode = "mempool_full"
	ErrCodePersistenceFailed LedgerErrorCode = "persistence_failed"
	ErrCodeChainIntegrity    LedgerErrorCode = "chain_integrity"
	ErrCodeMiningAborted     LedgerErrorCode = "mining_aborted"
	ErrCodeRateLimited       LedgerErrorCode = "rate_limited"
)

// LedgerError is the error shape returned to RPC clients.
type LedgerError struct {
	Code    LedgerErrorCode `json:"code"`
	Message string          `json:"message"`
}

// Error renders the error as its JSON form.
func (e *LedgerError) Error() string {
	raw, _ := jsonx.Marshal(LedgerError{
		Code:    e.Code,
		Message: e.Message,
	})
	return string(raw)
}

const (
	ErrMsgInvalidRequest        = "Request format is invalid"
	ErrMsgInvalidTransaction    = "Transaction data is invalid"
	ErrMsgInvalidAddress        = "Wallet address is invalid"
	ErrMsgInvalidAmount         = "Amount must be a positive number"
	ErrMsgInvalidSetting        = "Setting value is out of range"
	ErrMsgNotFound              = "Requested item could not be found"
	ErrMsgDuplicateTransaction  = "This transaction already exists"
	ErrMsgNoPendingTransactions = "There are no pending transactions to mine"
	ErrMsgPoolDisabled          = "This ledger does not accept transactions"
	ErrMsgMempoolFull           = "Pending pool is full, please try again"
	ErrMsgPersistenceFailed     = "Ledger could not be saved, please try again"
	ErrMsgChainIntegrity        = "Chain failed integrity validation"
	ErrMsgMiningAborted         = "Mining was cancelled before a block was found"
	ErrMsgRateLimited           = "Too many requests, please slow down"
	ErrMsgInternal              = "Server error, please try again"

	ErrMsgShortTextTooLong  = "Text exceeds maximum length of %d characters for field %s"
	ErrMsgLongTextTooLong   = "Text exceeds maximum length of %d characters for field %s"
	ErrMsgInvalidCharacters = "Field %s contains invalid characters"
	ErrMsgRecordTooDeep     = "Record nesting exceeds %d levels"
)

func NewError(code LedgerErrorCode, message string) error {
	return &LedgerError{
		Code:    code,
		Message: message,
	}
}

// FromError maps a ledger error onto its coded form. The original message
// is kept for validation failures, where it tells the caller what to fix.
func FromError(err error) *LedgerError {
	if err == nil {
		return nil
	}
	var le *LedgerError
	if stderrors.As(err, &le) {
		return le
	}
	switch {
	case stderrors.Is(err, types.ErrInvalidTransaction):
		if strings.Contains(err.Error(), "amount") {
			return &LedgerError{Code: ErrCodeInvalidAmount, Message: err.Error()}
		}
		return &LedgerError{Code: ErrCodeInvalidTransaction, Message: err.Error()}
	case stderrors.Is(err, block.ErrValidation):
		return &LedgerError{Code: ErrCodeInvalidRequest, Message: err.Error()}
	case stderrors.Is(err, types.ErrUnserializable):
		return &LedgerError{Code: ErrCodeInvalidRequest, Message: err.Error()}
	case stderrors.Is(err, ledger.ErrInvalidSetting):
		return &LedgerError{Code: ErrCodeInvalidSetting, Message: err.Error()}
	case stderrors.Is(err, ledger.ErrNotFound):
		return &LedgerError{Code: ErrCodeNotFound, Message: err.Error()}
	case stderrors.Is(err, mempool.ErrDuplicateTx):
		return &LedgerError{Code: ErrCodeDuplicateTransaction, Message: ErrMsgDuplicateTransaction}
	case stderrors.Is(err, mempool.ErrMempoolFull):
		return &LedgerError{Code: ErrCodeMempoolFull, Message: ErrMsgMempoolFull}
	case stderrors.Is(err, ledger.ErrNoPendingTransactions):
		return &LedgerError{Code: ErrCodeNoPendingTransactions, Message: ErrMsgNoPendingTransactions}
	case stderrors.Is(err, ledger.ErrPoolDisabled):
		return &LedgerError{Code: ErrCodePoolDisabled, Message: ErrMsgPoolDisabled}
	case stderrors.Is(err, ledger.ErrPersistence):
		return &LedgerError{Code: ErrCodePersistenceFailed, Message: ErrMsgPersistenceFailed}
	case stderrors.Is(err, validator.ErrChainIntegrity):
		return &LedgerError{Code: ErrCodeChainIntegrity, Message: err.Error()}
	case stderrors.As(err, new(*ratelimit.RateLimitError)):
		return &LedgerError{Code: ErrCodeRateLimited, Message: ErrMsgRateLimited}
	case stderrors.Is(err, miner.ErrMiningAborted):
		return &LedgerError{Code: ErrCodeMiningAborted, Message: ErrMsgMiningAborted}
	default:
		return &LedgerError{Code: ErrCodeInternal, Message: ErrMsgInternal}
	}
}
