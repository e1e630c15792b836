package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenpoints/greenledger/jsonx"
	"github.com/greenpoints/greenledger/ledger"
	"github.com/greenpoints/greenledger/mempool"
	"github.com/greenpoints/greenledger/miner"
	"github.com/greenpoints/greenledger/ratelimit"
	"github.com/greenpoints/greenledger/types"
	"github.com/greenpoints/greenledger/validator"
)

func TestLedgerError_ErrorIsJSON(t *testing.T) {
	err := NewError(ErrCodeNotFound, ErrMsgNotFound)

	var decoded LedgerError
	require.NoError(t, jsonx.Unmarshal([]byte(err.Error()), &decoded))
	assert.Equal(t, ErrCodeNotFound, decoded.Code)
	assert.Equal(t, ErrMsgNotFound, decoded.Message)
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code LedgerErrorCode
	}{
		{"invalid amount", fmt.Errorf("%w: amount must be positive, got 0", types.ErrInvalidTransaction), ErrCodeInvalidAmount},
		{"missing sender", fmt.Errorf("%w: sender is required", types.ErrInvalidTransaction), ErrCodeInvalidTransaction},
		{"unserializable record", fmt.Errorf("%w: %w", ledger.ErrPersistence, types.ErrUnserializable), ErrCodeInvalidRequest},
		{"invalid setting", fmt.Errorf("%w: difficulty 99", ledger.ErrInvalidSetting), ErrCodeInvalidSetting},
		{"not found", fmt.Errorf("block 9: %w", ledger.ErrNotFound), ErrCodeNotFound},
		{"duplicate", fmt.Errorf("%w: abc", mempool.ErrDuplicateTx), ErrCodeDuplicateTransaction},
		{"mempool full", mempool.ErrMempoolFull, ErrCodeMempoolFull},
		{"nothing to mine", ledger.ErrNoPendingTransactions, ErrCodeNoPendingTransactions},
		{"pool disabled", ledger.ErrPoolDisabled, ErrCodePoolDisabled},
		{"persistence", fmt.Errorf("%w: disk full", ledger.ErrPersistence), ErrCodePersistenceFailed},
		{"integrity", fmt.Errorf("%w: block 2 hash mismatch", validator.ErrChainIntegrity), ErrCodeChainIntegrity},
		{"mining aborted", fmt.Errorf("%w: %w", miner.ErrMiningAborted, context.Canceled), ErrCodeMiningAborted},
		{"rate limited", fmt.Errorf("tx.submit: %w", &ratelimit.RateLimitError{Type: "sender", Key: "a"}), ErrCodeRateLimited},
		{"unknown", fmt.Errorf("boom"), ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			le := FromError(tt.err)
			require.NotNil(t, le)
			assert.Equal(t, tt.code, le.Code)
			assert.NotEmpty(t, le.Message)
		})
	}
}

func TestFromError_PassesThroughCodedErrors(t *testing.T) {
	orig := NewError(ErrCodeInvalidAddress, ErrMsgInvalidAddress)
	wrapped := fmt.Errorf("account.balance: %w", orig)

	assert.Same(t, orig, FromError(wrapped))
	assert.Nil(t, FromError(nil))
}

func TestFromError_InternalHidesDetail(t *testing.T) {
	le := FromError(fmt.Errorf("dial tcp 10.0.0.1:5432: connection refused"))
	assert.Equal(t, ErrMsgInternal, le.Message)
}
