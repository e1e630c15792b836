package miner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenpoints/greenledger/block"
	"github.com/greenpoints/greenledger/types"
)

func candidate(t *testing.T) *block.Block {
	t.Helper()
	tx := types.NewTransaction("SYSTEM", "miner-1", 10, types.TxTypeMiningReward, time.Unix(1700000000, 0), nil)
	b, err := block.New(1, time.Unix(1700000000, 0), []types.Entry{types.TxEntry(tx)}, block.ZeroHash, 0)
	require.NoError(t, err)
	return b
}

func TestMineBlock_LeavesCandidateUntouched(t *testing.T) {
	c := candidate(t)
	origHash, origNonce := c.Hash, c.Nonce

	mined, err := New(0).MineBlock(context.Background(), c, 2)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(mined.Hash, "00"))
	assert.Equal(t, 2, mined.Difficulty)
	h, err := mined.ComputeHash()
	require.NoError(t, err)
	assert.Equal(t, mined.Hash, h)

	assert.Equal(t, origHash, c.Hash)
	assert.Equal(t, origNonce, c.Nonce)
	assert.Equal(t, 0, c.Difficulty)
}

func TestMineBlock_Timeout(t *testing.T) {
	_, err := New(20*time.Millisecond).MineBlock(context.Background(), candidate(t), block.HashLength)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMiningAborted))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestMineBlock_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(0).MineBlock(ctx, candidate(t), block.HashLength)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestMineBlock_NilCandidate(t *testing.T) {
	_, err := New(0).MineBlock(context.Background(), nil, 1)
	assert.True(t, errors.Is(err, block.ErrValidation))
}
